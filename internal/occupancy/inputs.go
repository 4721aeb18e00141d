package occupancy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dorm-occupancy-backend/internal/model"
)

var validate = validator.New()

// AssignInput requests a bed for an occupant.
type AssignInput struct {
	OccupantID   int64 `validate:"gt=0"`
	BedID        int64 `validate:"gt=0"`
	CheckInDate  time.Time
	CheckOutDate *time.Time
	// Status is RESERVED for direct assignment or PENDING for a booking request.
	Status model.OccupancyStatus `validate:"omitempty,oneof=PENDING RESERVED"`
	Notes  string                `validate:"max=512"`
}

// CheckOutInput closes a stay. Forced with a reason allows leaving before the planned date.
type CheckOutInput struct {
	OccupancyID int64 `validate:"gt=0"`
	Forced      bool
	Reason      string `validate:"max=512"`
}

// CancelInput withdraws a pending or reserved occupancy.
type CancelInput struct {
	OccupancyID int64  `validate:"gt=0"`
	Reason      string `validate:"max=512"`
}

// NoShowInput marks a reservation whose guest never arrived.
type NoShowInput struct {
	OccupancyID int64  `validate:"gt=0"`
	Reason      string `validate:"max=512"`
}

// TransferInput moves an active occupancy to another bed from EffectiveDate on.
type TransferInput struct {
	OccupancyID   int64 `validate:"gt=0"`
	ToBedID       int64 `validate:"gt=0"`
	EffectiveDate time.Time
	Reason        string `validate:"required,max=512"`
}

// HistoryFilter narrows a room history query. Page is 1-based.
type HistoryFilter struct {
	Actions  []model.Action
	From     *time.Time
	To       *time.Time
	Page     int `validate:"gte=0"`
	PageSize int `validate:"gte=0,lte=200"`
}

// checkStruct runs the struct tags and converts failures into a ValidationError.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return validationError("invalid input: %s", strings.Join(msgs, "; "))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
