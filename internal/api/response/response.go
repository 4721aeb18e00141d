package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dorm-occupancy-backend/internal/api/code"
	"dorm-occupancy-backend/internal/occupancy"
)

// Response is the envelope of every API response.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    code.ErrSuccess,
		Message: code.GetMessage(code.ErrSuccess),
		Data:    data,
	})
}

// Fail writes the code's status with its default message.
func Fail(c *gin.Context, errorCode int, data any) {
	FailWithMessage(c, errorCode, code.GetMessage(errorCode), data)
}

// FailWithMessage writes the code's status with a custom message.
func FailWithMessage(c *gin.Context, errorCode int, message string, data any) {
	c.AbortWithStatusJSON(code.GetStatus(errorCode), Response{
		Code:    errorCode,
		Message: message,
		Data:    data,
	})
}

// BindError reports a malformed request.
func BindError(c *gin.Context, message string) {
	FailWithMessage(c, code.ErrBind, message, nil)
}

// conflictData is attached to bed and occupant conflicts so clients can show the clash.
type conflictData struct {
	OccupancyID  int64   `json:"occupancyId"`
	BedID        int64   `json:"bedId"`
	CheckInDate  string  `json:"checkInDate"`
	CheckOutDate *string `json:"checkOutDate"`
}

type transitionData struct {
	Current   string `json:"current"`
	Requested string `json:"requested"`
}

// Error maps an engine error onto its code. Anything that is not a business-rule
// failure is logged and hidden behind ErrUnknown.
func Error(c *gin.Context, err error) {
	var e *occupancy.Error
	if !errors.As(err, &e) {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		Fail(c, code.ErrUnknown, nil)
		return
	}

	var data any
	switch {
	case e.Conflict != nil:
		cd := conflictData{
			OccupancyID: e.Conflict.ID,
			BedID:       e.Conflict.BedID,
			CheckInDate: e.Conflict.CheckInDate.Format(occupancy.DateLayout),
		}
		if e.Conflict.CheckOutDate != nil {
			s := e.Conflict.CheckOutDate.Format(occupancy.DateLayout)
			cd.CheckOutDate = &s
		}
		data = cd
	case e.Kind == occupancy.KindInvalidTransition:
		data = transitionData{Current: string(e.Current), Requested: string(e.Requested)}
	}
	FailWithMessage(c, codeOf(e.Kind), e.Message, data)
}

func codeOf(kind occupancy.Kind) int {
	switch kind {
	case occupancy.KindNotFound:
		return code.ErrNotFound
	case occupancy.KindValidation:
		return code.ErrValidation
	case occupancy.KindGenderPolicyViolation:
		return code.ErrGenderPolicy
	case occupancy.KindBedUnavailable:
		return code.ErrBedUnavailable
	case occupancy.KindBedConflict:
		return code.ErrBedConflict
	case occupancy.KindOccupantConflict:
		return code.ErrOccupantConflict
	case occupancy.KindCapacityExceeded:
		return code.ErrCapacityExceeded
	case occupancy.KindInvalidTransition:
		return code.ErrInvalidTransition
	case occupancy.KindConcurrencyConflict:
		return code.ErrConcurrencyConflict
	case occupancy.KindForbidden:
		return code.ErrForbidden
	default:
		return code.ErrUnknown
	}
}
