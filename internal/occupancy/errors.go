package occupancy

import (
	"errors"
	"fmt"

	"dorm-occupancy-backend/internal/model"
)

// Kind classifies a business-rule failure. Every Kind is recoverable by the caller.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindGenderPolicyViolation Kind = "GENDER_POLICY_VIOLATION"
	KindBedConflict           Kind = "BED_CONFLICT"
	KindOccupantConflict      Kind = "OCCUPANT_CONFLICT"
	KindCapacityExceeded      Kind = "CAPACITY_EXCEEDED"
	KindBedUnavailable        Kind = "BED_UNAVAILABLE"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindConcurrencyConflict   Kind = "CONCURRENCY_CONFLICT"
	KindForbidden             Kind = "FORBIDDEN"
)

// Error is the tagged failure returned by every engine operation.
type Error struct {
	Kind    Kind
	Message string

	// Set for KindInvalidTransition.
	Current   model.OccupancyStatus
	Requested Event

	// Set for KindBedConflict and KindOccupantConflict.
	Conflict *model.Occupancy
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches sentinels by kind, so errors.Is(err, ErrBedConflict) works on any bed conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrGenderPolicyViolation = &Error{Kind: KindGenderPolicyViolation}
	ErrBedConflict           = &Error{Kind: KindBedConflict}
	ErrOccupantConflict      = &Error{Kind: KindOccupantConflict}
	ErrCapacityExceeded      = &Error{Kind: KindCapacityExceeded}
	ErrBedUnavailable        = &Error{Kind: KindBedUnavailable}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition}
	ErrValidation            = &Error{Kind: KindValidation}
	ErrConcurrencyConflict   = &Error{Kind: KindConcurrencyConflict}
	ErrForbidden             = &Error{Kind: KindForbidden}
)

// KindOf returns the kind of err, or "" when err is not a business-rule failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func notFoundError(what string, id any) *Error {
	return newError(KindNotFound, "%s %v not found", what, id)
}

func invalidTransition(current model.OccupancyStatus, requested Event, detail string) *Error {
	msg := fmt.Sprintf("cannot %s an occupancy that is %s", requested.verb(), current)
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{Kind: KindInvalidTransition, Message: msg, Current: current, Requested: requested}
}

func bedConflict(bed model.Bed, clash model.Occupancy) *Error {
	c := clash
	return &Error{
		Kind:     KindBedConflict,
		Message:  fmt.Sprintf("bed %s occupied %s by %s", bedLabel(bed), describeRange(clash.CheckInDate, clash.CheckOutDate), occupantLabel(clash)),
		Conflict: &c,
	}
}

func occupantConflict(occupant model.Occupant, clash model.Occupancy) *Error {
	c := clash
	return &Error{
		Kind:     KindOccupantConflict,
		Message:  fmt.Sprintf("%s already holds bed %d %s", occupant.Name, clash.BedID, describeRange(clash.CheckInDate, clash.CheckOutDate)),
		Conflict: &c,
	}
}

func bedLabel(b model.Bed) string {
	if b.Code != "" {
		return b.Code
	}
	return fmt.Sprintf("#%d", b.ID)
}

func occupantLabel(o model.Occupancy) string {
	if o.Occupant.Name != "" {
		return o.Occupant.Name
	}
	return fmt.Sprintf("occupant #%d", o.OccupantID)
}
