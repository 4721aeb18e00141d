package code

import "net/http"

// General codes (100xxx).
const (
	// ErrSuccess - 200.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: storage or other internal failure.
	ErrUnknown
	// ErrBind - 400: malformed path, query or body.
	ErrBind
	// ErrValidation - 422: input failed validation.
	ErrValidation
	// ErrUnauthorized - 401: no actor on the request.
	ErrUnauthorized
	// ErrForbidden - 403: the actor's role may not do this.
	ErrForbidden
	// ErrTooManyRequests - 429.
	ErrTooManyRequests
	// ErrNotFound - 404.
	ErrNotFound
)

// Occupancy codes (101xxx).
const (
	// ErrBedConflict - 409: the bed is held for an overlapping interval.
	ErrBedConflict int = iota + 101000
	// ErrOccupantConflict - 409: the occupant already holds a bed for an overlapping interval.
	ErrOccupantConflict
	// ErrCapacityExceeded - 409: the room is full for the interval.
	ErrCapacityExceeded
	// ErrInvalidTransition - 409: the record's status does not allow the operation.
	ErrInvalidTransition
	// ErrConcurrencyConflict - 409: a concurrent request won; retry.
	ErrConcurrencyConflict
	// ErrGenderPolicy - 422: the room does not admit the occupant.
	ErrGenderPolicy
	// ErrBedUnavailable - 422: the bed is under maintenance or inactive.
	ErrBedUnavailable
)

type meta struct {
	status  int
	message string
}

var codes = map[int]meta{
	ErrSuccess:         {http.StatusOK, "success"},
	ErrUnknown:         {http.StatusInternalServerError, "internal error"},
	ErrBind:            {http.StatusBadRequest, "invalid request"},
	ErrValidation:      {http.StatusUnprocessableEntity, "validation failed"},
	ErrUnauthorized:    {http.StatusUnauthorized, "actor identity is required"},
	ErrForbidden:       {http.StatusForbidden, "forbidden"},
	ErrTooManyRequests: {http.StatusTooManyRequests, "too many requests"},
	ErrNotFound:        {http.StatusNotFound, "not found"},

	ErrBedConflict:         {http.StatusConflict, "bed is already occupied"},
	ErrOccupantConflict:    {http.StatusConflict, "occupant already holds a bed"},
	ErrCapacityExceeded:    {http.StatusConflict, "room capacity exceeded"},
	ErrInvalidTransition:   {http.StatusConflict, "invalid status transition"},
	ErrConcurrencyConflict: {http.StatusConflict, "concurrent update, please retry"},
	ErrGenderPolicy:        {http.StatusUnprocessableEntity, "gender policy violation"},
	ErrBedUnavailable:      {http.StatusUnprocessableEntity, "bed is unavailable"},
}

// GetMessage returns the default message of a code.
func GetMessage(c int) string {
	if m, ok := codes[c]; ok {
		return m.message
	}
	return codes[ErrUnknown].message
}

// GetStatus returns the HTTP status a code is sent with.
func GetStatus(c int) int {
	if m, ok := codes[c]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}
