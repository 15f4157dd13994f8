package reservations

import (
	"errors"
	"fmt"
	"net/http"

	"flightdesk/internal/flights"
	"flightdesk/internal/holds"
)

// Every error returned by the Service wraps one of these together with the
// specific cause, so callers can match on either.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExpired         = errors.New("expired")
	ErrAlreadyConsumed = errors.New("already consumed")
	ErrInconsistent    = errors.New("reservation state inconsistent")
	ErrInvalidRequest  = errors.New("invalid request")
)

// Reason codes returned in the errors.reason field of error responses
const (
	ReasonSeatNotFound        = "SEAT_NOT_FOUND"
	ReasonFlightNotFound      = "FLIGHT_NOT_FOUND"
	ReasonHoldNotFound        = "HOLD_NOT_FOUND"
	ReasonSeatUnavailable     = "SEAT_UNAVAILABLE"
	ReasonAlreadyHeld         = "ALREADY_HELD"
	ReasonHoldExpired         = "HOLD_EXPIRED"
	ReasonHoldAlreadyConsumed = "HOLD_ALREADY_CONSUMED"
	ReasonInconsistent        = "INCONSISTENT"
	ReasonInvalidRequest      = "INVALID_REQUEST"
	ReasonInternal            = "INTERNAL"
)

// classify attaches the taxonomy error matching a store or catalog error.
// Errors it does not recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrExpired),
		errors.Is(err, ErrAlreadyConsumed), errors.Is(err, ErrInconsistent), errors.Is(err, ErrInvalidRequest):
		return err
	case errors.Is(err, holds.ErrSeatNotFound), errors.Is(err, holds.ErrHoldNotFound),
		errors.Is(err, flights.ErrFlightNotFound), errors.Is(err, flights.ErrSeatNotFound):
		kind = ErrNotFound
	case errors.Is(err, holds.ErrSeatUnavailable), errors.Is(err, holds.ErrAlreadyHeld):
		kind = ErrConflict
	case errors.Is(err, holds.ErrHoldExpired):
		kind = ErrExpired
	case errors.Is(err, holds.ErrHoldAlreadyConsumed):
		kind = ErrAlreadyConsumed
	case errors.Is(err, holds.ErrInvalidTTL), errors.Is(err, holds.ErrInvalidReason):
		kind = ErrInvalidRequest
	default:
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Reason returns the machine readable reason code for err
func Reason(err error) string {
	switch {
	case errors.Is(err, flights.ErrFlightNotFound):
		return ReasonFlightNotFound
	case errors.Is(err, holds.ErrSeatNotFound), errors.Is(err, flights.ErrSeatNotFound):
		return ReasonSeatNotFound
	case errors.Is(err, holds.ErrHoldNotFound):
		return ReasonHoldNotFound
	case errors.Is(err, holds.ErrAlreadyHeld):
		return ReasonAlreadyHeld
	case errors.Is(err, holds.ErrSeatUnavailable):
		return ReasonSeatUnavailable
	case errors.Is(err, ErrExpired):
		return ReasonHoldExpired
	case errors.Is(err, ErrAlreadyConsumed):
		return ReasonHoldAlreadyConsumed
	case errors.Is(err, ErrInconsistent):
		return ReasonInconsistent
	case errors.Is(err, ErrInvalidRequest):
		return ReasonInvalidRequest
	case errors.Is(err, ErrNotFound):
		return ReasonHoldNotFound
	case errors.Is(err, ErrConflict):
		return ReasonSeatUnavailable
	}
	return ReasonInternal
}

// HTTPStatus maps err onto a response status code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyConsumed):
		return http.StatusConflict
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
