package holds

import "errors"

var (
	ErrSeatNotFound        = errors.New("seat not found")
	ErrSeatUnavailable     = errors.New("seat unavailable")
	ErrAlreadyHeld         = errors.New("seat already held")
	ErrHoldNotFound        = errors.New("hold not found")
	ErrHoldExpired         = errors.New("hold expired")
	ErrHoldAlreadyConsumed = errors.New("hold already consumed")
	ErrInvalidReason       = errors.New("release reason must be EXPIRED or CANCELLED")
	ErrInvalidTTL          = errors.New("hold ttl must be positive")
)
