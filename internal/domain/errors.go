package domain

import "errors"

var (
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidBooking    = errors.New("invalid booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
)
