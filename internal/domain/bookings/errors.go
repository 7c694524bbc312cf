package bookings

import "errors"

var (
	// ErrValidation wraps synchronous input rejections; never retried.
	ErrValidation = errors.New("invalid booking request")

	// ErrBookingConflict means the requested dates overlap a booking
	// that still occupies the resource.
	ErrBookingConflict = errors.New("resource is already booked for these dates")

	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidTransition means the state machine defines no edge from
	// the booking's current status to the requested one.
	ErrInvalidTransition = errors.New("status transition not allowed")
)
