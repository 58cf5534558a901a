package reservation

import (
	"errors"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

const (
	MessageCreated         = "Booking created successfully!"
	MessageConflict        = "This time slot is already booked."
	MessageSessionExpired  = "Your session has expired. Please log in again."
	MessageSubmitFailed    = "Failed to create the booking."
	MessageConnection      = "Could not connect to the server."
	MessageLoginRequired   = "You need to be logged in to make a booking."
	MessageCancelFailed    = "Failed to cancel the booking."
	MessageSlotsFailed     = "Could not load available times."
	MessageSelectDateFirst = "Select a date and a time first."
)

// SubmitResult is the outcome of one booking submission. It is one of
// Created, Conflict, Unauthorized, Failed or Rejected; callers switch on the
// concrete type.
type SubmitResult interface {
	Message() string
	isSubmitResult()
}

// Created means the server secured the slot.
type Created struct {
	Slot    domain.TimeSlot
	Instant time.Time
	// Booking is set when the server echoed the created booking back.
	Booking *domain.Booking
}

// Conflict means another submission took the slot first.
type Conflict struct {
	ServerMessage string
}

// Unauthorized means the credential was rejected at submission time.
type Unauthorized struct{}

// Failed covers every other status and transport errors. It is never retried
// automatically. Status is 0 for transport errors, in which case the server
// may or may not have committed the booking.
type Failed struct {
	Status int
	Err    error
}

// Rejected means a local precondition failed and no request was sent.
type Rejected struct {
	Err error
}

func (Created) isSubmitResult()      {}
func (Conflict) isSubmitResult()     {}
func (Unauthorized) isSubmitResult() {}
func (Failed) isSubmitResult()       {}
func (Rejected) isSubmitResult()     {}

func (Created) Message() string { return MessageCreated }

func (c Conflict) Message() string {
	if c.ServerMessage != "" {
		return c.ServerMessage
	}
	return MessageConflict
}

func (Unauthorized) Message() string { return MessageSessionExpired }

func (f Failed) Message() string {
	if f.Status == 0 {
		return MessageConnection
	}
	return MessageSubmitFailed
}

func (r Rejected) Message() string {
	switch {
	case errors.Is(r.Err, domain.ErrUnauthenticated):
		return MessageLoginRequired
	case errors.Is(r.Err, domain.ErrNoDateSelected), errors.Is(r.Err, domain.ErrNoTimeSelected):
		return MessageSelectDateFirst
	case r.Err != nil:
		return r.Err.Error()
	default:
		return MessageSubmitFailed
	}
}

func (r Rejected) Unwrap() error { return r.Err }

// CancelError is a failed cancellation. Message is the server's text when it
// sent one, the generic failure message otherwise.
type CancelError struct {
	Status  int
	Message string
	Err     error
}

func (e *CancelError) Error() string {
	return e.Message
}

func (e *CancelError) Unwrap() error {
	return e.Err
}
