package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("you need to be logged in")
	ErrNoDateSelected  = errors.New("no date selected")
	ErrNoTimeSelected  = errors.New("no time selected")
	ErrSlotUnavailable = errors.New("time slot is not available for the selected date")
	ErrPastDate        = errors.New("date is in the past")
	ErrNotCancellable  = errors.New("only confirmed bookings can be cancelled")
	ErrBusy            = errors.New("another request is already in progress")
	ErrDismissed       = errors.New("booking dialog was dismissed")
	ErrStaleQuery      = errors.New("availability query superseded by a newer date selection")
	ErrBookingNotFound = errors.New("booking not found")
)
