package domain

import (
	"sort"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFinished  BookingStatus = "finished"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a read-only snapshot of a reservation held by the server.
type Booking struct {
	ID         string     `json:"id"`
	Date       time.Time  `json:"date"`
	Cancelled  bool       `json:"cancelled"`
	Service    Service    `json:"service"`
	Barbershop Barbershop `json:"barbershop"`
}

// StatusAt derives the booking status relative to now. It is never stored.
func (b Booking) StatusAt(now time.Time) BookingStatus {
	switch {
	case b.Cancelled:
		return BookingStatusCancelled
	case b.Date.Before(now):
		return BookingStatusFinished
	default:
		return BookingStatusConfirmed
	}
}

// Cancellable reports whether a cancel request may be issued for the booking.
func (b Booking) Cancellable(now time.Time) bool {
	return b.StatusAt(now) == BookingStatusConfirmed
}

// PartitionBookings splits bookings the way the "my bookings" view shows them:
// upcoming confirmed ones first, everything cancelled or in the past second.
// Both slices keep the order of the input.
func PartitionBookings(bookings []Booking, now time.Time) (confirmed, finished []Booking) {
	confirmed = make([]Booking, 0, len(bookings))
	finished = make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.StatusAt(now) == BookingStatusConfirmed {
			confirmed = append(confirmed, b)
			continue
		}
		finished = append(finished, b)
	}
	return confirmed, finished
}

// SortByDate orders bookings by scheduled instant, earliest first.
func SortByDate(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Date.Before(bookings[j].Date)
	})
}
