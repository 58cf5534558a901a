package reservation

import (
	"context"
	"time"

	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/cache"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/session"
)

// BookingAPI is the part of the remote booking API the reservation flows use.
type BookingAPI interface {
	AvailableTimes(ctx context.Context, token, shopID string, date time.Time) ([]string, error)
	CreateBooking(ctx context.Context, token string, req bookingapi.CreateBookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, token, bookingID string) error
	MyBookings(ctx context.Context, token string) ([]domain.Booking, error)
}

// Credentials is the read-only view of the session the flows authorize with.
type Credentials interface {
	CurrentToken() (string, bool)
	CurrentIdentity() (domain.Identity, bool)
}

// Invalidator marks a dependent booking list for refetch.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// BookingsCache mirrors "my bookings" snapshots per subject.
type BookingsCache interface {
	GetBookings(ctx context.Context, subject string) ([]domain.Booking, error)
	SetBookings(ctx context.Context, subject string, bookings []domain.Booking) error
	InvalidateBookings(ctx context.Context, subject string) error
}

var (
	_ BookingAPI    = (*bookingapi.Client)(nil)
	_ Credentials   = (*session.Manager)(nil)
	_ Producer      = (*kafka.Producer)(nil)
	_ BookingsCache = (*cache.RedisCache)(nil)
	_ Invalidator   = (*Bookings)(nil)
)
