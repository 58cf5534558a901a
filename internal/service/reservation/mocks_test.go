package reservation

import (
	"context"
	"time"

	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type MockBookingAPI struct {
	mock.Mock
}

func (m *MockBookingAPI) AvailableTimes(ctx context.Context, token, shopID string, date time.Time) ([]string, error) {
	args := m.Called(ctx, token, shopID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, token string, req bookingapi.CreateBookingRequest) (*domain.Booking, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingAPI) CancelBooking(ctx context.Context, token, bookingID string) error {
	args := m.Called(ctx, token, bookingID)
	return args.Error(0)
}

func (m *MockBookingAPI) MyBookings(ctx context.Context, token string) ([]domain.Booking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type stubCredentials struct {
	token    string
	identity domain.Identity
}

func (s *stubCredentials) CurrentToken() (string, bool) {
	return s.token, s.token != ""
}

func (s *stubCredentials) CurrentIdentity() (domain.Identity, bool) {
	return s.identity, s.token != ""
}

func loggedIn() *stubCredentials {
	return &stubCredentials{
		token:    "raw-token",
		identity: domain.Identity{Email: "ana@example.com", Name: "Ana"},
	}
}

func loggedOut() *stubCredentials {
	return &stubCredentials{}
}
