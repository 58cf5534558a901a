package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingAPI is a mock implementation of reservation.BookingAPI
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
	return m.Called(ctx, token, bookingID).Error(0)
}

func (m *MockBookingAPI) MyBookings(ctx context.Context, token string) ([]domain.Booking, error) {
	args := m.Called(ctx, token)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type staticCredentials struct {
	token string
}

func (s staticCredentials) CurrentToken() (string, bool) { return s.token, s.token != "" }

func (s staticCredentials) CurrentIdentity() (domain.Identity, bool) {
	return domain.Identity{Email: "ana@example.com"}, s.token != ""
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newReservationHandler(api *MockBookingAPI, token string) (*ReservationHandler, *reservation.Registry) {
	registry := reservation.NewRegistry(api, staticCredentials{token: token},
		reservation.WithLocation(time.UTC),
		reservation.WithClock(func() time.Time { return testNow }),
	)
	return NewReservationHandler(registry, time.UTC), registry
}

func withID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}

func TestReservationHandler_open(t *testing.T) {
	handler, registry := newReservationHandler(&MockBookingAPI{}, "raw-token")
	c, w := newTestContext("POST", "/reservations", gin.H{"barbershopId": "shop-1", "serviceId": "svc-1"})

	handler.open(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response reservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(t, response.ID)
	assert.Equal(t, "shop-1", response.BarbershopID)
	assert.Equal(t, "idle", response.Availability.State)

	_, ok := registry.Get(response.ID)
	assert.True(t, ok)
}

func TestReservationHandler_open_Invalid(t *testing.T) {
	handler, _ := newReservationHandler(&MockBookingAPI{}, "raw-token")
	c, w := newTestContext("POST", "/reservations", gin.H{"barbershopId": "shop-1"})

	handler.open(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReservationHandler_selectDate(t *testing.T) {
	api := &MockBookingAPI{}
	handler, registry := newReservationHandler(api, "raw-token")
	id, _ := registry.Open("shop-1", "svc-1")
	api.On("AvailableTimes", mock.Anything, "raw-token", "shop-1", mock.Anything).
		Return([]string{"09:00", "09:30"}, nil).Once()

	c, w := newTestContext("PUT", "/reservations/"+id+"/date", gin.H{"date": "2025-03-12"})
	withID(c, id)

	handler.selectDate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response availabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "2025-03-12", response.Date)
	assert.Equal(t, "ready", response.State)
	assert.Equal(t, []string{"09:00", "09:30"}, response.Slots)
	api.AssertExpectations(t)
}

func TestReservationHandler_selectDate_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		date   string
		status int
	}{
		{name: "malformed", date: "12/03/2025", status: http.StatusBadRequest},
		{name: "past", date: "2025-03-01", status: http.StatusUnprocessableEntity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &MockBookingAPI{}
			handler, registry := newReservationHandler(api, "raw-token")
			id, _ := registry.Open("shop-1", "svc-1")

			c, w := newTestContext("PUT", "/reservations/"+id+"/date", gin.H{"date": tc.date})
			withID(c, id)

			handler.selectDate(c)

			assert.Equal(t, tc.status, w.Code)
			api.AssertNotCalled(t, "AvailableTimes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReservationHandler_selectDate_LoggedOut(t *testing.T) {
	api := &MockBookingAPI{}
	handler, registry := newReservationHandler(api, "")
	id, _ := registry.Open("shop-1", "svc-1")

	c, w := newTestContext("PUT", "/reservations/"+id+"/date", gin.H{"date": "2025-03-12"})
	withID(c, id)

	handler.selectDate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response availabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "unauthenticated", response.State)
	assert.Equal(t, reservation.MessageLoginRequired, response.Message)
	assert.Empty(t, response.Slots)
}

func TestReservationHandler_unknownID(t *testing.T) {
	handler, _ := newReservationHandler(&MockBookingAPI{}, "raw-token")
	c, w := newTestContext("POST", "/reservations/nope/submit", nil)
	withID(c, "nope")

	handler.submit(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReservationHandler_submit(t *testing.T) {
	testCases := []struct {
		name     string
		created  *domain.Booking
		err      error
		status   int
		expected string
	}{
		{
			name:     "created",
			created:  &domain.Booking{ID: "b-1"},
			status:   http.StatusCreated,
			expected: reservation.MessageCreated,
		},
		{
			name:     "conflict",
			err:      &bookingapi.StatusError{Code: http.StatusConflict, Message: "Slot taken"},
			status:   http.StatusConflict,
			expected: "Slot taken",
		},
		{
			name:     "unauthorized",
			err:      &bookingapi.StatusError{Code: http.StatusUnauthorized},
			status:   http.StatusUnauthorized,
			expected: reservation.MessageSessionExpired,
		},
		{
			name:     "server error",
			err:      &bookingapi.StatusError{Code: http.StatusInternalServerError},
			status:   http.StatusBadGateway,
			expected: reservation.MessageSubmitFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &MockBookingAPI{}
			handler, registry := newReservationHandler(api, "raw-token")
			id, dialog := registry.Open("shop-1", "svc-1")

			api.On("AvailableTimes", mock.Anything, "raw-token", "shop-1", mock.Anything).
				Return([]string{"09:30"}, nil).Once()
			_, err := dialog.SelectDate(context.Background(), time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			require.NoError(t, dialog.SelectTime("09:30"))

			c, w := newTestContext("POST", "/reservations/"+id+"/submit", nil)
			withID(c, id)
			if tc.created != nil {
				api.On("CreateBooking", c.Request.Context(), "raw-token", bookingapi.CreateBookingRequest{
					ServiceID: "svc-1",
					Date:      "2025-03-12T09:30:00.000Z",
				}).Return(tc.created, nil).Once()
			} else {
				api.On("CreateBooking", c.Request.Context(), "raw-token", mock.Anything).Return(nil, tc.err).Once()
			}

			handler.submit(c)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.expected, decodeMessage(t, w))
			api.AssertExpectations(t)
		})
	}
}

func TestReservationHandler_submit_WithoutSelection(t *testing.T) {
	api := &MockBookingAPI{}
	handler, registry := newReservationHandler(api, "raw-token")
	id, _ := registry.Open("shop-1", "svc-1")

	c, w := newTestContext("POST", "/reservations/"+id+"/submit", nil)
	withID(c, id)

	handler.submit(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, reservation.MessageSelectDateFirst, decodeMessage(t, w))
	api.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationHandler_submit_LoggedOut(t *testing.T) {
	api := &MockBookingAPI{}
	handler, registry := newReservationHandler(api, "")
	id, _ := registry.Open("shop-1", "svc-1")

	c, w := newTestContext("POST", "/reservations/"+id+"/submit", nil)
	withID(c, id)

	handler.submit(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, reservation.MessageLoginRequired, decodeMessage(t, w))
	api.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestReservationHandler_selectTime(t *testing.T) {
	api := &MockBookingAPI{}
	handler, registry := newReservationHandler(api, "raw-token")
	id, dialog := registry.Open("shop-1", "svc-1")

	c, w := newTestContext("PUT", "/reservations/"+id+"/time", gin.H{"time": "09:30"})
	withID(c, id)
	handler.selectTime(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	api.On("AvailableTimes", mock.Anything, "raw-token", "shop-1", mock.Anything).
		Return([]string{"09:30"}, nil).Once()
	_, err := dialog.SelectDate(context.Background(), time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	c, w = newTestContext("PUT", "/reservations/"+id+"/time", gin.H{"time": "09:30"})
	withID(c, id)
	handler.selectTime(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response reservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "2025-03-12", response.Date)
	assert.Equal(t, "09:30", response.Time)
}

func TestReservationHandler_dismiss(t *testing.T) {
	handler, registry := newReservationHandler(&MockBookingAPI{}, "raw-token")
	id, _ := registry.Open("shop-1", "svc-1")

	c, _ := newTestContext("DELETE", "/reservations/"+id, nil)
	withID(c, id)
	handler.dismiss(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())

	c, w := newTestContext("DELETE", "/reservations/"+id, nil)
	withID(c, id)
	handler.dismiss(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
