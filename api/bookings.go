package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

const (
	messageCancelled      = "Booking cancelled successfully!"
	messageBookingsFailed = "Could not load your bookings."
)

// BookingsView is the "my bookings" listing the handler serves.
type BookingsView interface {
	List(ctx context.Context) (reservation.View, error)
	CancelByID(ctx context.Context, id string) error
}

type BookingHandler struct {
	bookings BookingsView
}

func NewBookingHandler(bookings BookingsView) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.PATCH("/bookings/:id/cancel", h.cancel)
}

func (h *BookingHandler) list(c *gin.Context) {
	view, err := h.bookings.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": reservation.MessageLoginRequired})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"message": messageBookingsFailed})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	err := h.bookings.CancelByID(c.Request.Context(), c.Param("id"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": messageCancelled})
		return
	}

	var cancelErr *reservation.CancelError
	switch {
	case errors.As(err, &cancelErr):
		c.JSON(http.StatusBadGateway, gin.H{"message": cancelErr.Message})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": reservation.MessageLoginRequired})
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrNotCancellable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"message": messageBookingsFailed})
	}
}
