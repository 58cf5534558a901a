package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

// ReservationHandler exposes booking dialogs. Each dialog is one Coordinator
// held in the registry under the id returned by open.
type ReservationHandler struct {
	dialogs  *reservation.Registry
	location *time.Location
}

type openReservationRequest struct {
	BarbershopID string `json:"barbershopId" binding:"required"`
	ServiceID    string `json:"serviceId" binding:"required"`
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

type selectTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

type availabilityResponse struct {
	Date    string   `json:"date,omitempty"`
	State   string   `json:"state"`
	Slots   []string `json:"slots"`
	Message string   `json:"message,omitempty"`
}

type reservationResponse struct {
	ID           string               `json:"id"`
	BarbershopID string               `json:"barbershopId"`
	ServiceID    string               `json:"serviceId"`
	Date         string               `json:"date,omitempty"`
	Time         string               `json:"time,omitempty"`
	Availability availabilityResponse `json:"availability"`
}

type submitResponse struct {
	Message string          `json:"message"`
	Date    string          `json:"date,omitempty"`
	Booking *domain.Booking `json:"booking,omitempty"`
}

func NewReservationHandler(dialogs *reservation.Registry, location *time.Location) *ReservationHandler {
	if location == nil {
		location = time.Local
	}
	return &ReservationHandler{dialogs: dialogs, location: location}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.POST("/reservations", h.open)
	router.GET("/reservations/:id", h.get)
	router.PUT("/reservations/:id/date", h.selectDate)
	router.PUT("/reservations/:id/time", h.selectTime)
	router.POST("/reservations/:id/submit", h.submit)
	router.DELETE("/reservations/:id", h.dismiss)
}

func (h *ReservationHandler) open(c *gin.Context) {
	var req openReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	id, dialog := h.dialogs.Open(req.BarbershopID, req.ServiceID)
	c.JSON(http.StatusCreated, toReservationResponse(id, dialog))
}

func (h *ReservationHandler) get(c *gin.Context) {
	dialog, ok := h.dialog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(c.Param("id"), dialog))
}

func (h *ReservationHandler) selectDate(c *gin.Context) {
	dialog, ok := h.dialog(c)
	if !ok {
		return
	}

	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	date, err := domain.ParseDate(req.Date, h.location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	availability, err := dialog.SelectDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(dialogErrorStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toAvailabilityResponse(availability))
}

func (h *ReservationHandler) selectTime(c *gin.Context) {
	dialog, ok := h.dialog(c)
	if !ok {
		return
	}

	var req selectTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := dialog.SelectTime(req.Time); err != nil {
		c.JSON(dialogErrorStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(c.Param("id"), dialog))
}

func (h *ReservationHandler) submit(c *gin.Context) {
	dialog, ok := h.dialog(c)
	if !ok {
		return
	}

	result := dialog.Submit(c.Request.Context())
	switch r := result.(type) {
	case reservation.Created:
		c.JSON(http.StatusCreated, submitResponse{
			Message: r.Message(),
			Date:    domain.FormatInstant(r.Instant),
			Booking: r.Booking,
		})
	case reservation.Conflict:
		c.JSON(http.StatusConflict, submitResponse{Message: r.Message()})
	case reservation.Unauthorized:
		c.JSON(http.StatusUnauthorized, submitResponse{Message: r.Message()})
	case reservation.Failed:
		c.JSON(http.StatusBadGateway, submitResponse{Message: r.Message()})
	case reservation.Rejected:
		status := http.StatusUnprocessableEntity
		if errors.Is(r.Err, domain.ErrUnauthenticated) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, submitResponse{Message: r.Message()})
	default:
		c.JSON(http.StatusUnprocessableEntity, submitResponse{Message: result.Message()})
	}
}

func (h *ReservationHandler) dismiss(c *gin.Context) {
	if !h.dialogs.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReservationHandler) dialog(c *gin.Context) (*reservation.Coordinator, bool) {
	dialog, ok := h.dialogs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "reservation not found"})
		return nil, false
	}
	return dialog, true
}

func dialogErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrDismissed):
		return http.StatusGone
	case errors.Is(err, domain.ErrStaleQuery):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func toReservationResponse(id string, dialog *reservation.Coordinator) reservationResponse {
	selection := dialog.Selection()
	resp := reservationResponse{
		ID:           id,
		BarbershopID: dialog.ShopID(),
		ServiceID:    dialog.ServiceID(),
		Time:         selection.Time,
		Availability: toAvailabilityResponse(dialog.Availability()),
	}
	if selection.HasDate {
		resp.Date = selection.Date.Format(domain.DateLayout)
	}
	return resp
}

func toAvailabilityResponse(a reservation.Availability) availabilityResponse {
	resp := availabilityResponse{
		State: string(a.State),
		Slots: a.Slots,
	}
	if resp.Slots == nil {
		resp.Slots = []string{}
	}
	if !a.Date.IsZero() {
		resp.Date = a.Date.Format(domain.DateLayout)
	}
	switch a.State {
	case reservation.SlotsFailed:
		resp.Message = reservation.MessageSlotsFailed
	case reservation.SlotsUnauthenticated:
		resp.Message = reservation.MessageLoginRequired
	}
	return resp
}
