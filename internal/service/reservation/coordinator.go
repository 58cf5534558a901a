package reservation

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SlotsState string

const (
	SlotsIdle            SlotsState = "idle"
	SlotsLoading         SlotsState = "loading"
	SlotsReady           SlotsState = "ready"
	SlotsFailed          SlotsState = "failed"
	SlotsUnauthenticated SlotsState = "unauthenticated"
)

// Availability is the slot list for the selected date. A failed query is
// SlotsFailed, never SlotsReady with no slots.
type Availability struct {
	Date  time.Time
	State SlotsState
	Slots []string
	Err   error
}

// Bookable reports whether the list can back a time selection.
func (a Availability) Bookable() bool {
	return a.State == SlotsReady && len(a.Slots) > 0
}

type Selection struct {
	Date    time.Time
	HasDate bool
	Time    string
}

// Coordinator drives one booking attempt for a service at a shop, the state
// behind a single booking dialog. Coordinators share nothing but the
// read-only credentials; the server alone decides slot conflicts.
type Coordinator struct {
	api         BookingAPI
	credentials Credentials
	shopID      string
	serviceID   string

	location           *time.Location
	now                func() time.Time
	log                *zap.Logger
	invalidator        Invalidator
	producer           Producer
	eventsTopic        string
	notificationsTopic string

	mu           sync.Mutex
	generation   uint64
	cancelQuery  context.CancelFunc
	selection    Selection
	availability Availability
	submitting   bool
	closed       bool
}

type CoordinatorOption func(*Coordinator)

func WithLocation(loc *time.Location) CoordinatorOption {
	return func(c *Coordinator) {
		c.location = loc
	}
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithInvalidator registers the booking list refreshed after a booking is created.
func WithInvalidator(inv Invalidator) CoordinatorOption {
	return func(c *Coordinator) {
		c.invalidator = inv
	}
}

func WithEvents(producer Producer, topic string) CoordinatorOption {
	return func(c *Coordinator) {
		c.producer = producer
		c.eventsTopic = topic
	}
}

func WithNotificationsTopic(topic string) CoordinatorOption {
	return func(c *Coordinator) {
		c.notificationsTopic = topic
	}
}

func NewCoordinator(api BookingAPI, credentials Credentials, shopID, serviceID string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		api:          api,
		credentials:  credentials,
		shopID:       shopID,
		serviceID:    serviceID,
		location:     time.Local,
		now:          time.Now,
		log:          zap.NewNop(),
		availability: Availability{State: SlotsIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("barbershop_id", shopID), zap.String("service_id", serviceID))
	return c
}

func (c *Coordinator) ShopID() string    { return c.shopID }
func (c *Coordinator) ServiceID() string { return c.serviceID }

// SelectDate selects a date and queries its available times. Any query still
// in flight for an earlier selection is cancelled and its response dropped:
// the last date selected wins whatever order responses arrive in. Without a
// credential no query is sent and the list is SlotsUnauthenticated.
//
// The returned error is non-nil only when the result was not applied, either
// because a newer selection superseded it (domain.ErrStaleQuery) or because
// the dialog was dismissed (domain.ErrDismissed).
func (c *Coordinator) SelectDate(ctx context.Context, date time.Time) (Availability, error) {
	day := domain.Day(date.In(c.location))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Availability{}, domain.ErrDismissed
	}
	if day.Before(domain.Day(c.now().In(c.location))) {
		c.mu.Unlock()
		return Availability{}, domain.ErrPastDate
	}

	c.generation++
	gen := c.generation
	c.stopQueryLocked()
	c.selection = Selection{Date: day, HasDate: true}

	token, ok := c.credentials.CurrentToken()
	if !ok {
		c.availability = Availability{Date: day, State: SlotsUnauthenticated, Err: domain.ErrUnauthenticated}
		snapshot := c.availabilityLocked()
		c.mu.Unlock()
		return snapshot, nil
	}

	queryCtx, cancel := context.WithCancel(ctx)
	c.cancelQuery = cancel
	c.availability = Availability{Date: day, State: SlotsLoading}
	c.mu.Unlock()

	times, err := c.api.AvailableTimes(queryCtx, token, c.shopID, day)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Availability{}, domain.ErrDismissed
	}
	if gen != c.generation {
		c.log.Debug("dropping superseded availability response", zap.Time("date", day))
		return Availability{}, domain.ErrStaleQuery
	}
	c.cancelQuery = nil

	if err != nil {
		c.log.Warn("availability query failed", zap.Time("date", day), zap.Error(err))
		c.availability = Availability{Date: day, State: SlotsFailed, Err: err}
		return c.availabilityLocked(), nil
	}
	c.availability = Availability{Date: day, State: SlotsReady, Slots: times}
	return c.availabilityLocked(), nil
}

// SelectTime picks one of the available times for the selected date.
func (c *Coordinator) SelectTime(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrDismissed
	}
	if !c.selection.HasDate {
		return domain.ErrNoDateSelected
	}
	if c.availability.State != SlotsReady || !slices.Contains(c.availability.Slots, label) {
		return domain.ErrSlotUnavailable
	}
	c.selection.Time = label
	return nil
}

func (c *Coordinator) Availability() Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availabilityLocked()
}

func (c *Coordinator) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Submit sends the selected slot to the booking API once. Preconditions are
// checked locally first and a failed one returns Rejected without any request.
//
// Exactly-once is not guaranteed: if the connection fails after the server
// committed the booking, the result is Failed with Status 0 all the same. No
// reconciliation or retry is attempted.
func (c *Coordinator) Submit(ctx context.Context) SubmitResult {
	c.mu.Lock()
	token, slot, instant, err := c.prepareSubmitLocked()
	if err != nil {
		c.mu.Unlock()
		return Rejected{Err: err}
	}
	c.submitting = true
	c.mu.Unlock()

	created, err := c.api.CreateBooking(ctx, token, bookingapi.CreateBookingRequest{
		ServiceID: c.serviceID,
		Date:      domain.FormatInstant(instant),
	})
	result := classifySubmit(slot, instant, created, err)

	c.mu.Lock()
	c.submitting = false
	dismissed := c.closed
	if !dismissed {
		c.applyLocked(result)
	}
	c.mu.Unlock()

	c.log.Info("booking submission finished",
		zap.String("outcome", outcomeName(result)),
		zap.Time("instant", instant),
		zap.Bool("dismissed", dismissed),
	)

	switch r := result.(type) {
	case Created:
		if c.invalidator != nil {
			c.invalidator.Invalidate(ctx)
		}
		bookingID := ""
		if r.Booking != nil {
			bookingID = r.Booking.ID
		}
		c.publish(ctx, kafka.EventBookingCreated, bookingID, instant, "")
	case Conflict:
		c.publish(ctx, kafka.EventBookingConflict, "", instant, r.Message())
	}
	return result
}

// Close dismisses the dialog. An in-flight availability query is cancelled
// and the response of an in-flight submission is no longer applied.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.stopQueryLocked()
}

func (c *Coordinator) prepareSubmitLocked() (string, domain.TimeSlot, time.Time, error) {
	if c.closed {
		return "", domain.TimeSlot{}, time.Time{}, domain.ErrDismissed
	}
	if c.submitting {
		return "", domain.TimeSlot{}, time.Time{}, domain.ErrBusy
	}
	token, ok := c.credentials.CurrentToken()
	if !ok {
		return "", domain.TimeSlot{}, time.Time{}, domain.ErrUnauthenticated
	}
	if !c.selection.HasDate {
		return "", domain.TimeSlot{}, time.Time{}, domain.ErrNoDateSelected
	}
	if c.selection.Time == "" {
		return "", domain.TimeSlot{}, time.Time{}, domain.ErrNoTimeSelected
	}

	slot := domain.TimeSlot{Date: c.selection.Date, Time: c.selection.Time}
	instant, err := slot.Instant(c.location)
	if err != nil {
		return "", domain.TimeSlot{}, time.Time{}, err
	}
	return token, slot, instant, nil
}

func (c *Coordinator) applyLocked(result SubmitResult) {
	switch result.(type) {
	case Created:
		c.generation++
		c.stopQueryLocked()
		c.selection = Selection{}
		c.availability = Availability{State: SlotsIdle}
	case Conflict:
		c.selection.Time = ""
	}
}

func (c *Coordinator) stopQueryLocked() {
	if c.cancelQuery != nil {
		c.cancelQuery()
		c.cancelQuery = nil
	}
}

func (c *Coordinator) availabilityLocked() Availability {
	a := c.availability
	a.Slots = slices.Clone(a.Slots)
	return a
}

func (c *Coordinator) publish(ctx context.Context, eventType, bookingID string, instant time.Time, message string) {
	if c.producer == nil || c.eventsTopic == "" {
		return
	}
	subject, _ := c.credentials.CurrentIdentity()
	event := kafka.BookingEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		BookingID:    bookingID,
		ServiceID:    c.serviceID,
		BarbershopID: c.shopID,
		Subject:      subject.Email,
		Date:         instant.UTC(),
		Message:      message,
		OccurredAt:   c.now().UTC(),
	}
	publishEvent(ctx, c.log, c.producer, c.eventsTopic, c.notificationsTopic, event)
}

func classifySubmit(slot domain.TimeSlot, instant time.Time, created *domain.Booking, err error) SubmitResult {
	if err == nil {
		return Created{Slot: slot, Instant: instant, Booking: created}
	}

	var se *bookingapi.StatusError
	if !errors.As(err, &se) {
		return Failed{Err: err}
	}
	switch se.Code {
	case http.StatusConflict:
		return Conflict{ServerMessage: se.Message}
	case http.StatusUnauthorized:
		return Unauthorized{}
	default:
		return Failed{Status: se.Code, Err: err}
	}
}

func outcomeName(result SubmitResult) string {
	switch result.(type) {
	case Created:
		return "created"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Failed:
		return "failed"
	default:
		return "rejected"
	}
}
