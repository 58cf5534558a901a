package reservation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BookingView is a booking with its status derived at view time.
type BookingView struct {
	domain.Booking
	Status      domain.BookingStatus `json:"status"`
	Cancellable bool                 `json:"cancellable"`
}

// View is the "my bookings" listing: upcoming confirmed bookings and
// everything finished or cancelled.
type View struct {
	Confirmed []BookingView `json:"confirmed"`
	Finished  []BookingView `json:"finished"`
}

// Bookings serves the current session's booking list. The snapshot is kept
// until invalidated; concurrent refetches share one request.
type Bookings struct {
	api         BookingAPI
	credentials Credentials
	cache       BookingsCache
	now         func() time.Time
	log         *zap.Logger

	producer           Producer
	eventsTopic        string
	notificationsTopic string

	group singleflight.Group

	mu         sync.Mutex
	subject    string
	snapshot   []domain.Booking
	loaded     bool
	version    uint64
	cancelling bool
}

type BookingsOption func(*Bookings)

// WithBookingsCache mirrors snapshots into a shared cache keyed by subject.
func WithBookingsCache(cache BookingsCache) BookingsOption {
	return func(b *Bookings) {
		b.cache = cache
	}
}

func WithBookingsClock(now func() time.Time) BookingsOption {
	return func(b *Bookings) {
		b.now = now
	}
}

func WithBookingsLogger(log *zap.Logger) BookingsOption {
	return func(b *Bookings) {
		b.log = log
	}
}

func WithBookingsEvents(producer Producer, topic, notificationsTopic string) BookingsOption {
	return func(b *Bookings) {
		b.producer = producer
		b.eventsTopic = topic
		b.notificationsTopic = notificationsTopic
	}
}

func NewBookings(api BookingAPI, credentials Credentials, opts ...BookingsOption) *Bookings {
	b := &Bookings{
		api:         api,
		credentials: credentials,
		now:         time.Now,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns the partitioned booking list of the logged-in user.
func (b *Bookings) List(ctx context.Context) (View, error) {
	bookings, err := b.load(ctx)
	if err != nil {
		return View{}, err
	}
	return b.view(bookings), nil
}

// Invalidate marks the snapshot for refetch on the next List. The shared
// cache entry of the current identity is dropped too, even before this view
// has loaded anything.
func (b *Bookings) Invalidate(ctx context.Context) {
	b.mu.Lock()
	b.loaded = false
	b.version++
	loadedSubject := b.subject
	b.mu.Unlock()

	if b.cache == nil {
		return
	}
	subjects := make([]string, 0, 2)
	if identity, ok := b.credentials.CurrentIdentity(); ok && identity.Email != "" {
		subjects = append(subjects, identity.Email)
	}
	if loadedSubject != "" && (len(subjects) == 0 || subjects[0] != loadedSubject) {
		subjects = append(subjects, loadedSubject)
	}
	for _, subject := range subjects {
		b.dropCached(ctx, subject)
	}
}

func (b *Bookings) dropCached(ctx context.Context, subject string) {
	if err := b.cache.InvalidateBookings(ctx, subject); err != nil {
		b.log.Warn("failed to invalidate cached bookings", zap.String("subject", subject), zap.Error(err))
	}
}

// Cancel cancels a confirmed booking. Only one cancellation runs at a time
// and the list is refetched after a success. A server rejection is returned
// as *CancelError and leaves the list untouched.
func (b *Bookings) Cancel(ctx context.Context, booking domain.Booking) error {
	if !booking.Cancellable(b.now()) {
		return domain.ErrNotCancellable
	}
	token, ok := b.credentials.CurrentToken()
	if !ok {
		return domain.ErrUnauthenticated
	}

	b.mu.Lock()
	if b.cancelling {
		b.mu.Unlock()
		return domain.ErrBusy
	}
	b.cancelling = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.cancelling = false
		b.mu.Unlock()
	}()

	if err := b.api.CancelBooking(ctx, token, booking.ID); err != nil {
		b.log.Warn("booking cancellation failed", zap.String("booking_id", booking.ID), zap.Error(err))
		return cancelError(err)
	}

	b.log.Info("booking cancelled", zap.String("booking_id", booking.ID))
	b.Invalidate(ctx)
	b.publishCancelled(ctx, booking)
	return nil
}

// CancelByID looks the booking up in the current list and cancels it.
func (b *Bookings) CancelByID(ctx context.Context, id string) error {
	bookings, err := b.load(ctx)
	if err != nil {
		return err
	}
	for _, booking := range bookings {
		if booking.ID == id {
			return b.Cancel(ctx, booking)
		}
	}
	return domain.ErrBookingNotFound
}

func (b *Bookings) load(ctx context.Context) ([]domain.Booking, error) {
	token, ok := b.credentials.CurrentToken()
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	identity, _ := b.credentials.CurrentIdentity()
	subject := identity.Email

	b.mu.Lock()
	if b.subject != subject {
		b.subject = subject
		b.snapshot = nil
		b.loaded = false
		b.version++
	}
	if b.loaded {
		snapshot := b.snapshot
		b.mu.Unlock()
		return snapshot, nil
	}
	version := b.version
	b.mu.Unlock()

	// The shared fetch outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	key := subject + "#" + strconv.FormatUint(version, 10)
	v, err, _ := b.group.Do(key, func() (interface{}, error) {
		return b.fetch(shared, token, subject, version)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Booking), nil
}

func (b *Bookings) fetch(ctx context.Context, token, subject string, version uint64) ([]domain.Booking, error) {
	b.mu.Lock()
	if b.loaded && b.subject == subject && b.version == version {
		snapshot := b.snapshot
		b.mu.Unlock()
		return snapshot, nil
	}
	b.mu.Unlock()

	if b.cache != nil {
		cached, err := b.cache.GetBookings(ctx, subject)
		if err != nil {
			b.log.Warn("failed to read cached bookings", zap.String("subject", subject), zap.Error(err))
		}
		if cached != nil {
			b.install(subject, version, cached)
			return cached, nil
		}
	}

	bookings, err := b.api.MyBookings(ctx, token)
	if err != nil {
		return nil, err
	}
	domain.SortByDate(bookings)

	if b.cache == nil {
		b.install(subject, version, bookings)
		return bookings, nil
	}
	if !b.current(subject, version) {
		return bookings, nil
	}
	if err := b.cache.SetBookings(ctx, subject, bookings); err != nil {
		b.log.Warn("failed to cache bookings", zap.String("subject", subject), zap.Error(err))
	}
	if !b.install(subject, version, bookings) {
		// Invalidated while writing: the entry just written is already stale.
		b.dropCached(ctx, subject)
	}
	return bookings, nil
}

func (b *Bookings) current(subject string, version uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subject == subject && b.version == version
}

// install keeps a fetched list only if nothing invalidated it meanwhile.
func (b *Bookings) install(subject string, version uint64, bookings []domain.Booking) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subject != subject || b.version != version {
		return false
	}
	b.snapshot = bookings
	b.loaded = true
	return true
}

func (b *Bookings) view(bookings []domain.Booking) View {
	now := b.now()
	confirmed, finished := domain.PartitionBookings(bookings, now)
	return View{
		Confirmed: toViews(confirmed, now),
		Finished:  toViews(finished, now),
	}
}

func toViews(bookings []domain.Booking, now time.Time) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for _, booking := range bookings {
		views = append(views, BookingView{
			Booking:     booking,
			Status:      booking.StatusAt(now),
			Cancellable: booking.Cancellable(now),
		})
	}
	return views
}

func (b *Bookings) publishCancelled(ctx context.Context, booking domain.Booking) {
	if b.producer == nil || b.eventsTopic == "" {
		return
	}
	identity, _ := b.credentials.CurrentIdentity()
	event := kafka.BookingEvent{
		ID:           uuid.NewString(),
		Type:         kafka.EventBookingCancelled,
		BookingID:    booking.ID,
		ServiceID:    booking.Service.ID,
		BarbershopID: booking.Barbershop.ID,
		Subject:      identity.Email,
		Date:         booking.Date.UTC(),
		OccurredAt:   b.now().UTC(),
	}
	publishEvent(ctx, b.log, b.producer, b.eventsTopic, b.notificationsTopic, event)
}

func cancelError(err error) *CancelError {
	var se *bookingapi.StatusError
	if errors.As(err, &se) {
		message := se.Message
		if message == "" {
			message = MessageCancelFailed
		}
		return &CancelError{Status: se.Code, Message: message, Err: err}
	}
	return &CancelError{Message: MessageCancelFailed, Err: err}
}
