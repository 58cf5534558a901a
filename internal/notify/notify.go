package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const dateTimeLayout = "02/01/2006 at 15:04"

// Sender delivers a rendered notification to a recipient.
type Sender interface {
	Deliver(ctx context.Context, recipient, text string) error
}

// LogSender writes notifications to the log instead of a mail gateway.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Deliver(_ context.Context, recipient, text string) error {
	s.log.Info("notification", zap.String("to", recipient), zap.String("text", text))
	return nil
}

// Notifier turns booking events into user notifications.
type Notifier struct {
	sender   Sender
	location *time.Location
	log      *zap.Logger
}

func NewNotifier(sender Sender, location *time.Location, log *zap.Logger) *Notifier {
	if location == nil {
		location = time.Local
	}
	return &Notifier{sender: sender, location: location, log: log}
}

// HandleMessage is a kafka.Consumer handler. Undecodable messages are logged
// and skipped so one bad payload does not stop the consumer.
func (n *Notifier) HandleMessage(ctx context.Context, msg kafkaGo.Message) error {
	event, err := kafka.DecodeEvent(msg)
	if err != nil {
		n.log.Warn("skipping undecodable booking event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
	return n.Handle(ctx, event)
}

func (n *Notifier) Handle(ctx context.Context, event kafka.BookingEvent) error {
	if event.Subject == "" {
		n.log.Debug("booking event without subject", zap.String("id", event.ID))
		return nil
	}
	text, ok := Render(event, n.location)
	if !ok {
		n.log.Debug("no notification for event type", zap.String("type", event.Type))
		return nil
	}
	if err := n.sender.Deliver(ctx, event.Subject, text); err != nil {
		return fmt.Errorf("deliver %s notification: %w", event.Type, err)
	}
	return nil
}

// Render builds the notification text for an event, shown in loc.
func Render(event kafka.BookingEvent, loc *time.Location) (string, bool) {
	when := event.Date.In(loc).Format(dateTimeLayout)
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Your booking on %s is confirmed.", when), true
	case kafka.EventBookingConflict:
		return fmt.Sprintf("The slot on %s was taken before your booking went through. Please pick another time.", when), true
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Your booking on %s has been cancelled.", when), true
	default:
		return "", false
	}
}
