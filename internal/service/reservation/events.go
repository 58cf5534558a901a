package reservation

import (
	"context"

	"github.com/Domenick1991/barberbooking/internal/kafka"
	"go.uber.org/zap"
)

// publishEvent writes the event to the booking topic and, when configured, to
// the notifications topic. Failures are logged and never change the outcome
// the caller already has.
func publishEvent(ctx context.Context, log *zap.Logger, producer Producer, topic, notificationsTopic string, event kafka.BookingEvent) {
	key := event.BookingID
	if key == "" {
		key = event.ID
	}

	if err := producer.Publish(ctx, topic, key, event); err != nil {
		log.Warn("failed to publish booking event",
			zap.String("type", event.Type),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	if notificationsTopic == "" {
		return
	}
	if err := producer.Publish(ctx, notificationsTopic, key, event); err != nil {
		log.Warn("failed to publish notification event",
			zap.String("type", event.Type),
			zap.String("topic", notificationsTopic),
			zap.Error(err),
		)
	}
}
