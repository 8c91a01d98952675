package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/platform/kafka"
)

// TopicBookingEvents carries all booking notifications; the realtime gateway
// consumes it and fans messages out to the targeted private channels.
const TopicBookingEvents = "booking.events"

// envelope pairs the channel targets with the event payload on the wire.
type envelope struct {
	Channels []string    `json:"channels"`
	Payload  interface{} `json:"payload"`
}

// KafkaNotifier publishes notifications as CloudEvents on the booking topic.
type KafkaNotifier struct {
	producer *kafka.Producer
	source   string
	logger   *zap.Logger
}

// NewKafkaNotifier creates a KafkaNotifier publishing from the given source name.
func NewKafkaNotifier(producer *kafka.Producer, source string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, source: source, logger: logger}
}

// Notify publishes the event. Failures are logged and swallowed: the
// triggering transaction has already committed and must not be failed
// retroactively by a delivery problem.
func (n *KafkaNotifier) Notify(ctx context.Context, eventName string, channels []string, payload interface{}) {
	event, err := kafka.NewCloudEvent(n.source, eventName, envelope{Channels: channels, Payload: payload})
	if err != nil {
		n.logger.Error("failed to build notification event",
			zap.String("event", eventName),
			zap.Error(err),
		)
		return
	}

	key := eventName
	if len(channels) > 0 {
		key = channels[0]
	}
	if err := n.producer.PublishEvent(ctx, TopicBookingEvents, key, event); err != nil {
		n.logger.Error("failed to publish notification",
			zap.String("event", eventName),
			zap.Error(err),
		)
	}
}
