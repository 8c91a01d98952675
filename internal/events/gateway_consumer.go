package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/application"
	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/platform/kafka"
)

// TopicGatewayEvents carries payment gateway webhook verdicts.
const TopicGatewayEvents = "payment.gateway.events"

// Gateway event types.
const (
	PaymentSucceeded = "payment.succeeded"
	PaymentFailed    = "payment.failed"
)

// GatewayEventConsumer listens to payment gateway events and couples them to
// bookings: success confirms the booking, failure leaves it pending.
type GatewayEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.PaymentService
	logger   *zap.Logger
}

// NewGatewayEventConsumer creates a new GatewayEventConsumer.
func NewGatewayEventConsumer(
	brokers []string,
	groupID string,
	service *application.PaymentService,
	logger *zap.Logger,
) *GatewayEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicGatewayEvents, logger)
	return &GatewayEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming gateway events. Blocks until the context is cancelled.
func (c *GatewayEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *GatewayEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *GatewayEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from gateway topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	var result application.GatewayResult
	if err := cloudEvent.ParseData(&result); err != nil {
		c.logger.Error("failed to parse gateway result data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil
	}

	switch cloudEvent.Type {
	case PaymentSucceeded:
		return c.apply(ctx, cloudEvent.Type, result, c.service.HandleGatewaySuccess)
	case PaymentFailed:
		return c.apply(ctx, cloudEvent.Type, result, c.service.HandleGatewayFailure)
	default:
		c.logger.Debug("ignoring unhandled gateway event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *GatewayEventConsumer) apply(
	ctx context.Context,
	eventType string,
	result application.GatewayResult,
	handle func(context.Context, application.GatewayResult) error,
) error {
	err := handle(ctx, result)
	if err == nil {
		c.logger.Info("gateway event applied",
			zap.String("type", eventType),
			zap.String("payment_code", result.PaymentCode),
		)
		return nil
	}

	// A verdict for an unknown payment will not become known by retrying.
	if domain.IsCode(err, domain.CodeNotFound) {
		c.logger.Warn("gateway event references unknown payment",
			zap.String("type", eventType),
			zap.String("payment_code", result.PaymentCode),
		)
		return nil
	}

	c.logger.Error("failed to apply gateway event, message will be redelivered",
		zap.String("type", eventType),
		zap.String("payment_code", result.PaymentCode),
		zap.Error(err),
	)
	return err
}
