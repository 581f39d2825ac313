package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/identity/internal/domain"
	pkgkafka "github.com/utafrali/identity/pkg/kafka"
	"github.com/utafrali/identity/pkg/logger"
)

// ConsumerGroupID is the consumer group shared by mailer workers.
const ConsumerGroupID = "identity-mailer"

// Delivery performs one delivery attempt for a job.
type Delivery interface {
	Deliver(ctx context.Context, job domain.EmailJob) error
}

// ConsumerHandler delivers email jobs read from Kafka.
type ConsumerHandler struct {
	delivery Delivery
	logger   *slog.Logger
}

// NewConsumerHandler creates a new email job handler.
func NewConsumerHandler(delivery Delivery, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{delivery: delivery, logger: logger}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}

	switch event.EventType {
	case TopicEmailRequested:
		return h.handleEmailRequested(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *ConsumerHandler) handleEmailRequested(ctx context.Context, event *pkgkafka.Event) error {
	var job domain.EmailJob
	if err := event.UnmarshalData(&job); err != nil {
		return fmt.Errorf("decode email job %s: %w", event.EventID, err)
	}

	if err := h.delivery.Deliver(ctx, job); err != nil {
		return err
	}

	logger.WithContext(ctx, h.logger).InfoContext(ctx, "email delivered",
		slog.String("event_id", event.EventID),
		slog.String("template", string(job.Template)),
		slog.String("to", job.To),
	)
	return nil
}

// NewConsumer creates the email.requested consumer. Redelivered events are
// skipped through store.
func NewConsumer(brokers []string, groupID string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, logger *slog.Logger) *pkgkafka.Consumer {
	if groupID == "" {
		groupID = ConsumerGroupID
	}
	cfg := pkgkafka.ConsumerConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    TopicEmailRequested,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	return pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), logger)
}
