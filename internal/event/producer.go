package event

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/identity/internal/domain"
	pkgkafka "github.com/utafrali/identity/pkg/kafka"
	"github.com/utafrali/identity/pkg/logger"
)

// TopicEmailRequested carries deferred email jobs from the API to the mailer.
var TopicEmailRequested = pkgkafka.Topic("email", "requested")

// SourceIdentityAPI identifies events originating from the HTTP API.
const SourceIdentityAPI = "identity-api"

// DefaultPublishTimeout bounds how long a request waits on the broker.
const DefaultPublishTimeout = 2 * time.Second

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes email jobs to Kafka. It implements notify.Dispatcher.
type Producer struct {
	kafka   publisher
	timeout time.Duration
}

// NewProducer creates a new email job producer.
func NewProducer(kafka *pkgkafka.Producer) *Producer {
	return &Producer{kafka: kafka, timeout: DefaultPublishTimeout}
}

// Dispatch publishes job as an email.requested event keyed by recipient.
func (p *Producer) Dispatch(ctx context.Context, job domain.EmailJob) error {
	event, err := pkgkafka.NewEvent(TopicEmailRequested, job.To, SourceIdentityAPI, job)
	if err != nil {
		return fmt.Errorf("create email.requested event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.kafka.Publish(ctx, TopicEmailRequested, event); err != nil {
		return fmt.Errorf("publish email.requested event: %w", err)
	}
	return nil
}
