package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/identity/internal/domain"
	pkgkafka "github.com/utafrali/identity/pkg/kafka"
	"github.com/utafrali/identity/pkg/logger"
)

type fakePublisher struct {
	topic string
	event *pkgkafka.Event
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.topic = topic
	p.event = event
	return p.err
}

type fakeDelivery struct {
	jobs []domain.EmailJob
	ctxs []context.Context
	err  error
}

func (d *fakeDelivery) Deliver(ctx context.Context, job domain.EmailJob) error {
	d.jobs = append(d.jobs, job)
	d.ctxs = append(d.ctxs, ctx)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestTopicEmailRequested(t *testing.T) {
	assert.Equal(t, "identity.email.requested", TopicEmailRequested)
}

func TestProducer_Dispatch(t *testing.T) {
	pub := &fakePublisher{}
	p := &Producer{kafka: pub}

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	job := domain.EmailJob{Template: domain.TemplateConfirmSignup, To: "a@x.com", Username: "a@x.com", Token: "tok"}

	require.NoError(t, p.Dispatch(ctx, job))

	assert.Equal(t, TopicEmailRequested, pub.topic)
	require.NotNil(t, pub.event)
	assert.Equal(t, TopicEmailRequested, pub.event.EventType)
	assert.Equal(t, "a@x.com", pub.event.Key)
	assert.Equal(t, SourceIdentityAPI, pub.event.Source)
	assert.Equal(t, "corr-1", pub.event.CorrelationID)

	var got domain.EmailJob
	require.NoError(t, pub.event.UnmarshalData(&got))
	assert.Equal(t, job, got)
}

func TestProducer_DispatchError(t *testing.T) {
	p := &Producer{kafka: &fakePublisher{err: errors.New("broker down")}}

	err := p.Dispatch(context.Background(), domain.EmailJob{Template: domain.TemplateTest, To: "a@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish email.requested event")
}

type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ string, _ *pkgkafka.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestProducer_DispatchBoundedByTimeout(t *testing.T) {
	p := &Producer{kafka: stalledPublisher{}, timeout: 20 * time.Millisecond}

	start := time.Now()
	err := p.Dispatch(context.Background(), domain.EmailJob{Template: domain.TemplateTest, To: "a@x.com"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewProducer_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultPublishTimeout, NewProducer(nil).timeout)
}

func TestConsumerHandler_DeliversJob(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewConsumerHandler(delivery, discardLogger())

	job := domain.EmailJob{Template: domain.TemplateActivation, To: "a@x.com", Token: "tok"}
	ev, err := pkgkafka.NewEvent(TopicEmailRequested, job.To, SourceIdentityAPI, job)
	require.NoError(t, err)
	ev.WithCorrelationID("corr-2")

	require.NoError(t, h.Handle(context.Background(), ev))
	require.Len(t, delivery.jobs, 1)
	assert.Equal(t, job, delivery.jobs[0])
	assert.Equal(t, "corr-2", logger.CorrelationIDFromContext(delivery.ctxs[0]))
}

func TestConsumerHandler_DeliveryFailure(t *testing.T) {
	delivery := &fakeDelivery{err: errors.New("smtp down")}
	h := NewConsumerHandler(delivery, discardLogger())

	ev, err := pkgkafka.NewEvent(TopicEmailRequested, "a@x.com", SourceIdentityAPI,
		domain.EmailJob{Template: domain.TemplateTest, To: "a@x.com"})
	require.NoError(t, err)

	assert.Error(t, h.Handle(context.Background(), ev))
	assert.Len(t, delivery.jobs, 1)
}

func TestConsumerHandler_BadPayload(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewConsumerHandler(delivery, discardLogger())

	ev := &pkgkafka.Event{EventID: "e1", EventType: TopicEmailRequested, Data: []byte(`"not an object"`)}

	assert.Error(t, h.Handle(context.Background(), ev))
	assert.Empty(t, delivery.jobs)
}

func TestConsumerHandler_UnknownEventIgnored(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewConsumerHandler(delivery, discardLogger())

	ev := &pkgkafka.Event{EventID: "e1", EventType: "identity.user.deleted", Data: []byte(`{}`)}

	assert.NoError(t, h.Handle(context.Background(), ev))
	assert.Empty(t, delivery.jobs)
}

func TestConsumerHandler_IdempotentRedelivery(t *testing.T) {
	delivery := &fakeDelivery{}
	h := NewConsumerHandler(delivery, discardLogger())
	handle := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), h.Handle, discardLogger())

	ev, err := pkgkafka.NewEvent(TopicEmailRequested, "a@x.com", SourceIdentityAPI,
		domain.EmailJob{Template: domain.TemplateTest, To: "a@x.com"})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), ev))
	require.NoError(t, handle(context.Background(), ev))
	assert.Len(t, delivery.jobs, 1)
}
