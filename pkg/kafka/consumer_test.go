package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closes    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func eventMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	event, err := NewEvent("email.requested", "k", "s", jobPayload{To: "a@x.com"})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "identity.email.requested", Offset: offset, Value: raw}
}

func runConsumer(t *testing.T, r *fakeReader, h Handler, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := newConsumer(r, "identity.email.requested", "mailer", h, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	assert.Eventually(t, done, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, 1), eventMessage(t, 2)}}

	var mu sync.Mutex
	var seen []string
	h := func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventID)
		return nil
	}

	runConsumer(t, r, h, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 2
	})

	assert.Len(t, seen, 2)
	assert.Equal(t, 1, r.closes)
}

func TestConsumer_FailingHandlerIsAttemptedOnce(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{eventMessage(t, 7)}}

	var mu sync.Mutex
	calls := 0
	h := func(context.Context, *Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("smtp refused")
	}

	runConsumer(t, r, h, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(7), r.committed[0].Offset)
}

func TestConsumer_MalformedMessageIsCommitted(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "identity.email.requested", Offset: 3, Value: []byte("{nope")}}}

	called := false
	h := func(context.Context, *Event) error {
		called = true
		return nil
	}

	runConsumer(t, r, h, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 1
	})
	assert.False(t, called)
}

func TestConsumer_CloseIsIdempotent(t *testing.T) {
	r := &fakeReader{}
	c := newConsumer(r, "t", "g", nil, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closes)
}
