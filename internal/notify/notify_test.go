package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/identity/internal/domain"
)

type fakeDelivery struct {
	mu      sync.Mutex
	jobs    []domain.EmailJob
	err     error
	release chan struct{}
}

func (d *fakeDelivery) Deliver(ctx context.Context, job domain.EmailJob) error {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return d.err
}

func (d *fakeDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

type fakeDispatcher struct {
	jobs []domain.EmailJob
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, job domain.EmailJob) error {
	d.jobs = append(d.jobs, job)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJob(to string) domain.EmailJob {
	return domain.EmailJob{Template: domain.TemplateTest, To: to}
}

func TestNotifier_SendBlockingSurfacesError(t *testing.T) {
	delivery := &fakeDelivery{err: errors.New("smtp down")}
	dispatcher := &fakeDispatcher{}
	n := New(delivery, dispatcher)

	err := n.SendBlocking(context.Background(), testJob("a@x.com"))
	require.Error(t, err)
	assert.Equal(t, 1, delivery.count())
	assert.Empty(t, dispatcher.jobs)
}

func TestNotifier_SendDeferredUsesDispatcher(t *testing.T) {
	delivery := &fakeDelivery{}
	dispatcher := &fakeDispatcher{}
	n := New(delivery, dispatcher)

	require.NoError(t, n.SendDeferred(context.Background(), testJob("a@x.com")))
	assert.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, 0, delivery.count())

	dispatcher.err = errors.New("broker down")
	assert.Error(t, n.SendDeferred(context.Background(), testJob("b@x.com")))
}

func TestQueueDispatcher_DeliversAndDrains(t *testing.T) {
	delivery := &fakeDelivery{}
	q := NewQueueDispatcher(delivery, 2, 16, discardLogger())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Dispatch(context.Background(), testJob("a@x.com")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	assert.Equal(t, 10, delivery.count())
}

func TestQueueDispatcher_FailedDeliveryIsDropped(t *testing.T) {
	delivery := &fakeDelivery{err: errors.New("smtp down")}
	q := NewQueueDispatcher(delivery, 1, 4, discardLogger())

	require.NoError(t, q.Dispatch(context.Background(), testJob("a@x.com")))
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, 1, delivery.count(), "exactly one attempt, no retry")
}

func TestQueueDispatcher_FullQueueDrops(t *testing.T) {
	delivery := &fakeDelivery{release: make(chan struct{})}
	q := NewQueueDispatcher(delivery, 1, 1, discardLogger())

	require.NoError(t, q.Dispatch(context.Background(), testJob("first@x.com")))
	// The single worker picks up the first job and blocks on release.
	assert.Eventually(t, func() bool { return len(q.jobs) == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, q.Dispatch(context.Background(), testJob("second@x.com")))
	assert.ErrorIs(t, q.Dispatch(context.Background(), testJob("third@x.com")), ErrQueueFull)

	close(delivery.release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2, delivery.count())
}

func TestQueueDispatcher_ClosedRejects(t *testing.T) {
	q := NewQueueDispatcher(&fakeDelivery{}, 1, 1, discardLogger())
	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()))

	assert.ErrorIs(t, q.Dispatch(context.Background(), testJob("a@x.com")), ErrQueueClosed)
}

func TestQueueDispatcher_CloseHonoursContext(t *testing.T) {
	delivery := &fakeDelivery{release: make(chan struct{})}
	q := NewQueueDispatcher(delivery, 1, 1, discardLogger())
	require.NoError(t, q.Dispatch(context.Background(), testJob("a@x.com")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(delivery.release)
}

func TestQueueDispatcher_DetachesCancellation(t *testing.T) {
	delivery := &fakeDelivery{}
	q := NewQueueDispatcher(delivery, 1, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Dispatch(ctx, testJob("a@x.com")))
	cancel()

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 1, delivery.count())
}
