package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type breakerFixture struct {
	cb  *CircuitBreakerClient
	url string
}

func (f breakerFixture) post() error {
	return f.cb.PostJSON(context.Background(), f.url, []byte(`{}`))
}

func testBreaker(t *testing.T, name string) (breakerFixture, func(int)) {
	t.Helper()
	cfg := CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var status atomic.Int32
	status.Store(http.StatusOK)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(srv.Close)

	f := breakerFixture{cb: NewCircuitBreakerClient(New(DefaultConfig()), cfg, logger), url: srv.URL}
	return f, func(code int) { status.Store(int32(code)) }
}

func TestCircuitBreaker_TripsOn5xxAndRecovers(t *testing.T) {
	f, setStatus := testBreaker(t, "cb-trip")

	require.NoError(t, f.post())

	setStatus(http.StatusInternalServerError)
	for i := 0; i < 3; i++ {
		_ = f.post()
	}
	assert.Equal(t, gobreaker.StateOpen, f.cb.State())
	assert.ErrorIs(t, f.post(), ErrCircuitOpen)

	setStatus(http.StatusOK)
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, f.post())
	assert.Equal(t, gobreaker.StateClosed, f.cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	f, setStatus := testBreaker(t, "cb-4xx")
	setStatus(http.StatusUnprocessableEntity)

	for i := 0; i < 5; i++ {
		err := f.post()
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	}
	assert.Equal(t, gobreaker.StateClosed, f.cb.State())
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("email-api")
	assert.Equal(t, "email-api", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 0.5, cfg.FailureRatio)
}
