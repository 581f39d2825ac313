package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/identity/internal/config"
	"github.com/utafrali/identity/internal/event"
	redisrepo "github.com/utafrali/identity/internal/repository/redis"
	"github.com/utafrali/identity/pkg/health"
	pkgkafka "github.com/utafrali/identity/pkg/kafka"
	"github.com/utafrali/identity/pkg/middleware"
)

const (
	workerServiceName = "identity-mailer"

	// processedEventTTL bounds how long a delivered event id is remembered.
	processedEventTTL = 24 * time.Hour
)

// Worker consumes deferred email jobs from Kafka and delivers each one once.
type Worker struct {
	logger         *slog.Logger
	redis          *redis.Client
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewWorker creates the mailer worker with all dependencies wired.
func NewWorker(cfg *config.Config, logger *slog.Logger) (*Worker, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := initTracer(ctx, cfg, workerServiceName)
	if err != nil {
		return nil, err
	}

	m, err := newMailer(cfg, logger)
	if err != nil {
		_ = tracerShutdown(ctx)
		return nil, err
	}

	w := &Worker{logger: logger, tracerShutdown: tracerShutdown}

	var store pkgkafka.IdempotencyStore
	if w.redis = connectRedis(ctx, cfg, logger); w.redis != nil {
		store = redisrepo.NewIdempotencyStore(w.redis, processedEventTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(processedEventTTL)
	}

	handler := event.NewConsumerHandler(m, logger)
	w.consumer = event.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, handler, store, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})
	if w.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return w.redis.Ping(ctx).Err()
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	w.httpServer = newHTTPServer(cfg.MailerHTTPPort, r)

	return w, nil
}

// Run starts the consumer and the health server, then blocks until the
// context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.consumer.Start(consumeCtx); err != nil {
			w.logger.Error("kafka consumer error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		w.logger.Info("starting health server", slog.String("addr", w.httpServer.Addr))
		if err := w.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		w.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	// The in-flight message finishes before the reader closes.
	stopConsumer()
	wg.Wait()

	return errors.Join(runErr, w.Shutdown())
}

// Shutdown stops the health server, flushes spans and closes connections.
func (w *Worker) Shutdown() error {
	w.logger.Info("shutting down mailer...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := w.httpServer.Shutdown(httpCtx); err != nil {
		w.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := w.consumer.Close(); err != nil {
		w.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer tracerCancel()
	if err := w.tracerShutdown(tracerCtx); err != nil {
		w.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			w.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	w.logger.Info("mailer shutdown complete")
	return errors.Join(errs...)
}
