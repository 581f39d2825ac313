package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/identity/internal/auth"
	"github.com/utafrali/identity/internal/config"
	"github.com/utafrali/identity/internal/event"
	handler "github.com/utafrali/identity/internal/handler/http"
	"github.com/utafrali/identity/internal/notify"
	"github.com/utafrali/identity/internal/repository/memory"
	"github.com/utafrali/identity/internal/repository/postgres"
	redisrepo "github.com/utafrali/identity/internal/repository/redis"
	"github.com/utafrali/identity/internal/service"
	"github.com/utafrali/identity/migrations"
	"github.com/utafrali/identity/pkg/database"
	"github.com/utafrali/identity/pkg/health"
	pkgkafka "github.com/utafrali/identity/pkg/kafka"
)

const serviceName = "identity"

// App wires together all dependencies and runs the identity API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	queue          *notify.QueueDispatcher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := initTracer(ctx, cfg, serviceName)
	if err != nil {
		return nil, err
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pgCfg := postgresConfig(cfg)
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Email rendering and delivery.
	m, err := newMailer(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Deferred email transport.
	var dispatcher notify.Dispatcher
	switch cfg.NotifyMode {
	case config.NotifyKafka:
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		dispatcher = event.NewProducer(a.producer)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	default:
		a.queue = notify.NewQueueDispatcher(m, cfg.NotifyWorkers, cfg.NotifyQueue, logger)
		dispatcher = a.queue
		logger.Info("in-process email queue started",
			slog.Int("workers", cfg.NotifyWorkers),
			slog.Int("capacity", cfg.NotifyQueue),
		)
	}
	notifier := notify.New(m, dispatcher)

	// Build the dependency graph.
	creds := service.Credentials{
		Hasher:       auth.NewHasher(cfg.BcryptCost),
		ActionTokens: auth.NewActionTokenCodec(cfg.SecretKey),
		AccessTokens: auth.NewAccessTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL),
	}
	userRepo := postgres.NewUserRepository(pool)
	authService := service.NewAuthService(userRepo, creds, notifier, cfg.ActionTokenTTL, logger)

	if cfg.SingleUseTokens {
		if a.redis = connectRedis(ctx, cfg, logger); a.redis != nil {
			authService.WithTokenLedger(redisrepo.NewTokenLedger(a.redis))
		} else {
			authService.WithTokenLedger(memory.NewTokenLedger())
		}
	}

	// Bootstrap the first superuser.
	if cfg.FirstSuperuser != "" {
		created, err := authService.EnsureSuperuser(ctx, cfg.FirstSuperuser, cfg.FirstSuperuserPwd)
		if err != nil {
			return nil, fmt.Errorf("ensure superuser: %w", err)
		}
		if created {
			logger.Info("first superuser created")
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(authService, healthHandler, logger, corsConfig(cfg))
	a.httpServer = newHTTPServer(cfg.HTTPPort, router)

	ok = true
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. In-process email queue (finish accepted jobs)
// 3. Tracer (flush spans from both)
// 4. Kafka producer, Redis, PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (10s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Let queued emails go out before their spans are flushed.
	if a.queue != nil {
		queueCtx, queueCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer queueCancel()
		if err := a.queue.Close(queueCtx); err != nil {
			a.logger.Error("email queue drain error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.queue = nil
	}

	// 3. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	// 4. Release connections.
	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases whatever NewApp managed to open. It is safe to
// call on a partially built App.
func (a *App) closeResources() error {
	var errs []error

	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.queue.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		a.queue = nil
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
