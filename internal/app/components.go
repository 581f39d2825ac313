package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/identity/internal/config"
	"github.com/utafrali/identity/internal/mailer"
	"github.com/utafrali/identity/pkg/database"
	"github.com/utafrali/identity/pkg/httpclient"
	"github.com/utafrali/identity/pkg/middleware"
	"github.com/utafrali/identity/pkg/tracing"
)

const serviceVersion = "0.1.0"

func initTracer(ctx context.Context, cfg *config.Config, service string) (func(context.Context) error, error) {
	shutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    service,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	return shutdown, nil
}

func postgresConfig(cfg *config.Config) database.PostgresConfig {
	return database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

func redisConfig(cfg *config.Config) database.RedisConfig {
	return database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// connectRedis returns nil when Redis is unreachable; callers fall back to
// in-process state.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	client, err := database.NewRedisClient(ctx, redisConfig(cfg))
	if err != nil {
		logger.Warn("redis unavailable, using in-process state",
			slog.String("addr", redisConfig(cfg).Addr()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("connected to Redis", slog.String("addr", redisConfig(cfg).Addr()))
	return client
}

// newMailer builds the template renderer and the configured sender,
// instrumented with delivery metrics.
func newMailer(cfg *config.Config, logger *slog.Logger) (*mailer.Mailer, error) {
	renderer, err := mailer.NewRenderer(mailer.RendererConfig{
		ProjectName:  cfg.ProjectName,
		FrontendHost: cfg.FrontendHost,
		TokenTTL:     cfg.ActionTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	sender, err := newSender(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("email sender configured", slog.String("sender", sender.Name()))

	return mailer.New(renderer, mailer.Instrument(sender)), nil
}

func newSender(cfg *config.Config, logger *slog.Logger) (mailer.Sender, error) {
	switch cfg.EmailProvider {
	case config.EmailSMTP:
		return mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			TLS:       cfg.SMTPTLS,
			SSL:       cfg.SMTPSSL,
			Timeout:   cfg.SMTPTimeout,
			FromEmail: cfg.EmailsFromEmail,
			FromName:  cfg.EmailsFromName,
			TLSConfig: &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12},
		}), nil
	case config.EmailWebhook:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("email-webhook"),
			logger,
		)
		return mailer.NewWebhookSender(client, cfg.EmailWebhookURL, cfg.EmailsFromEmail), nil
	case config.EmailLog:
		return mailer.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxAge:         600,
		Environment:    cfg.Environment,
	}
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
