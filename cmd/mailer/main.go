package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/identity/internal/app"
	"github.com/utafrali/identity/internal/config"
	"github.com/utafrali/identity/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("identity-mailer", cfg.LogLevel)
	log.Info("starting identity mailer",
		slog.String("environment", cfg.Environment),
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("email_provider", cfg.EmailProvider),
	)

	worker, err := app.NewWorker(cfg, log)
	if err != nil {
		log.Error("failed to initialize mailer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := worker.Run(ctx); err != nil {
		log.Error("mailer error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("identity mailer stopped")
}
