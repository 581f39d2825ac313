package mailer

import (
	"context"
	"log/slog"
)

// LogSender logs messages instead of delivering them. It always succeeds.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "log sender: email not delivered",
		slog.String("to", msg.To),
		slog.String("template", string(msg.Template)),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
