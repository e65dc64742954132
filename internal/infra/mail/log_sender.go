package mail

import (
	"context"
	"log/slog"
)

// LogSender stands in for SMTP in development: it logs and succeeds.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{Logger: logger}
}

func (s *LogSender) Provider() string {
	return "log"
}

func (s *LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Logger.Info("email (not delivered)", "to", to, "subject", subject, "body_chars", len(body))
	return nil
}
