package ports

import (
	"context"
	"log/slog"
)

// EmailClient is consumed by routes that need to deliver codes or
// notifications; the Token Service never calls it. No provider integration
// is in scope, so the only implementation logs and returns nil.
type EmailClient interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// LoggingEmailClient discards the message after logging it at info level.
type LoggingEmailClient struct {
	Log *slog.Logger
}

func NewLoggingEmailClient(log *slog.Logger) *LoggingEmailClient {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingEmailClient{Log: log}
}

func (c *LoggingEmailClient) SendEmail(ctx context.Context, to, subject, body string) error {
	c.Log.InfoContext(ctx, "email.send", "to", to, "subject", subject, "body_len", len(body))
	return nil
}
