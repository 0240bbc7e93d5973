package ports

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggingEmailClient_SendEmail(t *testing.T) {
	c := NewLoggingEmailClient(slog.New(slog.DiscardHandler))
	if err := c.SendEmail(context.Background(), "a@b.com", "subject", "body"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
}
