package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/campus-assistant/internal/retry"
)

// loggerFor returns c's own logger when it exposes one.
func loggerFor(c Chatter) *slog.Logger {
	if l, ok := c.(interface{ Logger() *slog.Logger }); ok && l.Logger() != nil {
		return l.Logger()
	}
	return slog.Default()
}

// SafeChat calls c.Chat and logs any failure instead of returning it.
// A nil response means the call failed.
func SafeChat(ctx context.Context, c Chatter, userID, message string) *AssistantResponse {
	resp, err := c.Chat(ctx, userID, message)
	if err != nil {
		loggerFor(c).Error("Chat request failed", "user_id", userID, "error", err)
		return nil
	}
	return resp
}

// ChatWithRetry calls c.Chat under policy. With retry.DefaultPolicy it
// makes up to three attempts, waiting 1s then 2s, and retries every error.
// When attempts run out the returned *retry.ExhaustedError wraps the last
// failure, so errors.As still reaches the *StatusError or *TransportError.
func ChatWithRetry(ctx context.Context, c Chatter, userID, message string, policy retry.Policy) (*AssistantResponse, error) {
	logger := loggerFor(c)
	next := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("Chat request failed, retrying",
			"user_id", userID,
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if next != nil {
			next(attempt, delay, err)
		}
	}

	return retry.Do(ctx, policy, func(ctx context.Context, _ int) (*AssistantResponse, error) {
		return c.Chat(ctx, userID, message)
	})
}
