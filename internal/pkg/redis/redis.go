// Package redis provides Redis connection utilities.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediq/patient-queue/internal/pkg/backoff"
	goredis "github.com/redis/go-redis/v9"
)

// Config contains Redis connection configuration.
type Config struct {
	// URL in redis://[user:password@]host:port/db form. rediss:// enables TLS.
	URL             string
	ConnectAttempts int
}

// Connect creates a client and pings the server, retrying with exponential
// backoff up to ConnectAttempts times.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	attempts := max(cfg.ConnectAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			slog.Info("connected to redis", "addr", opts.Addr, "attempts", attempt)
			return client, nil
		}

		if attempt == attempts {
			break
		}
		delay := backoff.Delay(attempt)
		slog.Warn("redis not ready, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", delay,
			"error", lastErr,
		)
		if !backoff.Sleep(ctx, delay) {
			_ = client.Close()
			return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("connect to redis after %d attempts: %w", attempts, lastErr)
}
