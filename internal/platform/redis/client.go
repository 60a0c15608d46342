package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect parses url, creates a client and pings it, retrying up to attempts
// times with delay between tries.
func Connect(ctx context.Context, url string, attempts int, delay time.Duration, logger *slog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	logger.Info("redis connection options configured", "address", opts.Addr, "db", opts.DB)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client := goredis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("connected to redis", "attempt", attempt)
			return client, nil
		}

		_ = client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, attempts, err)
		logger.Warn("redis ping failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", attempts, lastErr)
}
