// Package redisconn dials the session/counter store with a bounded retry
// loop instead of an open-ended reconnect callback.
package redisconn

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxAttempts    = 5
	initialBackoff = 500 * time.Millisecond
)

// Connect parses the URL and pings the server, retrying with exponential
// backoff up to maxAttempts before giving up.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		lastErr = err
		log.Printf("redis: ping attempt %d/%d failed: %v", attempt, maxAttempts, err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis unreachable after %d attempts: %w", maxAttempts, lastErr)
}
