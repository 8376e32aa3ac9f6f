package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// Options configure the shared Redis client.
type Options struct {
	Addr        string
	PingTimeout time.Duration
}

// New creates the Redis client behind sessions and the reload bus. The
// client is returned even when the ping fails so the caller can decide
// whether to keep running.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
	})
	if err := Ping(ctx, client, opts.PingTimeout); err != nil {
		return client, err
	}
	return client, nil
}

// Ping checks the connection within timeout.
func Ping(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("platform/cache: ping: %w", err)
	}
	return nil
}
