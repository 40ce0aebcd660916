package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Key joins a namespace and parts with ':'.
func Key(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}

// Incr bumps the counter at key and returns the new value. The first increment sets the
// key to expire after window, so the counter covers a fixed window.
func Incr(ctx context.Context, client redis.Cmdable, key string, window time.Duration) (int64, error) {
	n, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("platform/cache: incr %s: %w", key, err)
	}
	if n == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("platform/cache: expire %s: %w", key, err)
		}
	}
	return n, nil
}
