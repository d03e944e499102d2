// Package redis provides a thin wrapper around go-redis/v9 with connection
// pooling and the token-checked SET NX lock primitives used to serialize
// term updates across indexer replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only while it still holds the caller's
// token, so an expired lock re-acquired by another replica is never freed.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lock's expiry only while it still holds the
// caller's token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// ErrLockNotHeld is returned by Release when the key no longer carries the
// caller's token.
var ErrLockNotHeld = errors.New("redis lock not held")

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// TryLock sets key to token if it does not exist yet, expiring after ttl. It
// reports whether the lock was acquired.
func (c *Client) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	return ok, nil
}

// Refresh resets the expiry of key to ttl if it still holds token. It reports
// false once the lock has expired or passed to another holder.
func (c *Client) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, c.rdb, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("refreshing lock %s: %w", key, err)
	}
	return n == 1, nil
}

// Release deletes key if it still holds token.
func (c *Client) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("releasing lock %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("releasing lock %s: %w", key, ErrLockNotHeld)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
