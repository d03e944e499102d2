package keylock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LockClient is the subset of pkg/redis.Client the distributed locker needs.
type LockClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// RedisConfig tunes the distributed lock. TTL bounds how long a crashed
// holder can block a term; a live holder extends its lease every TTL/3 until
// it unlocks. Retry is the initial poll interval, doubled up to MaxRetry
// while waiting.
type RedisConfig struct {
	KeySpace string
	TTL      time.Duration
	Retry    time.Duration
	MaxRetry time.Duration
}

// Redis is a Locker shared by every indexer replica pointing at the same
// Redis instance.
type Redis struct {
	client LockClient
	cfg    RedisConfig
	logger *slog.Logger
}

func NewRedis(client LockClient, cfg RedisConfig) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 10 * time.Millisecond
	}
	if cfg.MaxRetry < cfg.Retry {
		cfg.MaxRetry = 32 * cfg.Retry
	}
	return &Redis{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "redis-keylock"),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.cfg.KeySpace + key
	token := uuid.NewString()
	delay := r.cfg.Retry
	for {
		ok, err := r.client.TryLock(ctx, lockKey, token, r.cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("locking term %q: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > r.cfg.MaxRetry {
			delay = r.cfg.MaxRetry
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(key, lockKey, token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			// The caller's ctx may already be done; release on a fresh deadline.
			ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TTL)
			defer cancel()
			if err := r.client.Release(ctx, lockKey, token); err != nil {
				r.logger.Warn("term lock release failed", "term", key, "error", err)
			}
		})
	}, nil
}

// keepAlive extends the lease on lockKey until stop is closed.
func (r *Redis) keepAlive(key, lockKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := r.cfg.TTL / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		ok, err := r.client.Refresh(ctx, lockKey, token, r.cfg.TTL)
		cancel()
		switch {
		case err != nil:
			r.logger.Warn("term lock refresh failed", "term", key, "error", err)
		case !ok:
			r.logger.Error("term lock lease lost", "term", key)
			return
		}
	}
}
