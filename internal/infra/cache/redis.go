// Package cache implements the secondary store on Redis.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"passport/config"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

const (
	maxConnectRetries    = 5
	initialRetryInterval = time.Second
	connectPingTimeout   = 2 * time.Second
	ensureTimeout        = 5 * time.Second
	ensurePollInterval   = 100 * time.Millisecond
)

// incrScript increments a counter and attaches the TTL only when the counter
// is first created, so a window never extends itself.
var incrScript = redis.NewScript(`
local value = redis.call('INCR', KEYS[1])
if value == 1 and tonumber(ARGV[1]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return value
`)

// redisStore implements service.SecondaryStore.
// The connection is supervised: operations that hit a broken connection mark
// the store unhealthy and kick off a single-flight reconnect loop with
// exponential backoff, while callers wait a bounded time for recovery.
type redisStore struct {
	client *redis.Client
	logger *slog.Logger

	healthy      atomic.Bool
	reconnecting atomic.Bool
}

// NewSecondaryStore connects to Redis and returns the store. The initial
// connection retries with exponential backoff; failing all retries is fatal
// so the process never comes up without its cache.
func NewSecondaryStore(cfg *config.Config, logger *slog.Logger) (service.SecondaryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store := &redisStore{
		client: client,
		logger: logger,
	}

	if !store.connectWithRetry() {
		return nil, errors.Errorf("failed to connect to redis at %s after %d attempts", cfg.Redis.Addr(), maxConnectRetries)
	}

	return store, nil
}

// connectWithRetry pings until the connection is confirmed, doubling the wait
// between attempts. Returns false once all attempts are exhausted.
func (s *redisStore) connectWithRetry() bool {
	interval := initialRetryInterval

	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
		err := s.client.Ping(ctx).Err()
		cancel()

		if err == nil {
			s.healthy.Store(true)

			return true
		}

		s.logger.Warn("redis connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("maxRetries", maxConnectRetries),
			slog.Any("error", err))

		if attempt < maxConnectRetries {
			time.Sleep(interval)
			interval *= 2
		}
	}

	return false
}

// markUnhealthy flags the store and starts a single reconnect loop.
func (s *redisStore) markUnhealthy() {
	s.healthy.Store(false)

	if s.reconnecting.CompareAndSwap(false, true) {
		go func() {
			defer s.reconnecting.Store(false)

			if !s.connectWithRetry() {
				s.logger.Error("failed to reconnect to redis after all retries")
			}
		}()
	}
}

// ensureConnected waits a bounded time for the store to become healthy, so a
// brief blip degrades into latency instead of an immediate error.
func (s *redisStore) ensureConnected(ctx context.Context) error {
	if s.healthy.Load() {
		return nil
	}

	s.markUnhealthy()

	deadline := time.Now().Add(ensureTimeout)
	for time.Now().Before(deadline) {
		if s.healthy.Load() {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for redis connection")
		case <-time.After(ensurePollInterval):
		}
	}

	return domainerrors.ErrDependencyUnavailable.WrapMessage("redis connection unavailable")
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return "", err
	}

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", service.ErrKeyNotFound
	}
	if err != nil {
		s.markUnhealthy()

		return "", errors.Wrap(err, "redis get")
	}

	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.markUnhealthy()

		return errors.Wrap(err, "redis set")
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.markUnhealthy()

		return errors.Wrap(err, "redis delete")
	}

	return nil
}

func (s *redisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return 0, err
	}

	value, err := incrScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		s.markUnhealthy()

		return 0, errors.Wrap(err, "redis incr")
	}

	return value, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.markUnhealthy()

		return errors.Wrap(err, "redis ping")
	}

	s.healthy.Store(true)

	return nil
}

func (s *redisStore) Close() error {
	return errors.Wrap(s.client.Close(), "redis close")
}
