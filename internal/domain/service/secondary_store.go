package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by SecondaryStore.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found in secondary store")

// SecondaryStore is the key-value cache sitting beside the relational store.
// It holds the session cookie cache, rate-limit counters and send cooldowns.
// It is advisory: the relational store always wins on conflict, and callers
// must tolerate DependencyUnavailable errors on every operation.
type SecondaryStore interface {
	// Get retrieves a value, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL. A zero TTL stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Incr atomically increments a counter, setting the TTL when the counter
	// is created. Returns the value after increment. Shared across instances,
	// so rate limiting stays correct under concurrency.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}
