package queue

import (
	"context"
	"time"
)

// Store is the key-value/list capability the relay engine runs on. The
// production implementation is Redis; tests and local development use the
// in-memory store. Implementations must be safe for concurrent use, and
// SetIfAbsent must be atomic for the lock semantics to hold.
type Store interface {
	// ListPush appends value to the tail of the named list.
	ListPush(ctx context.Context, key, value string) error
	// ListPop removes and returns the head of the list. ok is false when
	// the list is empty or missing.
	ListPop(ctx context.Context, key string) (value string, ok bool, err error)
	// ListPopBlocking blocks up to timeout waiting for a head element.
	// ok is false on timeout.
	ListPopBlocking(ctx context.Context, key string, timeout time.Duration) (value string, ok bool, err error)
	ListLength(ctx context.Context, key string) (int64, error)
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ListRemove removes up to count head-most occurrences of value,
	// returning how many were removed.
	ListRemove(ctx context.Context, key string, count int64, value string) (int64, error)

	// SetIfAbsent sets key only when absent, with a TTL. Returns whether
	// this call performed the set.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)

	// Get returns ok=false for a missing key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// ScanKeys returns all keys matching a glob pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
}
