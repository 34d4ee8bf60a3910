// Package store abstracts the shared key/value store the gateway replicas
// coordinate through. Every consumer treats store errors as "record absent"
// and keeps dispatching; the store is advisory for routing, authoritative
// only for the summary counters.
package store

import (
	"context"
	"time"
)

// Store is the coordination surface the gateway needs: string get/set with
// TTL, atomic counters, and delete.
type Store interface {
	// Get returns the value at key, reporting whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// IncrBy atomically adds delta to the integer counter at key.
	IncrBy(ctx context.Context, key string, delta int64) error
	// IncrByFloat atomically adds delta to the float counter at key.
	IncrByFloat(ctx context.Context, key string, delta float64) error
	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
}
