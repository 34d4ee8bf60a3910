// Package health maintains the distributed cached view of each upstream
// processor's advertised health.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/store"
)

const keyPrefix = "health_check:"

var errNoObservation = errors.New("no health observation")

// Prober fetches a live snapshot from one upstream processor.
type Prober interface {
	FetchHealth(ctx context.Context) (model.HealthSnapshot, bool)
}

// Cache reads health snapshots from the shared store and refreshes them
// from the upstream on miss. Concurrent misses for the same processor on
// one replica collapse into a single probe; the store write happens behind
// the request path.
type Cache struct {
	store   store.Store
	probers map[model.Processor]Prober
	ttl     time.Duration

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewCache builds the cache over the given store and probers.
func NewCache(st store.Store, probers map[model.Processor]Prober, ttl time.Duration) *Cache {
	return &Cache{
		store:   st,
		probers: probers,
		ttl:     ttl,
	}
}

// Get returns the processor's health snapshot, from the shared store when a
// fresh one exists, otherwise from a live probe. ok is false when no
// observation could be obtained; callers treat that as "not confidently
// healthy".
func (c *Cache) Get(ctx context.Context, proc model.Processor) (model.HealthSnapshot, bool) {
	if snap, ok := c.lookup(ctx, proc); ok {
		return snap, true
	}

	v, err, _ := c.group.Do(string(proc), func() (any, error) {
		// Another caller may have populated the store while this one waited
		// for the slot.
		if snap, ok := c.lookup(ctx, proc); ok {
			return snap, nil
		}

		prober, ok := c.probers[proc]
		if !ok {
			return nil, errNoObservation
		}
		snap, ok := prober.FetchHealth(ctx)
		if !ok {
			return nil, errNoObservation
		}

		c.populate(proc, snap)
		return snap, nil
	})
	if err != nil {
		return model.HealthSnapshot{}, false
	}
	return v.(model.HealthSnapshot), true
}

// lookup reads the cached snapshot. Store errors degrade to a miss.
func (c *Cache) lookup(ctx context.Context, proc model.Processor) (model.HealthSnapshot, bool) {
	raw, ok, err := c.store.Get(ctx, keyPrefix+string(proc))
	if err != nil {
		slog.Warn("health_cache_read_failed", "processor", proc, "error", err)
		return model.HealthSnapshot{}, false
	}
	if !ok {
		return model.HealthSnapshot{}, false
	}

	var snap model.HealthSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		slog.Warn("health_cache_corrupt_snapshot", "processor", proc, "error", err)
		return model.HealthSnapshot{}, false
	}
	return snap, true
}

// populate writes the snapshot to the shared store without blocking the
// caller; the hit path must not wait on a store write.
func (c *Cache) populate(proc model.Processor, snap model.HealthSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.store.Set(ctx, keyPrefix+string(proc), string(raw), c.ttl); err != nil {
			slog.Warn("health_cache_write_failed", "processor", proc, "error", err)
		}
	}()
}

// Close waits for in-flight cache writes to land. New writes started after
// Close begins are the caller's responsibility to avoid.
func (c *Cache) Close() {
	c.wg.Wait()
}
