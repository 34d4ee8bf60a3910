package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local runs. SetErr forces
// every operation to fail, simulating an unreachable store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	err     error
	now     func() time.Time
}

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewMemoryWithClock creates a store whose expiry checks use the given
// clock, for TTL tests.
func NewMemoryWithClock(clock func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     clock,
	}
}

// SetErr makes all subsequent operations return err. Pass nil to recover.
func (m *Memory) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) IncrBy(ctx context.Context, key string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	current, _ := strconv.ParseInt(m.entries[key].value, 10, 64)
	m.entries[key] = entry{value: strconv.FormatInt(current+delta, 10)}
	return nil
}

func (m *Memory) IncrByFloat(ctx context.Context, key string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	current, _ := strconv.ParseFloat(m.entries[key].value, 64)
	m.entries[key] = entry{value: strconv.FormatFloat(current+delta, 'f', -1, 64)}
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}
