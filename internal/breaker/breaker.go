// Package breaker implements the per-processor circuit breaker whose state
// lives in the shared store. The breaker is advisory: it shapes routing,
// but a store outage never fails a payment.
package breaker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/store"
)

const (
	keyPrefix = "circuit_breaker:"
	recordTTL = 10 * time.Minute
)

// Breaker runs the closed/open/half-open state machine for both
// processors. Operations are read-modify-write with last-writer-wins;
// transitions are monotone within an epoch, so concurrent replicas
// converge without a distributed lock.
type Breaker struct {
	store            store.Store
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

// New creates a breaker with the given thresholds over the shared store.
func New(st store.Store, failureThreshold, successThreshold int, cooldown time.Duration) *Breaker {
	return NewWithClock(st, failureThreshold, successThreshold, cooldown, time.Now)
}

// NewWithClock creates a breaker using the given clock, for tests that
// advance time across the cooldown.
func NewWithClock(st store.Store, failureThreshold, successThreshold int, cooldown time.Duration, clock func() time.Time) *Breaker {
	return &Breaker{
		store:            st,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		now:              clock,
	}
}

// State returns the processor's current circuit record, promoting an open
// breaker to half-open once the cooldown has elapsed. The promotion is
// persisted so other replicas observe it.
func (b *Breaker) State(ctx context.Context, proc model.Processor) model.CircuitRecord {
	rec := b.load(ctx, proc)
	if rec.State == model.CircuitOpen && b.now().Sub(rec.LastStateChangeAt) > b.cooldown {
		rec.State = model.CircuitHalfOpen
		rec.FailureCount = 0
		rec.SuccessCount = 0
		rec.LastStateChangeAt = b.now()
		b.save(ctx, proc, rec)
		slog.Info("circuit_half_open", "processor", proc)
	}
	return rec
}

// RecordSuccess feeds one successful dispatch into the state machine.
// Closed: no-op. Open: dropped. Half-open: counts toward closing.
func (b *Breaker) RecordSuccess(ctx context.Context, proc model.Processor) {
	rec := b.State(ctx, proc)
	if rec.State != model.CircuitHalfOpen {
		return
	}

	rec.SuccessCount++
	if rec.SuccessCount >= b.successThreshold {
		rec.State = model.CircuitClosed
		rec.FailureCount = 0
		rec.SuccessCount = 0
		rec.LastStateChangeAt = b.now()
		slog.Info("circuit_closed", "processor", proc)
	}
	b.save(ctx, proc, rec)
}

// RecordFailure feeds one failed dispatch into the state machine.
// Closed: counts toward opening. Open: dropped. Half-open: reopens.
func (b *Breaker) RecordFailure(ctx context.Context, proc model.Processor) {
	rec := b.State(ctx, proc)
	now := b.now()

	switch rec.State {
	case model.CircuitOpen:
		return
	case model.CircuitClosed:
		rec.FailureCount++
		rec.LastFailureAt = now
		if rec.FailureCount >= b.failureThreshold {
			rec.State = model.CircuitOpen
			rec.FailureCount = 0
			rec.SuccessCount = 0
			rec.LastStateChangeAt = now
			slog.Warn("circuit_opened", "processor", proc)
		}
	case model.CircuitHalfOpen:
		rec.State = model.CircuitOpen
		rec.FailureCount = 0
		rec.SuccessCount = 0
		rec.LastFailureAt = now
		rec.LastStateChangeAt = now
		slog.Warn("circuit_reopened", "processor", proc)
	}
	b.save(ctx, proc, rec)
}

// load reads the persisted record; store errors and absent or corrupt
// records all yield the default closed record.
func (b *Breaker) load(ctx context.Context, proc model.Processor) model.CircuitRecord {
	raw, ok, err := b.store.Get(ctx, keyPrefix+string(proc))
	if err != nil {
		slog.Warn("circuit_read_failed", "processor", proc, "error", err)
		return model.DefaultCircuitRecord(b.now())
	}
	if !ok {
		return model.DefaultCircuitRecord(b.now())
	}

	var rec model.CircuitRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		slog.Warn("circuit_corrupt_record", "processor", proc, "error", err)
		return model.DefaultCircuitRecord(b.now())
	}
	return rec
}

// save persists the record, refreshing its TTL. Write failures are logged
// and dropped; the next observation rewrites the state.
func (b *Breaker) save(ctx context.Context, proc model.Processor, rec model.CircuitRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := b.store.Set(ctx, keyPrefix+string(proc), string(raw), recordTTL); err != nil {
		slog.Warn("circuit_write_failed", "processor", proc, "error", err)
	}
}
