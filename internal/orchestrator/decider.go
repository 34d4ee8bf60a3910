package orchestrator

import (
	"context"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
)

// CircuitRecorder is the breaker surface the dispatch path needs.
type CircuitRecorder interface {
	State(ctx context.Context, proc model.Processor) model.CircuitRecord
	RecordSuccess(ctx context.Context, proc model.Processor)
	RecordFailure(ctx context.Context, proc model.Processor)
}

// HealthReader is the cached health surface the routing decision needs.
type HealthReader interface {
	Get(ctx context.Context, proc model.Processor) (model.HealthSnapshot, bool)
}

// Decider picks which processor a dispatch attempt should try first. It
// reads circuit state and cached health but mutates nothing beyond the
// breaker's lazy open-to-half-open promotion.
type Decider struct {
	breaker       CircuitRecorder
	health        HealthReader
	latencyCutoff time.Duration
}

// NewDecider builds the routing decision over the breaker and health cache.
func NewDecider(breaker CircuitRecorder, health HealthReader, latencyCutoff time.Duration) *Decider {
	return &Decider{
		breaker:       breaker,
		health:        health,
		latencyCutoff: latencyCutoff,
	}
}

// Pick returns the processor to attempt first. The primary wins every tie:
// it is the cheaper processor, and an unknown health observation is never
// preferred over a confidently healthy one.
func (d *Decider) Pick(ctx context.Context) model.Processor {
	primary, fallback := d.bothStates(ctx)

	switch {
	case primary.State == model.CircuitOpen && fallback.State != model.CircuitOpen:
		return model.ProcessorFallback

	case primary.State == model.CircuitOpen:
		// Both open: fail fast toward the cheaper processor rather than
		// gamble the higher fee on a processor believed equally dead.
		return model.ProcessorPrimary

	case primary.State == model.CircuitHalfOpen:
		// Probe recovery with live traffic only when health agrees.
		if snap, ok := d.health.Get(ctx, model.ProcessorPrimary); ok && !snap.Failing {
			return model.ProcessorPrimary
		}
		return model.ProcessorFallback

	case fallback.State == model.CircuitOpen:
		return model.ProcessorPrimary

	case fallback.State == model.CircuitHalfOpen:
		if snap, ok := d.health.Get(ctx, model.ProcessorFallback); ok && !snap.Failing {
			return model.ProcessorFallback
		}
		return model.ProcessorPrimary
	}

	return d.pickBothClosed(ctx)
}

// pickBothClosed fetches both health snapshots concurrently and prefers the
// primary when it is confidently healthy and fast enough; the fallback
// result is only consulted when the primary disqualifies itself.
func (d *Decider) pickBothClosed(ctx context.Context) model.Processor {
	type observation struct {
		snap model.HealthSnapshot
		ok   bool
	}

	primaryCh := make(chan observation, 1)
	fallbackCh := make(chan observation, 1)
	go func() {
		snap, ok := d.health.Get(ctx, model.ProcessorPrimary)
		primaryCh <- observation{snap, ok}
	}()
	go func() {
		snap, ok := d.health.Get(ctx, model.ProcessorFallback)
		fallbackCh <- observation{snap, ok}
	}()

	primary := <-primaryCh
	if primary.ok && !primary.snap.Failing &&
		time.Duration(primary.snap.MinResponseTime)*time.Millisecond < d.latencyCutoff {
		return model.ProcessorPrimary
	}

	fallback := <-fallbackCh
	if fallback.ok && !fallback.snap.Failing {
		return model.ProcessorFallback
	}

	// Nothing is confidently healthy: default to the cheapest.
	return model.ProcessorPrimary
}

// bothStates reads both circuit records in parallel.
func (d *Decider) bothStates(ctx context.Context) (model.CircuitRecord, model.CircuitRecord) {
	primaryCh := make(chan model.CircuitRecord, 1)
	go func() {
		primaryCh <- d.breaker.State(ctx, model.ProcessorPrimary)
	}()
	fallback := d.breaker.State(ctx, model.ProcessorFallback)
	return <-primaryCh, fallback
}
