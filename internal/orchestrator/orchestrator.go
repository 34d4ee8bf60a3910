// Package orchestrator implements the processor-selection and dispatch
// engine: it routes each payment to the preferred upstream processor,
// falls back across processors, and retries within a bounded budget.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/metrics"
	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/processor"
)

// ErrExhausted reports that both processors failed for every attempt in
// the retry budget. It is the only dispatch error the ingress sees.
var ErrExhausted = errors.New("payment dispatch exhausted all processors")

// SummaryRecorder records confirmed payments for the summary counters.
type SummaryRecorder interface {
	Record(proc model.Processor, amount float64)
}

// Orchestrator executes payment dispatches against the two upstream
// processors.
type Orchestrator struct {
	decider    *Decider
	breaker    CircuitRecorder
	upstreams  map[model.Processor]processor.Upstream
	summary    SummaryRecorder
	metrics    *metrics.Metrics
	maxRetries int
	backoffs   []time.Duration
	now        func() time.Time
}

// New creates an Orchestrator. backoffs holds the waits between retry
// attempts; when the retry index outruns it, the last entry repeats.
func New(
	decider *Decider,
	breaker CircuitRecorder,
	upstreams map[model.Processor]processor.Upstream,
	summary SummaryRecorder,
	mets *metrics.Metrics,
	maxRetries int,
	backoffs []time.Duration,
) *Orchestrator {
	return &Orchestrator{
		decider:    decider,
		breaker:    breaker,
		upstreams:  upstreams,
		summary:    summary,
		metrics:    mets,
		maxRetries: maxRetries,
		backoffs:   backoffs,
		now:        time.Now,
	}
}

// ProcessPayment dispatches one payment and returns the processor that
// accepted it. The enriched requestedAt is fixed here and reused across
// every retry. ErrExhausted means both processors failed for all attempts;
// a context error means the caller went away mid-dispatch.
func (o *Orchestrator) ProcessPayment(ctx context.Context, req model.PaymentRequest) (model.Processor, error) {
	started := o.now()
	payment := model.Enrich(req, started)

	for attempt := 0; attempt < o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		preferred := o.decider.Pick(ctx)
		for _, proc := range [2]model.Processor{preferred, preferred.Other()} {
			if !o.attempt(ctx, proc, payment) {
				continue
			}

			// Breaker first, then summary: a summary row must never exist
			// for a payment the breaker saw fail.
			o.breaker.RecordSuccess(ctx, proc)
			o.summary.Record(proc, req.Amount)
			o.metrics.ObserveDispatch(true, o.now().Sub(started))
			slog.Info("payment_dispatched",
				"correlation_id", req.CorrelationID,
				"processor", proc,
				"attempt", attempt+1,
			)
			return proc, nil
		}

		if attempt < o.maxRetries-1 {
			if err := sleep(ctx, o.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}

	o.metrics.ObserveDispatch(false, o.now().Sub(started))
	slog.Warn("retries_exhausted",
		"correlation_id", req.CorrelationID,
		"attempts", o.maxRetries,
	)
	return "", ErrExhausted
}

// attempt posts the payment to one processor and records the outcome in
// the breaker. Failures are logged and absorbed; the caller moves on.
func (o *Orchestrator) attempt(ctx context.Context, proc model.Processor, payment model.EnrichedPayment) bool {
	upstream := o.upstreams[proc]
	err := upstream.PostPayment(ctx, payment)
	o.metrics.ObserveAttempt(proc, err == nil)
	if err != nil {
		o.breaker.RecordFailure(ctx, proc)
		slog.Warn("payment_attempt_failed",
			"correlation_id", payment.CorrelationID,
			"processor", proc,
			"error", err,
		)
		return false
	}
	return true
}

func (o *Orchestrator) backoff(attempt int) time.Duration {
	if len(o.backoffs) == 0 {
		return 0
	}
	if attempt >= len(o.backoffs) {
		attempt = len(o.backoffs) - 1
	}
	return o.backoffs[attempt]
}

// sleep waits for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
