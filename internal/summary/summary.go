// Package summary keeps the per-processor aggregate counters consulted by
// the payments-summary endpoint.
package summary

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/store"
)

const keyPrefix = "payment_summary:"

// Summary maintains two atomic counters per processor in the shared store.
// Increments are fired behind the request path; the HTTP response never
// waits on the counter write.
type Summary struct {
	store store.Store
	wg    sync.WaitGroup
}

// New creates the summary layer over the shared store.
func New(st store.Store) *Summary {
	return &Summary{store: st}
}

// Record adds one confirmed payment for the processor. Errors are logged
// and dropped; the counters are best-effort by contract.
func (s *Summary) Record(proc model.Processor, amount float64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := s.store.IncrBy(ctx, requestsKey(proc), 1); err != nil {
			slog.Warn("summary_count_write_failed", "processor", proc, "error", err)
			return
		}
		if err := s.store.IncrByFloat(ctx, amountKey(proc), amount); err != nil {
			slog.Warn("summary_amount_write_failed", "processor", proc, "error", err)
		}
	}()
}

// Totals returns the aggregates for both processors. The from/to window is
// accepted for API compatibility; no time bucketing is kept, so the global
// totals are returned for any window.
func (s *Summary) Totals(ctx context.Context, from, to time.Time) model.SummaryResponse {
	return model.SummaryResponse{
		Default:  s.totalsFor(ctx, model.ProcessorPrimary),
		Fallback: s.totalsFor(ctx, model.ProcessorFallback),
	}
}

// Reset deletes all counters. Test environments only.
func (s *Summary) Reset(ctx context.Context) error {
	return s.store.Del(ctx,
		requestsKey(model.ProcessorPrimary), amountKey(model.ProcessorPrimary),
		requestsKey(model.ProcessorFallback), amountKey(model.ProcessorFallback),
	)
}

// Close waits for in-flight counter writes to land.
func (s *Summary) Close() {
	s.wg.Wait()
}

func (s *Summary) totalsFor(ctx context.Context, proc model.Processor) model.ProcessorSummary {
	var out model.ProcessorSummary

	if raw, ok, err := s.store.Get(ctx, requestsKey(proc)); err != nil {
		slog.Warn("summary_count_read_failed", "processor", proc, "error", err)
	} else if ok {
		out.TotalRequests, _ = strconv.ParseInt(raw, 10, 64)
	}

	if raw, ok, err := s.store.Get(ctx, amountKey(proc)); err != nil {
		slog.Warn("summary_amount_read_failed", "processor", proc, "error", err)
	} else if ok {
		amount, _ := strconv.ParseFloat(raw, 64)
		out.TotalAmount = round2(amount)
	}

	return out
}

func requestsKey(proc model.Processor) string {
	return keyPrefix + string(proc) + ":requests"
}

func amountKey(proc model.Processor) string {
	return keyPrefix + string(proc) + ":amount"
}

// round2 clamps accumulated float error back to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
