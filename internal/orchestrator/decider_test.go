package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/stretchr/testify/assert"
)

// stubBreaker serves fixed circuit states.
type stubBreaker struct {
	mu        sync.Mutex
	states    map[model.Processor]model.CircuitState
	successes []model.Processor
	failures  []model.Processor
}

func newStubBreaker() *stubBreaker {
	return &stubBreaker{states: map[model.Processor]model.CircuitState{
		model.ProcessorPrimary:  model.CircuitClosed,
		model.ProcessorFallback: model.CircuitClosed,
	}}
}

func (s *stubBreaker) State(ctx context.Context, proc model.Processor) model.CircuitRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CircuitRecord{State: s.states[proc]}
}

func (s *stubBreaker) RecordSuccess(ctx context.Context, proc model.Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, proc)
}

func (s *stubBreaker) RecordFailure(ctx context.Context, proc model.Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, proc)
}

func (s *stubBreaker) Successes() []model.Processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Processor(nil), s.successes...)
}

func (s *stubBreaker) Failures() []model.Processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Processor(nil), s.failures...)
}

// stubHealth serves fixed snapshots; a processor missing from present has
// no observation.
type stubHealth struct {
	mu      sync.Mutex
	snaps   map[model.Processor]model.HealthSnapshot
	present map[model.Processor]bool
}

func newStubHealth() *stubHealth {
	return &stubHealth{
		snaps:   make(map[model.Processor]model.HealthSnapshot),
		present: make(map[model.Processor]bool),
	}
}

func (s *stubHealth) set(proc model.Processor, snap model.HealthSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[proc] = snap
	s.present[proc] = true
}

func (s *stubHealth) Get(ctx context.Context, proc model.Processor) (model.HealthSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[proc], s.present[proc]
}

func TestPick_CircuitStates(t *testing.T) {
	healthy := model.HealthSnapshot{Failing: false, MinResponseTime: 45}
	failing := model.HealthSnapshot{Failing: true, MinResponseTime: 45}

	tests := []struct {
		name           string
		primaryState   model.CircuitState
		fallbackState  model.CircuitState
		primaryHealth  *model.HealthSnapshot
		fallbackHealth *model.HealthSnapshot
		want           model.Processor
	}{
		{
			name:          "primary open routes to fallback",
			primaryState:  model.CircuitOpen,
			fallbackState: model.CircuitClosed,
			want:          model.ProcessorFallback,
		},
		{
			name:          "both open fails fast to primary",
			primaryState:  model.CircuitOpen,
			fallbackState: model.CircuitOpen,
			want:          model.ProcessorPrimary,
		},
		{
			name:          "primary half-open with healthy snapshot probes primary",
			primaryState:  model.CircuitHalfOpen,
			fallbackState: model.CircuitClosed,
			primaryHealth: &healthy,
			want:          model.ProcessorPrimary,
		},
		{
			name:          "primary half-open with failing snapshot routes to fallback",
			primaryState:  model.CircuitHalfOpen,
			fallbackState: model.CircuitClosed,
			primaryHealth: &failing,
			want:          model.ProcessorFallback,
		},
		{
			name:          "primary half-open with no observation routes to fallback",
			primaryState:  model.CircuitHalfOpen,
			fallbackState: model.CircuitClosed,
			want:          model.ProcessorFallback,
		},
		{
			name:          "fallback open routes to primary",
			primaryState:  model.CircuitClosed,
			fallbackState: model.CircuitOpen,
			want:          model.ProcessorPrimary,
		},
		{
			name:           "fallback half-open with healthy snapshot probes fallback",
			primaryState:   model.CircuitClosed,
			fallbackState:  model.CircuitHalfOpen,
			fallbackHealth: &healthy,
			want:           model.ProcessorFallback,
		},
		{
			name:           "fallback half-open with failing snapshot routes to primary",
			primaryState:   model.CircuitClosed,
			fallbackState:  model.CircuitHalfOpen,
			fallbackHealth: &failing,
			want:           model.ProcessorPrimary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := newStubBreaker()
			breaker.states[model.ProcessorPrimary] = tt.primaryState
			breaker.states[model.ProcessorFallback] = tt.fallbackState

			health := newStubHealth()
			if tt.primaryHealth != nil {
				health.set(model.ProcessorPrimary, *tt.primaryHealth)
			}
			if tt.fallbackHealth != nil {
				health.set(model.ProcessorFallback, *tt.fallbackHealth)
			}

			d := NewDecider(breaker, health, 500*time.Millisecond)
			assert.Equal(t, tt.want, d.Pick(context.Background()))
		})
	}
}

func TestPick_BothClosed(t *testing.T) {
	tests := []struct {
		name           string
		primaryHealth  *model.HealthSnapshot
		fallbackHealth *model.HealthSnapshot
		want           model.Processor
	}{
		{
			name:          "fast healthy primary wins",
			primaryHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 45},
			want:          model.ProcessorPrimary,
		},
		{
			name:           "slow primary defers to healthy fallback",
			primaryHealth:  &model.HealthSnapshot{Failing: false, MinResponseTime: 1200},
			fallbackHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 250},
			want:           model.ProcessorFallback,
		},
		{
			name:           "failing primary defers to healthy fallback",
			primaryHealth:  &model.HealthSnapshot{Failing: true, MinResponseTime: 45},
			fallbackHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 250},
			want:           model.ProcessorFallback,
		},
		{
			name:           "unknown primary defers to healthy fallback",
			fallbackHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 250},
			want:           model.ProcessorFallback,
		},
		{
			name:          "slow primary with failing fallback stays on primary",
			primaryHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 1200},
			fallbackHealth: &model.HealthSnapshot{
				Failing: true, MinResponseTime: 250,
			},
			want: model.ProcessorPrimary,
		},
		{
			name: "no observations default to primary",
			want: model.ProcessorPrimary,
		},
		{
			name:          "latency cutoff is exclusive",
			primaryHealth: &model.HealthSnapshot{Failing: false, MinResponseTime: 500},
			want:          model.ProcessorPrimary, // 500 >= cutoff and fallback unknown
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := newStubHealth()
			if tt.primaryHealth != nil {
				health.set(model.ProcessorPrimary, *tt.primaryHealth)
			}
			if tt.fallbackHealth != nil {
				health.set(model.ProcessorFallback, *tt.fallbackHealth)
			}

			d := NewDecider(newStubBreaker(), health, 500*time.Millisecond)
			assert.Equal(t, tt.want, d.Pick(context.Background()))
		})
	}
}
