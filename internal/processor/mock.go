package processor

import (
	"context"
	"sync"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
)

// ScriptedUpstream is an in-process Upstream double with scripted payment
// outcomes and a settable health snapshot. It records every payload it
// receives so tests can assert on attempt counts and wire contents.
type ScriptedUpstream struct {
	id model.Processor

	mu          sync.Mutex
	script      []error
	payments    []model.EnrichedPayment
	healthSnap  model.HealthSnapshot
	healthOK    bool
	healthDelay time.Duration
	healthCalls int
}

// NewScriptedUpstream creates a double that approves every payment and
// reports no health observation until scripted otherwise.
func NewScriptedUpstream(id model.Processor) *ScriptedUpstream {
	return &ScriptedUpstream{id: id}
}

// ScriptPayments sets the outcomes of successive PostPayment calls. The
// last outcome repeats once the script is exhausted.
func (s *ScriptedUpstream) ScriptPayments(outcomes ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = outcomes
}

// SetHealth sets the snapshot FetchHealth returns. ok=false simulates a
// failed or malformed probe.
func (s *ScriptedUpstream) SetHealth(snap model.HealthSnapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthSnap = snap
	s.healthOK = ok
}

// SetHealthDelay makes each probe block for d before answering, for
// coalescing tests.
func (s *ScriptedUpstream) SetHealthDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthDelay = d
}

func (s *ScriptedUpstream) ID() model.Processor {
	return s.id
}

func (s *ScriptedUpstream) PostPayment(ctx context.Context, payment model.EnrichedPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, payment)
	if len(s.script) == 0 {
		return nil
	}
	outcome := s.script[0]
	if len(s.script) > 1 {
		s.script = s.script[1:]
	}
	return outcome
}

func (s *ScriptedUpstream) FetchHealth(ctx context.Context) (model.HealthSnapshot, bool) {
	s.mu.Lock()
	s.healthCalls++
	delay := s.healthDelay
	snap, ok := s.healthSnap, s.healthOK
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.HealthSnapshot{}, false
		}
	}
	return snap, ok
}

// Payments returns a copy of every payload received so far.
func (s *ScriptedUpstream) Payments() []model.EnrichedPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EnrichedPayment, len(s.payments))
	copy(out, s.payments)
	return out
}

// PaymentCalls returns how many payment POSTs were attempted.
func (s *ScriptedUpstream) PaymentCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// HealthCalls returns how many probes were issued.
func (s *ScriptedUpstream) HealthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthCalls
}
