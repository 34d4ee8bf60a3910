package model

import "time"

// Processor identifies one of the two upstream payment processors.
type Processor string

const (
	// ProcessorPrimary is the lower-fee processor, preferred when healthy.
	ProcessorPrimary Processor = "primary"
	// ProcessorFallback is the higher-fee processor, used when the primary
	// is degraded.
	ProcessorFallback Processor = "fallback"
)

// Other returns the alternate processor identity.
func (p Processor) Other() Processor {
	if p == ProcessorPrimary {
		return ProcessorFallback
	}
	return ProcessorPrimary
}

// PaymentRequest represents an incoming, validated payment request.
// CorrelationID is the caller-supplied idempotency key; the upstream
// processor deduplicates repeated correlation ids, not this gateway.
type PaymentRequest struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
}

// RequestedAtLayout is the UTC millisecond-precision layout the upstream
// processors expect for the requestedAt field.
const RequestedAtLayout = "2006-01-02T15:04:05.000Z"

// EnrichedPayment is the upstream wire form of a payment. RequestedAt is
// fixed when the dispatch starts and reused verbatim across retries so the
// upstream sees a stable creation time.
type EnrichedPayment struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
	RequestedAt   string  `json:"requestedAt"`
}

// Enrich builds the upstream payload for a payment request, stamping it
// with the given time.
func Enrich(req PaymentRequest, now time.Time) EnrichedPayment {
	return EnrichedPayment{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAt:   now.UTC().Format(RequestedAtLayout),
	}
}

// HealthSnapshot is one observation of an upstream processor's advertised
// health, as returned by its service-health endpoint.
type HealthSnapshot struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

// CircuitState is the persisted circuit breaker state for one processor.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitRecord is the shared-store representation of one processor's
// circuit breaker. SuccessCount is only meaningful in the half-open state.
type CircuitRecord struct {
	State             CircuitState `json:"state"`
	FailureCount      int          `json:"failureCount"`
	SuccessCount      int          `json:"successCount"`
	LastFailureAt     time.Time    `json:"lastFailureAt"`
	LastStateChangeAt time.Time    `json:"lastStateChangeAt"`
}

// DefaultCircuitRecord is the record assumed when none is persisted:
// a closed breaker with zeroed counters.
func DefaultCircuitRecord(now time.Time) CircuitRecord {
	return CircuitRecord{
		State:             CircuitClosed,
		LastStateChangeAt: now,
	}
}

// ProcessorSummary is the aggregate counter pair for one processor.
type ProcessorSummary struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// SummaryResponse is the ingress payments-summary payload. The primary
// processor is exposed under the external field name "default".
type SummaryResponse struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}
