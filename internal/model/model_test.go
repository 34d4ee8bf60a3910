package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Other(t *testing.T) {
	assert.Equal(t, ProcessorFallback, ProcessorPrimary.Other())
	assert.Equal(t, ProcessorPrimary, ProcessorFallback.Other())
}

func TestEnrich_StampsMillisecondUTC(t *testing.T) {
	req := PaymentRequest{
		CorrelationID: "4a7901b8-7d26-4d9d-aa19-4dc1c7cf60b3",
		Amount:        19.90,
	}
	at := time.Date(2025, 7, 21, 15, 30, 45, 123_000_000, time.UTC)

	enriched := Enrich(req, at)

	assert.Equal(t, req.CorrelationID, enriched.CorrelationID)
	assert.Equal(t, 19.90, enriched.Amount)
	assert.Equal(t, "2025-07-21T15:30:45.123Z", enriched.RequestedAt)
}

func TestEnrich_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	at := time.Date(2025, 7, 21, 12, 30, 45, 123_000_000, loc)

	enriched := Enrich(PaymentRequest{}, at)

	assert.Equal(t, "2025-07-21T15:30:45.123Z", enriched.RequestedAt)
}

func TestEnrichedPayment_WireShape(t *testing.T) {
	enriched := EnrichedPayment{
		CorrelationID: "4a7901b8-7d26-4d9d-aa19-4dc1c7cf60b3",
		Amount:        19.90,
		RequestedAt:   "2025-07-21T15:30:45.123Z",
	}

	raw, err := json.Marshal(enriched)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "correlationId")
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "requestedAt")
}

func TestDefaultCircuitRecord(t *testing.T) {
	now := time.Now()
	rec := DefaultCircuitRecord(now)

	assert.Equal(t, CircuitClosed, rec.State)
	assert.Equal(t, 0, rec.FailureCount)
	assert.Equal(t, 0, rec.SuccessCount)
	assert.True(t, rec.LastFailureAt.IsZero())
	assert.Equal(t, now, rec.LastStateChangeAt)
}

func TestCircuitRecord_StateSerializedAsString(t *testing.T) {
	raw, err := json.Marshal(CircuitRecord{State: CircuitHalfOpen})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"half_open"`)
}

func TestSummaryResponse_ExternalFieldNames(t *testing.T) {
	raw, err := json.Marshal(SummaryResponse{
		Default:  ProcessorSummary{TotalRequests: 2, TotalAmount: 39.80},
		Fallback: ProcessorSummary{TotalRequests: 1, TotalAmount: 10.00},
	})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "default")
	assert.Contains(t, fields, "fallback")
}
