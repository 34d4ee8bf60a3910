// Package handler exposes the gateway's HTTP surface: payment ingress,
// the summary query, and the test-support purge.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brunosilvadev/rinha-2025/internal/model"
	"github.com/brunosilvadev/rinha-2025/internal/orchestrator"
)

// Dispatcher executes one payment dispatch.
type Dispatcher interface {
	ProcessPayment(ctx context.Context, req model.PaymentRequest) (model.Processor, error)
}

// SummaryStore serves and resets the aggregate counters.
type SummaryStore interface {
	Totals(ctx context.Context, from, to time.Time) model.SummaryResponse
	Reset(ctx context.Context) error
}

// Handler holds HTTP handler dependencies.
type Handler struct {
	dispatcher Dispatcher
	summaries  SummaryStore
}

// New creates a new Handler.
func New(dispatcher Dispatcher, summaries SummaryStore) *Handler {
	return &Handler{dispatcher: dispatcher, summaries: summaries}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payments", h.ProcessPayment)
	mux.HandleFunc("GET /payments-summary", h.PaymentsSummary)
	mux.HandleFunc("DELETE /payments-summary", h.PurgeSummary)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

// ProcessPayment handles POST /payments
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if msg := validatePaymentRequest(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	proc, err := h.dispatcher.ProcessPayment(r.Context(), req)
	switch {
	case errors.Is(err, orchestrator.ErrExhausted):
		writeError(w, http.StatusInternalServerError, "payment could not be processed")
		return
	case err != nil:
		// Context cancellation or another abort; the caller is likely gone.
		writeError(w, http.StatusInternalServerError, "request aborted")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "payment processed",
		"processor": string(proc),
	})
}

// PaymentsSummary handles GET /payments-summary
func (h *Handler) PaymentsSummary(w http.ResponseWriter, r *http.Request) {
	from := parseInstant(r.URL.Query().Get("from"))
	to := parseInstant(r.URL.Query().Get("to"))

	writeJSON(w, http.StatusOK, h.summaries.Totals(r.Context(), from, to))
}

// PurgeSummary handles DELETE /payments-summary
func (h *Handler) PurgeSummary(w http.ResponseWriter, r *http.Request) {
	if err := h.summaries.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset counters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "counters reset"})
}

// Healthz handles GET /healthz for the load balancer.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validatePaymentRequest(req model.PaymentRequest) string {
	if req.CorrelationID == "" {
		return "correlationId is required"
	}
	if _, err := uuid.Parse(req.CorrelationID); err != nil {
		return "correlationId must be a valid UUID"
	}
	if req.Amount <= 0 {
		return "amount must be greater than 0"
	}
	return ""
}
