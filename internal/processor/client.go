// Package processor holds the HTTP client for the upstream payment
// processors: the payment POST used by the dispatch path and the
// service-health probe.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brunosilvadev/rinha-2025/internal/model"
)

// Upstream is the surface the dispatch and health layers need from a
// processor client.
type Upstream interface {
	// ID returns the processor identity this client targets.
	ID() model.Processor
	// PostPayment submits the payment. A non-nil error covers any non-2xx
	// status, timeout, or transport failure.
	PostPayment(ctx context.Context, payment model.EnrichedPayment) error
	// FetchHealth probes the service-health endpoint. ok is false on any
	// error, timeout, or malformed body.
	FetchHealth(ctx context.Context) (model.HealthSnapshot, bool)
}

// Client talks to one upstream processor over HTTP. Payments and health
// probes use separate pooled clients so a slow health endpoint cannot
// starve payment connections.
type Client struct {
	id       model.Processor
	baseURL  string
	payments *http.Client
	health   *http.Client
}

// NewClient builds a client for the processor at baseURL. The payment pool
// keeps at least 200 idle connections per host; the probe pool is smaller
// and uses the shorter probe deadline.
func NewClient(id model.Processor, baseURL string, paymentTimeout, probeTimeout time.Duration) *Client {
	return &Client{
		id:      id,
		baseURL: baseURL,
		payments: &http.Client{
			Timeout: paymentTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        256,
				MaxIdleConnsPerHost: 200,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
		health: &http.Client{
			Timeout: probeTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
	}
}

func (c *Client) ID() model.Processor {
	return c.id
}

func (c *Client) PostPayment(ctx context.Context, payment model.EnrichedPayment) error {
	body, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.payments.Do(req)
	if err != nil {
		return fmt.Errorf("post payment to %s: %w", c.id, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", c.id, resp.StatusCode)
	}
	return nil
}

func (c *Client) FetchHealth(ctx context.Context) (model.HealthSnapshot, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/service-health", nil)
	if err != nil {
		return model.HealthSnapshot{}, false
	}

	resp, err := c.health.Do(req)
	if err != nil {
		return model.HealthSnapshot{}, false
	}
	defer drain(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.HealthSnapshot{}, false
	}

	// Pointer fields distinguish absent fields from zero values; a body
	// missing either field is treated as no observation.
	var body struct {
		Failing         *bool `json:"failing"`
		MinResponseTime *int  `json:"minResponseTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.HealthSnapshot{}, false
	}
	if body.Failing == nil || body.MinResponseTime == nil {
		return model.HealthSnapshot{}, false
	}

	return model.HealthSnapshot{
		Failing:         *body.Failing,
		MinResponseTime: *body.MinResponseTime,
	}, true
}

// drain empties and closes the body so the connection returns to the pool.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
