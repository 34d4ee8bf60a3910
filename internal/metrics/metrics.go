// Package metrics exposes the gateway's dispatch counters to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunosilvadev/rinha-2025/internal/model"
)

// Metrics holds the gateway's prometheus collectors.
type Metrics struct {
	attemptsTotal    *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
}

// New creates the collectors without registering them; call Register once
// at startup.
func New() *Metrics {
	return &Metrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "payments",
			Name:      "upstream_attempts_total",
			Help:      "Upstream payment POSTs by processor and result",
		}, []string{"processor", "result"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateway",
			Subsystem: "payments",
			Name:      "processed_total",
			Help:      "Payments by final outcome",
		}, []string{"outcome"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gateway",
			Subsystem: "payments",
			Name:      "dispatch_duration_seconds",
			Help:      "End-to-end dispatch duration including retries",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register registers all collectors with the default prometheus registry.
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.attemptsTotal,
		m.paymentsTotal,
		m.dispatchDuration,
	}

	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveAttempt counts one upstream payment POST.
func (m *Metrics) ObserveAttempt(proc model.Processor, success bool) {
	m.attemptsTotal.WithLabelValues(string(proc), resultLabel(success)).Inc()
}

// ObserveDispatch counts one finished dispatch and its duration.
func (m *Metrics) ObserveDispatch(success bool, elapsed time.Duration) {
	m.paymentsTotal.WithLabelValues(resultLabel(success)).Inc()
	m.dispatchDuration.Observe(elapsed.Seconds())
}

// Handler serves the default registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
