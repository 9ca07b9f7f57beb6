// Package metrics exposes Prometheus instrumentation for the webhook
// processing pipeline and the reconciliation read path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payments_hub"

// Metrics holds the collectors shared by the webhook processor and the
// API gateway. A single instance is created per process and passed to the
// components that record observations.
type Metrics struct {
	registry *prometheus.Registry

	WebhooksApplied       *prometheus.CounterVec
	WebhooksSkipped       *prometheus.CounterVec
	WebhooksOutOfSequence prometheus.Counter
	WebhooksExhausted     prometheus.Counter
	ReconciliationSyncs   *prometheus.CounterVec
	ProviderRequestTime   prometheus.Histogram
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WebhooksApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "applied_total",
			Help:      "Webhook events applied to the ledger, by transaction type.",
		}, []string{"type"}),
		WebhooksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "skipped_total",
			Help:      "Webhook events received but not applied, by reason.",
		}, []string{"reason"}),
		WebhooksOutOfSequence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "out_of_sequence_total",
			Help:      "Webhook events rejected because an earlier event was still in flight.",
		}),
		WebhooksExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "retries_exhausted_total",
			Help:      "Webhook events dead-lettered after the retry budget ran out.",
		}),
		ReconciliationSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciliation",
			Name:      "syncs_total",
			Help:      "Read-repair attempts against the banking provider, by outcome.",
		}, []string{"outcome"}),
		ProviderRequestTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Latency of status lookups against the banking provider.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.WebhooksApplied,
		m.WebhooksSkipped,
		m.WebhooksOutOfSequence,
		m.WebhooksExhausted,
		m.ReconciliationSyncs,
		m.ProviderRequestTime,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
