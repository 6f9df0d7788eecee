// Package metrics holds the service's go-kit metrics.
package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "orders"

// Metrics contains metrics exposed by the order engine.
type Metrics struct {
	// Number of transition attempts, labelled by transition and outcome.
	Transitions metrics.Counter
	// Duration of ledger calls in seconds, labelled by op.
	LedgerSubmitSeconds metrics.Histogram
	// 1 when orders are written to the ledger, 0 when the local stand-in is used.
	LedgerEnabled metrics.Gauge
	// Number of post-commit events that could not be published.
	PublishFailures metrics.Counter
}

// PrometheusMetrics returns Metrics registered with the default Prometheus
// registry. It must be called at most once per namespace.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transitions_total",
			Help:      "Order operations by transition and outcome.",
		}, []string{"transition", "outcome"}),
		LedgerSubmitSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ledger_submit_seconds",
			Help:      "Time spent waiting for ledger confirmation.",
			Buckets:   stdprometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"op"}),
		LedgerEnabled: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ledger_enabled",
			Help:      "Whether the ledger is enabled (1) or replaced by local ids (0).",
		}, []string{}),
		PublishFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "publish_failures_total",
			Help:      "Order events dropped after commit.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Transitions:         discard.NewCounter(),
		LedgerSubmitSeconds: discard.NewHistogram(),
		LedgerEnabled:       discard.NewGauge(),
		PublishFailures:     discard.NewCounter(),
	}
}
