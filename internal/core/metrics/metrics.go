// Package metrics records check runs as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/solatis/callwarden/internal/rules"
	"github.com/solatis/callwarden/internal/types"
)

// Metrics holds the Prometheus metrics of a check run.
// It implements rules.Observer so an Engine can feed it directly.
type Metrics struct {
	registry *prometheus.Registry

	CallSitesTotal  prometheus.Counter
	ViolationsTotal *prometheus.CounterVec
	PackagesTotal   prometheus.Counter
	Rules           prometheus.Gauge
	CheckDuration   prometheus.Histogram
}

// New creates and registers all metrics with reg.
func New(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		registry: reg,
		CallSitesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "callwarden",
				Name:      "call_sites_total",
				Help:      "Total resolved call sites checked",
			},
		),
		ViolationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "callwarden",
				Name:      "violations_total",
				Help:      "Total unwanted method calls found",
			},
			[]string{"offender"}, // offender=os/exec.Command
		),
		PackagesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "callwarden",
				Name:      "packages_total",
				Help:      "Total packages checked",
			},
		),
		Rules: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "callwarden",
				Name:      "rules",
				Help:      "Number of unwanted method rules loaded",
			},
		),
		CheckDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "callwarden",
				Name:      "check_duration_seconds",
				Help:      "Wall time of a check run in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
		),
	}
}

// ObserveCallSite implements rules.Observer.
func (m *Metrics) ObserveCallSite(_ types.CallSite, violations []rules.Violation) {
	m.CallSitesTotal.Inc()
	for _, v := range violations {
		m.ViolationsTotal.WithLabelValues(v.Offender).Inc()
	}
}

// ObserveRun records totals known only once a run finishes.
func (m *Metrics) ObserveRun(ruleCount, packages int, elapsed time.Duration) {
	m.Rules.Set(float64(ruleCount))
	m.PackagesTotal.Add(float64(packages))
	m.CheckDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes every registered metric to path in the text
// exposition format read by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
