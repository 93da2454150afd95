package campaign

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a stress campaign.
type Metrics struct {
	Registry             *prometheus.Registry
	IterationsTotal      *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	StepFailuresTotal    *prometheus.CounterVec
	ConsoleErrorsTotal   prometheus.Counter
	NetworkFailuresTotal prometheus.Counter
	MemoryUsagePercent   prometheus.Gauge
	DegradationsTotal    prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	iterations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webstress_iterations_total",
			Help: "Total iterations executed, by terminal status.",
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webstress_run_duration_seconds",
			Help:    "Wall-clock duration of one iteration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	stepFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webstress_step_failures_total",
			Help: "Total failed steps, by error kind.",
		},
		[]string{"kind"},
	)
	consoleErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webstress_console_errors_total",
			Help: "Relevant console errors captured across iterations.",
		},
	)
	networkFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webstress_network_failures_total",
			Help: "Network transport failures captured across iterations.",
		},
	)
	memoryUsage := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webstress_memory_usage_percent",
			Help: "Latest sampled page heap usage percentage.",
		},
	)
	degradations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webstress_degradations_total",
			Help: "Detected run-over-run memory degradation events.",
		},
	)

	registry.MustRegister(iterations, runDuration, stepFailures, consoleErrors, networkFailures, memoryUsage, degradations)

	return &Metrics{
		Registry:             registry,
		IterationsTotal:      iterations,
		RunDuration:          runDuration,
		StepFailuresTotal:    stepFailures,
		ConsoleErrorsTotal:   consoleErrors,
		NetworkFailuresTotal: networkFailures,
		MemoryUsagePercent:   memoryUsage,
		DegradationsTotal:    degradations,
	}
}

// ObserveIteration records one finished iteration.
func (m *Metrics) ObserveIteration(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.IterationsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// IncStepFailure counts a failed step by its error kind.
func (m *Metrics) IncStepFailure(kind string) {
	if m == nil {
		return
	}
	m.StepFailuresTotal.WithLabelValues(kind).Inc()
}

// AddConsoleErrors adds captured relevant console errors.
func (m *Metrics) AddConsoleErrors(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ConsoleErrorsTotal.Add(float64(n))
}

// AddNetworkFailures adds captured network transport failures.
func (m *Metrics) AddNetworkFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NetworkFailuresTotal.Add(float64(n))
}

// SetMemoryUsage publishes the latest heap usage reading.
func (m *Metrics) SetMemoryUsage(percent float64) {
	if m == nil {
		return
	}
	m.MemoryUsagePercent.Set(percent)
}

// IncDegradation counts one detected degradation event.
func (m *Metrics) IncDegradation() {
	if m == nil {
		return
	}
	m.DegradationsTotal.Inc()
}
