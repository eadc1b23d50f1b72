package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dupcheck"

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// latencyBuckets are in seconds. Workflow calls usually take between a few
// hundred milliseconds and tens of seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25,
	0.5, 1, 2.5,
	5, 10, 30, 60,
}

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	sentencesTotal  prometheus.Counter
	matchesTotal    prometheus.Counter
	workflowCalls   *prometheus.CounterVec
	workflowLatency *prometheus.HistogramVec
	inFlightRuns    prometheus.Gauge
}

// New creates a Metrics with its own registry. Process and Go runtime
// collectors are registered as well.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of duplicate-check runs",
			},
			[]string{"endpoint", "result"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of duplicate-check runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
		),
		sentencesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sentences_total",
				Help:      "Total number of sentences checked",
			},
		),
		matchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matches_total",
				Help:      "Total number of duplicate matches reported",
			},
		),
		workflowCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_calls_total",
				Help:      "Total number of workflow API calls",
			},
			[]string{"mode", "result"},
		),
		workflowLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_call_duration_seconds",
				Help:      "Workflow API call latency in seconds",
				Buckets:   latencyBuckets,
			},
			[]string{"mode"},
		),
		inFlightRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of runs currently being processed",
			},
		),
	}
}

// ObserveWorkflowCall records one workflow API call.
func (m *Metrics) ObserveWorkflowCall(mode string, elapsed time.Duration, err error) {
	m.workflowCalls.WithLabelValues(mode, resultLabel(err)).Inc()
	m.workflowLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RunStarted marks a run as in flight. The returned function must be
// called when the run ends.
func (m *Metrics) RunStarted() func() {
	m.inFlightRuns.Inc()
	return m.inFlightRuns.Dec
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(endpoint string, elapsed time.Duration, sentences, matches int, err error) {
	m.runsTotal.WithLabelValues(endpoint, resultLabel(err)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	m.sentencesTotal.Add(float64(sentences))
	m.matchesTotal.Add(float64(matches))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
