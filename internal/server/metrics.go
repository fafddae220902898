package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "newton"

type metrics struct {
	registry *prometheus.Registry

	runs                 *prometheus.CounterVec
	iterations           *prometheus.HistogramVec
	lineSearchIterations *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	storedRuns           prometheus.GaugeFunc
}

func newMetrics(reg *prometheus.Registry, storedRuns func() float64) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Minimization runs by function and outcome.",
		}, []string{"function", "status"}),
		iterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "iterations",
			Help:      "Newton iterations per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}, []string{"function"}),
		lineSearchIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "line_search_iterations_total",
			Help:      "Line search trial steps beyond the first, summed over runs.",
		}, []string{"function"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of minimization runs.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"function"}),
		storedRuns: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stored_runs",
			Help:      "Runs currently kept in memory.",
		}, storedRuns),
	}
}

// defaultRegistry returns a registry with the Go runtime and process
// collectors registered.
func defaultRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *metrics) observe(run *Run) {
	m.runs.WithLabelValues(run.Function, string(run.Status)).Inc()
	m.runDuration.WithLabelValues(run.Function).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	if run.Result == nil {
		return
	}
	m.iterations.WithLabelValues(run.Function).Observe(float64(run.Result.Iterations))
	if ls := run.Result.LineSearch; ls != nil {
		m.lineSearchIterations.WithLabelValues(run.Function).Add(float64(ls.TotalLineSearchIterations))
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
