package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates Prometheus instrumentation for generation runs.
type Metrics struct {
	registry     *prometheus.Registry
	handler      http.Handler
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	bestFitness  prometheus.Gauge
}

// NewMetrics registers the generation collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_generation_runs_started_total",
		Help: "Total generation runs accepted",
	})

	runsFinished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_runs_finished_total",
		Help: "Total generation runs finished, by outcome",
	}, []string{"algorithm", "outcome"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_run_duration_seconds",
		Help:    "Wall-clock duration of generation runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"algorithm"})

	bestFitness := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_generation_best_fitness",
		Help: "Fitness of the most recently completed run",
	})

	registry.MustRegister(runsStarted, runsFinished, runDuration, bestFitness)

	return &Metrics{
		registry:     registry,
		handler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runsStarted:  runsStarted,
		runsFinished: runsFinished,
		runDuration:  runDuration,
		bestFitness:  bestFitness,
	}
}

// Handler exposes the scrape endpoint for the embedding application.
func (m *Metrics) Handler() http.Handler { return m.handler }

// RunStarted records an accepted run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunFinished records a finished run with its outcome and duration.
func (m *Metrics) RunFinished(algorithm, outcome string, duration time.Duration, fitness float64) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(algorithm, outcome).Inc()
	m.runDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	if outcome != "failed" {
		m.bestFitness.Set(fitness)
	}
}
