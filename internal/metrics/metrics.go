// Package metrics holds the Prometheus collectors for run execution.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seoflow"

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics records run and step outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	ActiveRuns   prometheus.Gauge
}

// Default registers the collectors on the default registry exactly once.
//
// Metrics:
//   - seoflow_runs_total{workflow,status}
//   - seoflow_run_duration_seconds{workflow}
//   - seoflow_steps_total{agent,status}
//   - seoflow_step_duration_seconds{agent}
//   - seoflow_active_runs
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total workflow runs by workflow type and final status",
			},
			[]string{"workflow", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall clock duration of workflow runs",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"workflow"},
		),
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total agent steps by agent and step status",
			},
			[]string{"agent", "status"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Agent step execution time",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"agent"},
		),
		ActiveRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Workflow runs currently executing",
			},
		),
	}
}

// RunStarted increments the active run gauge.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

// RunFinished records a terminal run state.
func (m *Metrics) RunFinished(workflow, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(workflow, status).Inc()
	m.RunDuration.WithLabelValues(workflow).Observe(d.Seconds())
}

// StepFinished records one executed step.
func (m *Metrics) StepFinished(agent, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(agent, status).Inc()
	m.StepDuration.WithLabelValues(agent).Observe(d.Seconds())
}
