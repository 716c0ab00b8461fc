// Package metrics exposes build, task and live reload counters in the
// Prometheus format. Collectors live in a private registry so tests and
// multiple App instances never collide on the global one.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	"github.com/specialistvlad/assetgrid/internal/task"
)

const namespace = "assetgrid"

// Metrics holds every collector the application reports.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	warnings     *prometheus.CounterVec
	running      prometheus.Gauge
	reloads      prometheus.Counter
	watchFires   *prometheus.CounterVec
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_runs_total",
			Help:      "Build runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_run_duration_seconds",
			Help:      "Wall time of build runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Task executions by task and final status.",
		}, []string{"task", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of task executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"task"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_warnings_total",
			Help:      "Non-fatal warnings recorded on runs, by task.",
		}, []string{"task"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Tasks currently executing.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Reload notifications broadcast to clients.",
		}),
		watchFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Debounced watch rule firings, by rule.",
		}, []string{"rule"}),
	}
	m.registry.MustRegister(
		m.runs, m.runDuration, m.tasks, m.taskDuration, m.warnings, m.running, m.reloads, m.watchFires,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns scheduler hooks that record task and run metrics.
func (m *Metrics) Hooks() scheduler.Hooks {
	return scheduler.Hooks{
		OnTaskStart: func(context.Context, *scheduler.BuildRun, *task.Task) {
			m.running.Inc()
		},
		OnTaskFinish: func(_ context.Context, _ *scheduler.BuildRun, res scheduler.TaskResult) {
			m.running.Dec()
			m.tasks.WithLabelValues(res.Task, res.Status.String()).Inc()
			m.taskDuration.WithLabelValues(res.Task).Observe(res.Duration().Seconds())
		},
		OnRunFinish: func(_ context.Context, run *scheduler.BuildRun) {
			m.runs.WithLabelValues(run.Status().String()).Inc()
			m.runDuration.Observe(run.Duration().Seconds())
			for _, w := range run.Warnings() {
				m.warnings.WithLabelValues(w.Task).Inc()
			}
		},
	}
}

// ObserveReload counts one broadcast.
func (m *Metrics) ObserveReload() {
	m.reloads.Inc()
}

// ObserveWatchTrigger counts one firing of rule.
func (m *Metrics) ObserveWatchTrigger(rule string) {
	m.watchFires.WithLabelValues(rule).Inc()
}

// TrackClients exports the live reload client count, read at scrape time.
func (m *Metrics) TrackClients(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "livereload_clients",
		Help:      "Connected live reload clients.",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
