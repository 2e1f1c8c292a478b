package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codrblog/autoshell/pkg/domain"
)

const namespace = "autoshell"

// Metrics holds the task collectors.
type Metrics struct {
	registry *prometheus.Registry

	cycles            *prometheus.CounterVec
	completionLatency prometheus.Histogram
	commands          *prometheus.CounterVec
	finished          *prometheus.CounterVec
	taskDuration      prometheus.Histogram
	streams           prometheus.Gauge
}

// NewMetrics creates and registers the collectors, plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Request/execute cycles, by whether the commands succeeded.",
		}, []string{"ok"}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of completion requests.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Executed commands, by result.",
		}, []string{"result"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Finished task runs, by stop reason.",
		}, []string{"reason"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of task runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_streams",
			Help:      "Open event stream subscriptions.",
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.completionLatency,
		m.commands,
		m.finished,
		m.taskDuration,
		m.streams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StreamOpened and StreamClosed track event stream subscribers.
func (m *Metrics) StreamOpened() { m.streams.Inc() }
func (m *Metrics) StreamClosed() { m.streams.Dec() }

// Hooks returns lifecycle hooks recording into m. Logging stays with the
// orchestrator.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCycle: func(ctx context.Context, e *domain.CycleEvent) {
			m.cycles.WithLabelValues(boolLabel(e.OK)).Inc()
			m.completionLatency.Observe(e.Latency.Seconds())
		},
		OnOutcome: func(ctx context.Context, taskID string, o *domain.CommandOutcome) {
			result := "success"
			if o.Failed() {
				result = "failure"
			}
			m.commands.WithLabelValues(result).Inc()
		},
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			m.finished.WithLabelValues(string(e.Reason)).Inc()
			m.taskDuration.Observe(e.Duration.Seconds())
		},
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
