package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. Use New to register them.
type Metrics struct {
	registry *prometheus.Registry

	intake     *prometheus.CounterVec
	pending    *prometheus.CounterVec
	checklists *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	emitTime   *prometheus.HistogramVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		intake: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_intake_total",
				Help: "Inbound messages and reactions by source, kind and outcome",
			},
			[]string{"source", "kind", "outcome"},
		),
		pending: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_pending_total",
				Help: "Messages that became pending, by segmentation format",
			},
			[]string{"format"},
		),
		checklists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_checklists_total",
				Help: "Consumed pending entries by delivery result",
			},
			[]string{"result"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_dropped_total",
				Help: "Events ignored by the coordinator, by reason",
			},
			[]string{"reason"},
		),
		emitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scribe_emit_duration_seconds",
				Help:    "Duration of checklist deliveries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.intake, m.pending, m.checklists, m.dropped, m.emitTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIntake counts one intake call. kind is "message" or "reaction".
func (m *Metrics) ObserveIntake(source, kind, outcome string) {
	m.intake.WithLabelValues(source, kind, outcome).Inc()
}

// Hooks returns lifecycle hooks feeding the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPending: func(_ context.Context, ev *domain.PendingEvent) {
			m.pending.WithLabelValues(string(ev.Format)).Inc()
		},
		OnConsumed: func(_ context.Context, _ *domain.ChecklistEvent) {
			m.checklists.WithLabelValues("emitted").Inc()
		},
		OnEmitFailed: func(_ context.Context, _ *domain.ChecklistEvent) {
			m.checklists.WithLabelValues("failed").Inc()
		},
		OnDropped: func(_ context.Context, ev *domain.DropEvent) {
			m.dropped.WithLabelValues(ev.Reason).Inc()
		},
	}
}

// InstrumentEmitter times every delivery made through next.
func (m *Metrics) InstrumentEmitter(next ports.ChecklistEmitter) ports.ChecklistEmitter {
	return ports.EmitterFunc(func(ctx context.Context, req domain.ChecklistRequest) (string, error) {
		start := time.Now()
		sent, err := next.EmitChecklist(ctx, req)
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.emitTime.WithLabelValues(result).Observe(time.Since(start).Seconds())
		return sent, err
	})
}
