package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for template rendering.
type Metrics struct {
	Renders          *prometheus.CounterVec
	RenderDuration   *prometheus.HistogramVec
	MacroExpansions  *prometheus.CounterVec
	EvaluationErrors *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpt_renders_total",
				Help: "Total number of template renders",
			},
			[]string{"template", "outcome"},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zpt_render_duration_seconds",
				Help:    "Duration of template renders",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"template"},
		),
		MacroExpansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpt_macro_expansions_total",
				Help: "Total number of macros spliced into renders",
			},
			[]string{"macro"},
		),
		EvaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpt_evaluation_errors_total",
				Help: "Statements that failed to evaluate",
			},
			[]string{"statement", "recovered"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Renders, m.RenderDuration, m.MacroExpansions, m.EvaluationErrors)
	return m
}

// Hooks records metrics from engine lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRenderEnd: func(_ context.Context, e *domain.RenderEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.Renders.WithLabelValues(e.Template, outcome).Inc()
			m.RenderDuration.WithLabelValues(e.Template).Observe(e.Duration.Seconds())
		},
		OnMacroExpand: func(_ context.Context, e *domain.MacroEvent) {
			m.MacroExpansions.WithLabelValues(e.Macro).Inc()
		},
		OnEvaluationError: func(_ context.Context, e *domain.ErrorEvent) {
			m.EvaluationErrors.WithLabelValues(e.Statement, strconv.FormatBool(e.Recovered)).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
