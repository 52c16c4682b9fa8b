// Package observability bridges engine lifecycle hooks to Prometheus
// metrics and structured logs.
package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// Metrics holds the Prometheus collectors for one wizard engine.
type Metrics struct {
	Commits    *prometheus.CounterVec
	StepEnters *prometheus.CounterVec
	Saves      *prometheus.CounterVec
	Phases     *prometheus.CounterVec
	Depth      prometheus.Histogram
}

// NewMetrics creates and registers the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_commits_total",
				Help: "Total number of answer commits, by kind",
			},
			[]string{"kind"},
		),
		StepEnters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_step_enters_total",
				Help: "Total number of step entries",
			},
			[]string{"step_id"},
		),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_saves_total",
				Help: "Total number of autosave writes",
			},
			[]string{"status"},
		),
		Phases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_derivation_phases_total",
				Help: "Derivation phase transitions",
			},
			[]string{"phase"},
		),
		Depth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "espalier_history_depth",
				Help:    "Undo history cursor depth at commit time",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}

	reg.MustRegister(m.Commits, m.StepEnters, m.Saves, m.Phases, m.Depth)
	return m
}

// Hooks returns lifecycle hooks that record metrics and log each event.
// Compose with other hooks via Merge when the caller has its own.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.Default()
	}
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			kind := "user"
			if e.ByRule {
				kind = "rule"
			}
			m.Commits.WithLabelValues(kind).Inc()
			m.Depth.Observe(float64(e.Cursor))
			logger.Debug("commit", "draft", e.DraftID, "path", e.Path, "by_rule", e.ByRule)
		},
		OnUndo: func(ctx context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues("undo").Inc()
			logger.Debug("undo", "draft", e.DraftID, "cursor", e.Cursor)
		},
		OnRedo: func(ctx context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues("redo").Inc()
			logger.Debug("redo", "draft", e.DraftID, "cursor", e.Cursor)
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.StepEnters.WithLabelValues(e.StepID).Inc()
			logger.Info("step_enter", "draft", e.DraftID, "step_id", e.StepID, "index", e.Index)
		},
		OnSave: func(ctx context.Context, e *domain.SaveEvent) {
			status := "ok"
			if e.Err != "" {
				status = "error"
			}
			m.Saves.WithLabelValues(status).Inc()
			logger.Debug("save", "draft", e.DraftID, "status", status)
		},
		OnDerive: func(ctx context.Context, e *domain.DeriveEvent) {
			m.Phases.WithLabelValues(string(e.Phase)).Inc()
			logger.Info("derive", "draft", e.DraftID, "phase", e.Phase, "notice", e.Notice)
		},
	}
}

// Merge combines two hook sets; both callbacks fire for each event.
func Merge(a, b domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit:    mergeFn(a.OnCommit, b.OnCommit),
		OnUndo:      mergeFn(a.OnUndo, b.OnUndo),
		OnRedo:      mergeFn(a.OnRedo, b.OnRedo),
		OnStepEnter: mergeFn(a.OnStepEnter, b.OnStepEnter),
		OnSave:      mergeFn(a.OnSave, b.OnSave),
		OnDerive:    mergeFn(a.OnDerive, b.OnDerive),
	}
}

func mergeFn[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
