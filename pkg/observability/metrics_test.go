package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/observability"
)

func TestMetricsHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks(nil)

	ctx := context.Background()
	hooks.OnCommit(ctx, &domain.CommitEvent{Path: "region", Cursor: 1})
	hooks.OnCommit(ctx, &domain.CommitEvent{Path: "replicas", ByRule: true, Cursor: 2})
	hooks.OnUndo(ctx, &domain.CommitEvent{Cursor: 1})
	hooks.OnStepEnter(ctx, &domain.StepEvent{StepID: "sizing", Index: 1})
	hooks.OnSave(ctx, &domain.SaveEvent{})
	hooks.OnSave(ctx, &domain.SaveEvent{Err: "disk full"})
	hooks.OnDerive(ctx, &domain.DeriveEvent{Phase: domain.PhaseFallback, Notice: "offline"})

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["espalier_commits_total"])
	assert.True(t, names["espalier_saves_total"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("rule")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("undo")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Saves.WithLabelValues("error")))
}

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnCommit: func(context.Context, *domain.CommitEvent) { calls = append(calls, "a") },
	}
	b := domain.LifecycleHooks{
		OnCommit: func(context.Context, *domain.CommitEvent) { calls = append(calls, "b") },
		OnUndo:   func(context.Context, *domain.CommitEvent) { calls = append(calls, "b-undo") },
	}

	merged := observability.Merge(a, b)
	merged.OnCommit(context.Background(), &domain.CommitEvent{})
	merged.OnUndo(context.Background(), &domain.CommitEvent{})

	assert.Equal(t, []string{"a", "b", "b-undo"}, calls)
	assert.Nil(t, merged.OnRedo)
}
