package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/domain"
)

func TestCompileRules_RejectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		rules []domain.DefaultRule
	}{
		{
			name: "direct cycle",
			rules: []domain.DefaultRule{
				{Trigger: "a", Target: "b", Compute: `"x"`},
				{Trigger: "b", Target: "a", Compute: `"y"`},
			},
		},
		{
			name: "self loop",
			rules: []domain.DefaultRule{
				{Trigger: "a", Target: "a", Compute: `"x"`},
			},
		},
		{
			name: "cycle through path overlap",
			rules: []domain.DefaultRule{
				{Trigger: "tone.style", Target: "voice", Compute: `"x"`},
				{Trigger: "voice", Target: "tone", Compute: `"y"`},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRules(tt.rules, logging.NewNop())
			assert.True(t, errors.Is(err, domain.ErrCyclicRules))
		})
	}
}

func TestCompileRules_AcceptsChains(t *testing.T) {
	rules := []domain.DefaultRule{
		{Trigger: "a", Target: "b", Compute: `"x"`},
		{Trigger: "b", Target: "c", Compute: `"y"`},
	}
	_, err := CompileRules(rules, logging.NewNop())
	assert.NoError(t, err)
}

func TestSession_DefaultPropagation(t *testing.T) {
	def := twoStepDef()
	def.Rules = []domain.DefaultRule{
		{
			Trigger: "company.industry",
			Target:  "tone.style",
			Compute: `answer("company.industry") == "fintech" ? ["precise"] : ["friendly"]`,
		},
	}
	s := newTestSession(t, def, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "company.industry", "fintech"))
	assert.Equal(t, []any{"precise"}, s.Answers().GetList("tone.style"))
	// The rule write is its own history snapshot.
	assert.Equal(t, 2, s.History().Cursor())
}

func TestSession_DefaultNeverClobbersUserValue(t *testing.T) {
	def := twoStepDef()
	def.Rules = []domain.DefaultRule{
		{Trigger: "trigger", Target: "field", Compute: `"default"`},
	}
	s := newTestSession(t, def, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "field", "user-value"))
	require.NoError(t, s.Set(ctx, "trigger", "anything"))

	v, _ := s.Answers().Get("field")
	assert.Equal(t, "user-value", v)
}

func TestSession_DefaultFillsEmptyList(t *testing.T) {
	def := twoStepDef()
	def.Rules = []domain.DefaultRule{
		{Trigger: "trigger", Target: "field", Compute: `"default"`},
	}
	s := newTestSession(t, def, nil)
	ctx := context.Background()

	// An empty list counts as unset for propagation purposes.
	require.NoError(t, s.Set(ctx, "field", []any{}))
	require.NoError(t, s.Set(ctx, "trigger", "anything"))

	v, _ := s.Answers().Get("field")
	assert.Equal(t, "default", v)
}

func TestSession_NilComputeSkips(t *testing.T) {
	def := twoStepDef()
	def.Rules = []domain.DefaultRule{
		{Trigger: "trigger", Target: "field", Compute: `nil`},
	}
	s := newTestSession(t, def, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "trigger", "anything"))
	_, ok := s.Answers().Get("field")
	assert.False(t, ok)
}

func TestSession_ChainedDefaults(t *testing.T) {
	def := twoStepDef()
	def.Rules = []domain.DefaultRule{
		{Trigger: "a", Target: "b", Compute: `"vb"`},
		{Trigger: "b", Target: "c", Compute: `"vc"`},
	}
	s := newTestSession(t, def, nil)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "va"))
	vb, _ := s.Answers().Get("b")
	vc, _ := s.Answers().Get("c")
	assert.Equal(t, "vb", vb)
	assert.Equal(t, "vc", vc)
	// Three commits: the user's plus one per fired rule.
	assert.Equal(t, 3, s.History().Cursor())
}
