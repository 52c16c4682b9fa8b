package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/domain"
)

func TestValidator_Predicates(t *testing.T) {
	steps := []domain.StepDefinition{
		{ID: "list", Predicate: `count("audience.pains") > 0`},
		{ID: "scalar", Predicate: `has("company.name")`},
		{ID: "combo", Predicate: `has("company.name") && count("tone.style") == 1`},
		{ID: "free", Optional: true, Predicate: `false`},
		{ID: "none"},
	}
	v, err := CompileValidator(steps, logging.NewNop())
	require.NoError(t, err)

	answers := domain.NewAnswerSet().
		Set("company.name", "Acme").
		SetSingle("tone.style", "dry")

	tests := []struct {
		step string
		want bool
	}{
		{"list", false},
		{"scalar", true},
		{"combo", true},
		{"free", true}, // optional always wins over its predicate
		{"none", true}, // no predicate means always valid
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Eval(tt.step, answers))
		})
	}
}

func TestValidator_PureAndNonMutating(t *testing.T) {
	steps := []domain.StepDefinition{
		{ID: "s", Predicate: `count("x") > 0`},
	}
	v, err := CompileValidator(steps, logging.NewNop())
	require.NoError(t, err)

	answers := domain.NewAnswerSet().Toggle("x", "v")
	before := answers.Leaves()

	first := v.Eval("s", answers)
	second := v.Eval("s", answers)
	assert.Equal(t, first, second)
	assert.Equal(t, before, answers.Leaves())
}

func TestValidator_AbsentPathIsNotSatisfied(t *testing.T) {
	// Predicates are total: absent paths read as not-satisfied, never panic.
	steps := []domain.StepDefinition{
		{ID: "s", Predicate: `answer("a.b.c") == "x"`},
	}
	v, err := CompileValidator(steps, logging.NewNop())
	require.NoError(t, err)

	assert.False(t, v.Eval("s", domain.NewAnswerSet()))
}

func TestValidator_UnknownStep(t *testing.T) {
	v, err := CompileValidator(nil, logging.NewNop())
	require.NoError(t, err)
	assert.False(t, v.Eval("ghost", domain.NewAnswerSet()))
}

func TestCompileValidator_MalformedPredicate(t *testing.T) {
	steps := []domain.StepDefinition{
		{ID: "bad", Predicate: `count(`},
	}
	_, err := CompileValidator(steps, logging.NewNop())
	assert.Error(t, err)
}
