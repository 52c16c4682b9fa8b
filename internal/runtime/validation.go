package runtime

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/verdantlabs/espalier/pkg/domain"
)

// Validator holds the compiled validity predicates of a wizard. It is
// immutable after compilation and safe to share across sessions; per-session
// caching lives in the Session.
type Validator struct {
	programs map[string]*vm.Program
	steps    map[string]domain.StepDefinition
	logger   *slog.Logger
}

// CompileValidator compiles every step predicate. Predicates are expressions
// over the answer set; a malformed predicate is a definition error and
// aborts wizard construction.
func CompileValidator(steps []domain.StepDefinition, logger *slog.Logger) (*Validator, error) {
	v := &Validator{
		programs: make(map[string]*vm.Program, len(steps)),
		steps:    make(map[string]domain.StepDefinition, len(steps)),
		logger:   logger,
	}
	for _, s := range steps {
		v.steps[s.ID] = s
		if s.Predicate == "" {
			continue
		}
		program, err := expr.Compile(s.Predicate, expr.Env(predicateEnv(nil)), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("step %s: compile predicate %q: %w", s.ID, s.Predicate, err)
		}
		v.programs[s.ID] = program
	}
	return v, nil
}

// Eval evaluates the predicate of stepID against answers. It is pure and
// total: optional steps and steps without a predicate are always valid, and
// a runtime evaluation error counts as not-satisfied rather than failing.
func (v *Validator) Eval(stepID string, answers domain.AnswerSet) bool {
	step, ok := v.steps[stepID]
	if !ok {
		return false
	}
	if step.Optional {
		return true
	}
	program, ok := v.programs[stepID]
	if !ok {
		return true
	}
	output, err := expr.Run(program, predicateEnv(answers))
	if err != nil {
		v.logger.Debug("predicate evaluation failed, treating as invalid",
			"step", stepID, "err", err)
		return false
	}
	result, _ := output.(bool)
	return result
}

// Inputs returns the declared predicate inputs of stepID. A step that
// declares no inputs is re-validated on every edit.
func (v *Validator) Inputs(stepID string) []domain.FieldPath {
	return v.steps[stepID].Inputs
}

// predicateEnv builds the expression environment. Field access goes through
// helper functions so that absent paths read as not-satisfied instead of
// erroring.
func predicateEnv(answers domain.AnswerSet) map[string]any {
	return map[string]any{
		"answers": map[string]any(answers),
		"has": func(path string) bool {
			_, ok := answers.Get(domain.FieldPath(path))
			return ok
		},
		"answer": func(path string) any {
			v, _ := answers.Get(domain.FieldPath(path))
			return v
		},
		"count": func(path string) int {
			return len(answers.GetList(domain.FieldPath(path)))
		},
		"empty": func(path string) bool {
			return answers.IsEmptyAt(domain.FieldPath(path))
		},
	}
}
