package runtime

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/verdantlabs/espalier/pkg/domain"
)

// compiledRule pairs a default rule with its compiled compute expression.
type compiledRule struct {
	def     domain.DefaultRule
	program *vm.Program
}

// RuleSet holds the compiled default-propagation rules of a wizard.
// Immutable after compilation and shared across sessions.
type RuleSet struct {
	rules  []compiledRule
	logger *slog.Logger
}

// CompileRules compiles every rule's compute expression and statically
// rejects cyclic trigger->target graphs, which could otherwise chain
// forever. Cycles are a definition error.
func CompileRules(rules []domain.DefaultRule, logger *slog.Logger) (*RuleSet, error) {
	rs := &RuleSet{logger: logger}
	for i, r := range rules {
		if r.Trigger == "" || r.Target == "" {
			return nil, fmt.Errorf("rule %d: trigger and target are required", i)
		}
		program, err := expr.Compile(r.Compute, expr.Env(predicateEnv(nil)))
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s -> %s): compile %q: %w", i, r.Trigger, r.Target, r.Compute, err)
		}
		rs.rules = append(rs.rules, compiledRule{def: r, program: program})
	}
	if err := rs.checkAcyclic(); err != nil {
		return nil, err
	}
	return rs, nil
}

// checkAcyclic walks the rule graph where an edge exists from rule A to rule
// B when A's target overlaps B's trigger.
func (rs *RuleSet) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(rs.rules))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visiting:
			r := rs.rules[i].def
			return fmt.Errorf("%w: rule %s -> %s participates in a cycle", domain.ErrCyclicRules, r.Trigger, r.Target)
		case done:
			return nil
		}
		state[i] = visiting
		for j := range rs.rules {
			if pathsOverlap(rs.rules[i].def.Target, rs.rules[j].def.Trigger) {
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}

	for i := range rs.rules {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// suggestion is a default value a rule wants to write.
type suggestion struct {
	target domain.FieldPath
	value  any
}

// Triggered evaluates the rules whose trigger overlaps the touched path
// against answers and returns the defaults to apply. A rule yields nothing
// when its compute returns nil or when the target already holds a
// user-provided value; defaults are suggestions that never clobber input.
func (rs *RuleSet) Triggered(touched domain.FieldPath, answers domain.AnswerSet) []suggestion {
	var out []suggestion
	for _, r := range rs.rules {
		if !pathsOverlap(touched, r.def.Trigger) {
			continue
		}
		if !answers.IsEmptyAt(r.def.Target) {
			continue
		}
		value, err := expr.Run(r.program, predicateEnv(answers))
		if err != nil {
			rs.logger.Debug("default rule evaluation failed, skipping",
				"trigger", r.def.Trigger, "target", r.def.Target, "err", err)
			continue
		}
		if value == nil {
			continue
		}
		out = append(out, suggestion{target: r.def.Target, value: value})
	}
	return out
}
