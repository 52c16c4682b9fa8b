// Package registry holds the ordered, immutable step sequence of a wizard.
package registry

import (
	"fmt"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// Registry is the ordered, immutable description of a wizard's steps.
// It is constructed once per wizard type and never mutated.
//
// The registry itself permits random access to any position; gating forward
// navigation past unvalidated steps is a caller policy, not enforced here.
type Registry struct {
	steps   []domain.StepDefinition
	ordinal map[string]int
}

// New builds a registry from an ordered step list. It fails on duplicate
// step IDs, which are a definition error.
func New(steps []domain.StepDefinition) (*Registry, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("registry requires at least one step")
	}
	r := &Registry{
		steps:   make([]domain.StepDefinition, len(steps)),
		ordinal: make(map[string]int, len(steps)),
	}
	copy(r.steps, steps)
	for i, s := range steps {
		if s.ID == "" {
			return nil, fmt.Errorf("step at position %d: missing id", i)
		}
		if _, exists := r.ordinal[s.ID]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateStep, s.ID)
		}
		r.ordinal[s.ID] = i
	}
	return r, nil
}

// Len returns the number of steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// At returns the step at ordinal i, or domain.ErrStepOutOfRange if i is
// outside [0, Len).
func (r *Registry) At(i int) (domain.StepDefinition, error) {
	if i < 0 || i >= len(r.steps) {
		return domain.StepDefinition{}, fmt.Errorf("%w: %d (len %d)", domain.ErrStepOutOfRange, i, len(r.steps))
	}
	return r.steps[i], nil
}

// IndexOf returns the ordinal of the step with the given ID.
func (r *Registry) IndexOf(id string) (int, bool) {
	i, ok := r.ordinal[id]
	return i, ok
}

// IsFirst reports whether i is the first position.
func (r *Registry) IsFirst(i int) bool {
	return i == 0
}

// IsLast reports whether i is the last position.
func (r *Registry) IsLast(i int) bool {
	return i == len(r.steps)-1
}

// IDs returns the step IDs in order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.steps))
	for i, s := range r.steps {
		ids[i] = s.ID
	}
	return ids
}

// Steps returns a copy of the step definitions in order.
func (r *Registry) Steps() []domain.StepDefinition {
	out := make([]domain.StepDefinition, len(r.steps))
	copy(out, r.steps)
	return out
}
