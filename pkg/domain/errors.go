package domain

import "errors"

// ErrDraftNotFound is returned when a draft ID cannot be found in the store.
var ErrDraftNotFound = errors.New("draft not found")

// ErrStepOutOfRange is returned for step ordinals outside [0, len).
var ErrStepOutOfRange = errors.New("step index out of range")

// ErrUnknownStep is returned when a step ID does not exist in the registry.
var ErrUnknownStep = errors.New("unknown step")

// ErrDuplicateStep is returned at construction for repeated step IDs.
var ErrDuplicateStep = errors.New("duplicate step id")

// ErrCyclicRules is returned at construction when the default-rule
// trigger/target graph contains a cycle.
var ErrCyclicRules = errors.New("cyclic default rules")

// ErrSessionDone is returned for mutations after the session reached a
// terminal phase.
var ErrSessionDone = errors.New("session already handed off")
