package domain

import "time"

// Phase tracks the derivation handoff state machine of a session.
type Phase string

const (
	// PhaseCollecting is normal step-by-step operation.
	PhaseCollecting Phase = "collecting"
	// PhaseCompleting means the answers are frozen and about to be compiled.
	PhaseCompleting Phase = "completing"
	// PhaseDeriving means the compiler call is in flight.
	PhaseDeriving Phase = "deriving"
	// PhaseDerived means the compiler returned an artifact.
	PhaseDerived Phase = "derived"
	// PhaseFallback means the compiler failed and the local generator
	// produced the artifact instead.
	PhaseFallback Phase = "fallback"
	// PhaseCancelled means derivation was abandoned because the initiating
	// context was cancelled. The downstream store is left untouched.
	PhaseCancelled Phase = "cancelled"
	// PhaseHandedOff is terminal: ownership of the artifact passed to the
	// downstream consumer.
	PhaseHandedOff Phase = "handed_off"
)

// Terminal reports whether the phase ends the session lifecycle.
func (p Phase) Terminal() bool {
	return p == PhaseHandedOff || p == PhaseCancelled
}

// Profile is one structured record inside a DerivedArtifact, e.g. an ideal
// customer profile or a positioning statement.
type Profile struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Summary string         `json:"summary,omitempty"`
	Traits  map[string]any `json:"traits,omitempty"`
}

// DerivedArtifact is the structured output produced from a finished
// AnswerSet. The wizard engine produces it and forwards ownership to the
// downstream consumer.
type DerivedArtifact struct {
	WizardID string    `json:"wizard_id"`
	DraftID  string    `json:"draft_id"`
	Profiles []Profile `json:"profiles"`

	// Source is the frozen answer set the artifact was compiled from.
	Source AnswerSet `json:"source,omitempty"`

	// Fallback marks artifacts produced by the local generator after a
	// compiler failure.
	Fallback bool `json:"fallback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
