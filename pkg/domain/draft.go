package domain

import "time"

// DraftRecord is the externally persisted form of an in-progress wizard
// session. It is created on first mutation, overwritten on every debounced
// save, and superseded by a completed record when the wizard finishes.
type DraftRecord struct {
	// ID is the stable draft identifier (one per wizard instance/session).
	ID string `json:"id"`

	// WizardID names the WizardDefinition this draft belongs to.
	WizardID string `json:"wizard_id"`

	// Answers is the serialized answer set at save time.
	Answers AnswerSet `json:"answers"`

	// Unsure maps step IDs the user flagged as low-confidence. Unsure flags
	// never block progress.
	Unsure map[string]bool `json:"unsure,omitempty"`

	// StepIndex is the step the user was on when the draft was saved.
	StepIndex int `json:"step_index"`

	// SavedAt is the time of the last successful write.
	SavedAt time.Time `json:"saved_at"`

	// CompletedAt is set once the wizard finished and derivation ran.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the draft reached the end of its wizard.
func (d *DraftRecord) Completed() bool {
	return d.CompletedAt != nil
}
