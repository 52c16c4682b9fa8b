package domain

// StepDefinition describes one screen of a wizard. Definitions are immutable
// once the wizard is constructed; order is significant and fixed for a given
// wizard instance.
type StepDefinition struct {
	// ID uniquely identifies the step within its wizard.
	ID string `json:"id" yaml:"id"`

	// Title is a short human-readable label.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Prompt is the markdown content the host renders for this step.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Optional marks a step whose predicate never gates forward progress.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Predicate is an expression over the AnswerSet that must evaluate to
	// true for the step to be valid. An empty predicate is always true.
	// e.g. `count("audience.pains") > 0`
	Predicate string `json:"predicate,omitempty" yaml:"predicate,omitempty"`

	// Inputs lists the answer fields the predicate reads. Edits outside
	// this set do not invalidate the step's cached validity.
	Inputs []FieldPath `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// DefaultRule describes a reactive default: when Trigger changes, Compute is
// evaluated against the new AnswerSet and, if it yields a non-nil value and
// Target is currently unset (or an empty list), the value is written to
// Target. A rule never overwrites a user-provided answer.
type DefaultRule struct {
	Trigger FieldPath `json:"trigger" yaml:"trigger"`
	Target  FieldPath `json:"target" yaml:"target"`

	// Compute is an expression over the AnswerSet returning the suggested
	// value, or nil to skip.
	Compute string `json:"compute" yaml:"compute"`
}

// WizardDefinition is the full, immutable description of one wizard type:
// its ordered steps plus the default-propagation rules between them.
type WizardDefinition struct {
	ID    string           `json:"id" yaml:"id"`
	Title string           `json:"title,omitempty" yaml:"title,omitempty"`
	Steps []StepDefinition `json:"steps" yaml:"steps"`
	Rules []DefaultRule    `json:"rules,omitempty" yaml:"rules,omitempty"`
}
