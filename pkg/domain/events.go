package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommit    EventType = "commit"
	EventUndo      EventType = "undo"
	EventRedo      EventType = "redo"
	EventStepEnter EventType = "step_enter"
	EventSave      EventType = "save"
	EventDerive    EventType = "derive"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	DraftID   string    `json:"draft_id"`
}

// CommitEvent represents a committed mutation of the answer set, including
// the snapshots produced by undo/redo traversal.
type CommitEvent struct {
	EventBase
	Path FieldPath `json:"path,omitempty"`
	// ByRule marks commits performed by default propagation rather than
	// direct user input.
	ByRule bool `json:"by_rule,omitempty"`
	Cursor int  `json:"cursor"`
}

// StepEvent represents entering a step.
type StepEvent struct {
	EventBase
	StepID string `json:"step_id"`
	Index  int    `json:"index"`
}

// SaveEvent represents a (possibly failed) persistence write.
type SaveEvent struct {
	EventBase
	Err string `json:"err,omitempty"`
}

// DeriveEvent represents a phase change of the derivation handoff.
type DeriveEvent struct {
	EventBase
	Phase Phase `json:"phase"`
	// Notice carries the non-blocking message shown when falling back to
	// local derivation.
	Notice string `json:"notice,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks are
// optional and must not block; they run synchronously on the committing
// goroutine.
type LifecycleHooks struct {
	OnCommit    func(context.Context, *CommitEvent)
	OnUndo      func(context.Context, *CommitEvent)
	OnRedo      func(context.Context, *CommitEvent)
	OnStepEnter func(context.Context, *StepEvent)
	OnSave      func(context.Context, *SaveEvent)
	OnDerive    func(context.Context, *DeriveEvent)
}
