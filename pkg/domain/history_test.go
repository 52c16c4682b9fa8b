package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_CommitAndCurrent(t *testing.T) {
	h := NewHistory(nil)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, h.Cursor())

	s1 := NewAnswerSet().Set("x", "1")
	h.Commit(s1)
	s2 := s1.Set("y", "2")
	h.Commit(s2)

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Cursor())
	assert.Equal(t, s2, h.Current())
}

func TestHistory_UndoToSeed(t *testing.T) {
	seed := NewAnswerSet()
	h := NewHistory(seed)

	h.Commit(seed.Set("a", "1"))
	h.Commit(seed.Set("a", "2"))

	_, ok := h.Undo()
	assert.True(t, ok)
	_, ok = h.Undo()
	assert.True(t, ok)
	assert.Equal(t, seed, h.Current())

	// Undo beyond the seed is a no-op; cursor stays at 0.
	cur, ok := h.Undo()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Cursor())
	assert.Equal(t, seed, cur)
}

func TestHistory_RedoUntilNextCommit(t *testing.T) {
	h := NewHistory(nil)
	s1 := NewAnswerSet().Set("a", "1")
	h.Commit(s1)

	h.Undo()
	cur, ok := h.Redo()
	assert.True(t, ok)
	assert.Equal(t, s1, cur)

	// At the tip, redo is a no-op.
	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestHistory_CommitDiscardsRedoBranch(t *testing.T) {
	h := NewHistory(nil)
	h.Commit(NewAnswerSet().Set("a", "1"))
	h.Commit(NewAnswerSet().Set("a", "2"))
	h.Commit(NewAnswerSet().Set("a", "3"))

	h.Undo()
	h.Undo()
	assert.Equal(t, 1, h.Cursor())

	branch := NewAnswerSet().Set("b", "1")
	h.Commit(branch)

	// snapshots = seed, a=1, b=1 -> cursor+2 relative to pre-commit cursor.
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, h.Cursor()+1, h.Len())
	assert.Equal(t, branch, h.Current())
	assert.False(t, h.CanRedo())
}

func TestHistory_Replay(t *testing.T) {
	// The snapshot at the cursor always equals the replay of all ops.
	h := NewHistory(nil)
	state := NewAnswerSet()

	ops := []struct {
		path FieldPath
		item any
	}{
		{"audience.pains", "churn"},
		{"audience.pains", "cac"},
		{"tone.style", "dry"},
		{"audience.pains", "churn"},
	}
	for _, op := range ops {
		state = state.Toggle(op.path, op.item)
		h.Commit(state)
	}

	assert.Equal(t, state, h.Current())
	assert.Equal(t, len(ops), h.Cursor())
}
