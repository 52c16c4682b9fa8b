package domain

// History is the append-only undo log layered over the AnswerSet. It always
// holds at least one snapshot (the seed), and the snapshot at the cursor is
// exactly the AnswerSet the rest of the engine sees.
//
// Committing after one or more undos discards the abandoned branch, so redo
// is only available until the next commit (classic branch-discarding undo).
type History struct {
	snapshots []AnswerSet
	cursor    int
}

// NewHistory seeds the history with the initial (possibly empty) answer set.
func NewHistory(initial AnswerSet) *History {
	if initial == nil {
		initial = NewAnswerSet()
	}
	return &History{snapshots: []AnswerSet{initial}}
}

// Commit appends state as a new snapshot, discarding any snapshots beyond
// the cursor, and advances the cursor to point at it.
func (h *History) Commit(state AnswerSet) {
	h.snapshots = append(h.snapshots[:h.cursor+1], state)
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor back one snapshot and returns it. At the seed
// snapshot it is a no-op and returns (current, false).
func (h *History) Undo() (AnswerSet, bool) {
	if h.cursor == 0 {
		return h.Current(), false
	}
	h.cursor--
	return h.Current(), true
}

// Redo moves the cursor forward one snapshot and returns it. At the tip it
// is a no-op and returns (current, false).
func (h *History) Redo() (AnswerSet, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return h.Current(), false
	}
	h.cursor++
	return h.Current(), true
}

// Current returns the snapshot at the cursor.
func (h *History) Current() AnswerSet {
	return h.snapshots[h.cursor]
}

// Len returns the number of snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// Cursor returns the current cursor position.
func (h *History) Cursor() int {
	return h.cursor
}

// CanUndo reports whether an undo would move the cursor.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether a redo would move the cursor.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.snapshots)-1
}
