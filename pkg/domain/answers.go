package domain

import (
	"reflect"
	"strings"
)

// FieldPath addresses a leaf inside an AnswerSet using dot notation,
// e.g. "audience.pains" or "company.size".
type FieldPath string

// Segments splits the path into its map keys.
func (p FieldPath) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// AnswerSet is a partial, nested record of user answers. Leaves are scalars
// or ordered lists of scalars ([]any). "Unset" is represented by absence;
// nil is never stored as a sentinel.
//
// All write operations are copy-on-write: they return a new AnswerSet that
// shares untouched subtrees with the receiver. An AnswerSet handed out by
// these methods must therefore be treated as immutable, which is what makes
// History snapshots cheap.
type AnswerSet map[string]any

// NewAnswerSet returns an empty answer set.
func NewAnswerSet() AnswerSet {
	return AnswerSet{}
}

// Get returns the value at path and whether it is set.
func (a AnswerSet) Get(path FieldPath) (any, bool) {
	segs := path.Segments()
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = map[string]any(a)
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			if am, isSet := cur.(AnswerSet); isSet {
				m = am
			} else {
				return nil, false
			}
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// GetList returns the list at path, or nil if the path is unset or not
// list-valued.
func (a AnswerSet) GetList(path FieldPath) []any {
	v, ok := a.Get(path)
	if !ok {
		return nil
	}
	list, _ := v.([]any)
	return list
}

// Set returns a new AnswerSet with the leaf at path replaced by value.
// Ancestor maps along the path are copied; sibling subtrees are shared.
// A nil value is equivalent to Unset: absence is the only unset
// representation, so nil never lands in the tree as a sentinel.
func (a AnswerSet) Set(path FieldPath, value any) AnswerSet {
	segs := path.Segments()
	if len(segs) == 0 {
		return a
	}
	if value == nil {
		return AnswerSet(unsetIn(map[string]any(a), segs))
	}
	return AnswerSet(setIn(map[string]any(a), segs, value))
}

// Unset returns a new AnswerSet with the leaf at path removed. Removing an
// absent path is a no-op that still returns a fresh root.
func (a AnswerSet) Unset(path FieldPath) AnswerSet {
	segs := path.Segments()
	if len(segs) == 0 {
		return a
	}
	return AnswerSet(unsetIn(map[string]any(a), segs))
}

// Toggle returns a new AnswerSet where item is added to the list at path if
// absent, or removed if present. The relative order of remaining items is
// preserved. An unset path behaves as an empty list. Items are matched with
// reflect.DeepEqual: list items arriving over the wire can hold maps or
// slices, which a plain == comparison would panic on.
func (a AnswerSet) Toggle(path FieldPath, item any) AnswerSet {
	existing := a.GetList(path)
	next := make([]any, 0, len(existing)+1)
	found := false
	for _, v := range existing {
		if reflect.DeepEqual(v, item) {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, item)
	}
	return a.Set(path, next)
}

// SetSingle returns a new AnswerSet where the list at path is replaced by a
// one-element list containing item. Single-select controls are modeled as
// lists for type uniformity.
func (a AnswerSet) SetSingle(path FieldPath, item any) AnswerSet {
	return a.Set(path, []any{item})
}

// IsEmptyAt reports whether the path is unset or holds an empty list.
func (a AnswerSet) IsEmptyAt(path FieldPath) bool {
	v, ok := a.Get(path)
	if !ok {
		return true
	}
	if list, isList := v.([]any); isList {
		return len(list) == 0
	}
	return false
}

// Leaves returns every set leaf path mapped to its value. Useful for
// fallback derivation and debugging; order is not specified.
func (a AnswerSet) Leaves() map[FieldPath]any {
	out := make(map[FieldPath]any)
	collectLeaves("", map[string]any(a), out)
	return out
}

func collectLeaves(prefix string, m map[string]any, out map[FieldPath]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			collectLeaves(path, child, out)
		case AnswerSet:
			collectLeaves(path, map[string]any(child), out)
		default:
			out[FieldPath(path)] = v
		}
	}
}

func setIn(m map[string]any, segs []string, value any) map[string]any {
	next := make(map[string]any, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	head := segs[0]
	if len(segs) == 1 {
		next[head] = value
		return next
	}
	child, _ := next[head].(map[string]any)
	if child == nil {
		child = map[string]any{}
	}
	next[head] = setIn(child, segs[1:], value)
	return next
}

func unsetIn(m map[string]any, segs []string) map[string]any {
	next := make(map[string]any, len(m))
	for k, v := range m {
		next[k] = v
	}
	head := segs[0]
	if len(segs) == 1 {
		delete(next, head)
		return next
	}
	child, ok := next[head].(map[string]any)
	if !ok {
		return next
	}
	next[head] = unsetIn(child, segs[1:])
	return next
}
