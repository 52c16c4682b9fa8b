package runner

import (
	"context"
	"sync"
)

// Action is a bound command handler.
type Action func(ctx context.Context) error

// Keymap routes command words (":undo", ":back") to actions.
//
// Bind returns an unbind handle owned by the caller: releasing a binding is
// done through that handle, never by key name, so two components can not
// accidentally tear down each other's bindings. Rebinding a key replaces
// the action and invalidates the previous handle.
type Keymap struct {
	mu       sync.Mutex
	bindings map[string]*binding
}

type binding struct {
	fn Action
}

// NewKeymap creates an empty keymap.
func NewKeymap() *Keymap {
	return &Keymap{bindings: make(map[string]*binding)}
}

// Bind associates key with fn and returns the handle that removes exactly
// this binding. Calling the handle after the key was rebound is a no-op.
func (k *Keymap) Bind(key string, fn Action) (unbind func()) {
	b := &binding{fn: fn}

	k.mu.Lock()
	k.bindings[key] = b
	k.mu.Unlock()

	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		if current, ok := k.bindings[key]; ok && current == b {
			delete(k.bindings, key)
		}
	}
}

// Lookup returns the action bound to key.
func (k *Keymap) Lookup(key string) (Action, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.bindings[key]
	if !ok {
		return nil, false
	}
	return b.fn, true
}

// Keys returns the bound command words.
func (k *Keymap) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, len(k.bindings))
	for key := range k.bindings {
		keys = append(keys, key)
	}
	return keys
}
