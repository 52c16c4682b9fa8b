// Package memory provides an in-memory DraftStore, suitable for tests and
// single-process deployments without persistence requirements.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// Store implements ports.DraftStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the draft in memory. Records are stored serialized so the
// store behaves like the durable adapters: callers cannot mutate a saved
// draft through a retained pointer.
func (s *Store) Save(ctx context.Context, draft *domain.DraftRecord) error {
	if draft == nil || draft.ID == "" {
		return fmt.Errorf("draft ID cannot be empty")
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[draft.ID] = data
	return nil
}

// Load retrieves the draft from memory.
func (s *Store) Load(ctx context.Context, draftID string) (*domain.DraftRecord, error) {
	s.mu.RLock()
	data, ok := s.data[draftID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrDraftNotFound
	}

	var draft domain.DraftRecord
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}

	return &draft, nil
}

// Delete removes the draft.
func (s *Store) Delete(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, draftID)
	return nil
}

// List returns the IDs of all stored drafts.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
