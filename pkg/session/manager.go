// Package session coordinates concurrent access to stored wizard drafts.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates draft access, ensuring safe concurrent operations on
// the same draft ID. It uses reference counting to garbage collect unused
// locks.
//
// One wizard instance owns its draft exclusively; the manager only protects
// hosts (HTTP, MCP) that may receive overlapping requests for one draft.
type Manager struct {
	store ports.DraftStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new draft manager with the given persistence store.
func NewManager(store ports.DraftStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(draftID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[draftID]
	if !exists {
		entry = &lockEntry{}
		m.locks[draftID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(draftID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[draftID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, draftID)
	}
}

// WithLock executes fn while holding the lock for the draft.
func (m *Manager) WithLock(ctx context.Context, draftID string, fn func(context.Context) error) error {
	entry := m.acquire(draftID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(draftID)
	}()
	return fn(ctx)
}

// Load retrieves an existing draft from the store.
func (m *Manager) Load(ctx context.Context, draftID string) (*domain.DraftRecord, error) {
	var draft *domain.DraftRecord
	err := m.WithLock(ctx, draftID, func(ctx context.Context) error {
		var err error
		draft, err = m.store.Load(ctx, draftID)
		return err
	})
	return draft, err
}

// LoadOrStart tries to load a draft. If not found, it initializes an empty
// one for wizardID and persists it immediately to reserve the ID.
func (m *Manager) LoadOrStart(ctx context.Context, draftID, wizardID string) (*domain.DraftRecord, error) {
	var draft *domain.DraftRecord
	err := m.WithLock(ctx, draftID, func(ctx context.Context) error {
		var err error
		draft, err = m.store.Load(ctx, draftID)
		if err == nil {
			return nil
		}

		if err != domain.ErrDraftNotFound {
			return fmt.Errorf("failed to check draft existence: %w", err)
		}

		draft = &domain.DraftRecord{
			ID:       draftID,
			WizardID: wizardID,
			Answers:  domain.NewAnswerSet(),
			SavedAt:  time.Now().UTC(),
		}
		if err := m.store.Save(ctx, draft); err != nil {
			return fmt.Errorf("failed to initialize draft: %w", err)
		}
		return nil
	})
	return draft, err
}

// Start creates a brand-new draft with a generated ID.
func (m *Manager) Start(ctx context.Context, wizardID string) (*domain.DraftRecord, error) {
	return m.LoadOrStart(ctx, uuid.NewString(), wizardID)
}

// Save persists the draft under its lock.
func (m *Manager) Save(ctx context.Context, draft *domain.DraftRecord) error {
	return m.WithLock(ctx, draft.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, draft)
	})
}

// Delete removes the draft from the store.
func (m *Manager) Delete(ctx context.Context, draftID string) error {
	return m.WithLock(ctx, draftID, func(ctx context.Context) error {
		return m.store.Delete(ctx, draftID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying draft store.
func (m *Manager) Store() ports.DraftStore {
	return m.store
}
