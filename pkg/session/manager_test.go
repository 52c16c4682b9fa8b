package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.DraftRecord
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, draft *domain.DraftRecord) error {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.DraftRecord)
	}
	s.data[draft.ID] = draft
	return nil
}

func (s *SlowStore) Load(ctx context.Context, draftID string) (*domain.DraftRecord, error) {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft, ok := s.data[draftID]; ok {
		return draft, nil
	}
	return nil, domain.ErrDraftNotFound
}

func (s *SlowStore) Delete(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, draftID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_ = manager.Save(ctx, &domain.DraftRecord{ID: id, WizardID: "w"})

	var wg sync.WaitGroup
	concurrentWrites := 10

	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			err := manager.Save(ctx, &domain.DraftRecord{ID: id, WizardID: "w", StepIndex: val})
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()
}

func TestManager_LoadOrStart(t *testing.T) {
	// Verify atomic creation under contention.
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			draft, err := manager.LoadOrStart(ctx, id, "icp-builder")
			assert.NoError(t, err)
			assert.Equal(t, id, draft.ID)
			assert.Equal(t, "icp-builder", draft.WizardID)
		}()
	}
	wg.Wait()

	// Exactly one record exists.
	draft, err := manager.Load(ctx, id)
	assert.NoError(t, err)
	assert.NotNil(t, draft)
}

func TestManager_StartGeneratesID(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	a, err := manager.Start(ctx, "icp-builder")
	assert.NoError(t, err)
	b, err := manager.Start(ctx, "icp-builder")
	assert.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_Delete(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "d1", "w")
	assert.NoError(t, err)
	assert.NoError(t, manager.Delete(ctx, "d1"))

	_, err = manager.Load(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrDraftNotFound)
}
