package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/persistence"
)

// countingStore records every write.
type countingStore struct {
	mu     sync.Mutex
	writes []*domain.DraftRecord
	failAll bool
}

func (s *countingStore) Save(ctx context.Context, draft *domain.DraftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("quota exceeded")
	}
	s.writes = append(s.writes, draft)
	return nil
}

func (s *countingStore) Load(ctx context.Context, id string) (*domain.DraftRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.writes) - 1; i >= 0; i-- {
		if s.writes[i].ID == id {
			return s.writes[i], nil
		}
	}
	return nil, domain.ErrDraftNotFound
}

func (s *countingStore) Delete(ctx context.Context, id string) error { return nil }
func (s *countingStore) List(ctx context.Context) ([]string, error)  { return nil, nil }

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *countingStore) last() *domain.DraftRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 {
		return nil
	}
	return s.writes[len(s.writes)-1]
}

func draft(seq int) *domain.DraftRecord {
	return &domain.DraftRecord{
		ID:      "d1",
		Answers: domain.NewAnswerSet().Set("seq", fmt.Sprintf("%d", seq)),
	}
}

func TestSaver_CoalescesRapidSchedules(t *testing.T) {
	store := &countingStore{}
	saver := persistence.NewSaver(store, persistence.WithDelay(30*time.Millisecond))

	// 10 rapid schedules within the window -> exactly one write, carrying
	// the 10th state.
	for i := 1; i <= 10; i++ {
		saver.Schedule(draft(i))
	}

	assert.Eventually(t, func() bool {
		return store.count() == 1
	}, time.Second, 5*time.Millisecond)

	// Give a late duplicate write a chance to appear, then re-check.
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, store.count())

	v, _ := store.last().Answers.Get("seq")
	assert.Equal(t, "10", v)
}

func TestSaver_FlushWritesImmediately(t *testing.T) {
	store := &countingStore{}
	saver := persistence.NewSaver(store, persistence.WithDelay(time.Hour))

	saver.Schedule(draft(1))
	require.NoError(t, saver.Flush(context.Background()))
	assert.Equal(t, 1, store.count())

	// Nothing pending: flush is a no-op.
	require.NoError(t, saver.Flush(context.Background()))
	assert.Equal(t, 1, store.count())
}

func TestSaver_WriteFailureIsSwallowedBySchedule(t *testing.T) {
	store := &countingStore{failAll: true}

	var events []*domain.SaveEvent
	var mu sync.Mutex
	saver := persistence.NewSaver(store,
		persistence.WithDelay(10*time.Millisecond),
		persistence.WithSaveHook(func(_ context.Context, e *domain.SaveEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}),
	)

	saver.Schedule(draft(1))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0].Err != ""
	}, time.Second, 5*time.Millisecond)
}

func TestSaver_CloseRejectsFurtherSchedules(t *testing.T) {
	store := &countingStore{}
	saver := persistence.NewSaver(store, persistence.WithDelay(time.Hour))

	saver.Schedule(draft(1))
	require.NoError(t, saver.Close(context.Background()))
	assert.Equal(t, 1, store.count())

	saver.Schedule(draft(2))
	require.NoError(t, saver.Flush(context.Background()))
	assert.Equal(t, 1, store.count())
}

func TestSaver_LoadMissingDraftStartsEmpty(t *testing.T) {
	saver := persistence.NewSaver(&countingStore{})

	got, err := saver.Load(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}
