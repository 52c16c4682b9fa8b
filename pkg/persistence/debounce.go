// Package persistence provides the debounced autosave side channel between
// a wizard session and its draft store.
package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/ports"
)

// DefaultDelay is the debounce window for draft writes.
const DefaultDelay = 900 * time.Millisecond

// writeTimeout bounds a single background store write.
const writeTimeout = 5 * time.Second

// Saver coalesces rapid Schedule calls into a single store write carrying
// the latest draft (last-write-wins, no queued writes). Writes are
// best-effort: failures are logged and swallowed, and the in-memory answer
// set stays authoritative for the session.
type Saver struct {
	store ports.DraftStore
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *domain.DraftRecord
	closed  bool

	onSave func(context.Context, *domain.SaveEvent)
	logger *slog.Logger
}

// Option configures the Saver.
type Option func(*Saver)

// WithDelay overrides the debounce window.
func WithDelay(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger configures a logger for deferred write errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = logger
	}
}

// WithSaveHook registers a callback fired after every write attempt.
func WithSaveHook(fn func(context.Context, *domain.SaveEvent)) Option {
	return func(s *Saver) {
		s.onSave = fn
	}
}

// NewSaver creates a debounced saver over the given store.
func NewSaver(store ports.DraftStore, opts ...Option) *Saver {
	s := &Saver{
		store:  store,
		delay:  DefaultDelay,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule resets the debounce timer with the given draft. Calls landing
// before expiry replace the pending draft, so only the final state is ever
// written.
func (s *Saver) Schedule(draft *domain.DraftRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = draft
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// fire writes the pending draft from the timer goroutine.
func (s *Saver) fire() {
	s.mu.Lock()
	draft := s.pending
	s.pending = nil
	s.mu.Unlock()
	if draft == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	s.write(ctx, draft)
}

// Flush cancels any pending timer and writes the pending draft immediately.
// A flush with nothing pending is a no-op.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	draft := s.pending
	s.pending = nil
	s.mu.Unlock()

	if draft == nil {
		return nil
	}
	return s.write(ctx, draft)
}

// Close flushes and rejects further schedules.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *Saver) write(ctx context.Context, draft *domain.DraftRecord) error {
	err := s.store.Save(ctx, draft)
	if err != nil {
		// Best-effort semantics: the user is never blocked on storage.
		s.logger.Warn("draft write failed", "draft", draft.ID, "err", err)
	}
	if s.onSave != nil {
		ev := &domain.SaveEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.EventSave,
				DraftID:   draft.ID,
			},
		}
		if err != nil {
			ev.Err = err.Error()
		}
		s.onSave(ctx, ev)
	}
	return err
}

// Load retrieves a draft for session resume. A missing draft is not an
// error for the caller: it returns (nil, nil) so the wizard starts empty.
func (s *Saver) Load(ctx context.Context, draftID string) (*domain.DraftRecord, error) {
	draft, err := s.store.Load(ctx, draftID)
	if err != nil {
		if err == domain.ErrDraftNotFound {
			return nil, nil
		}
		return nil, err
	}
	return draft, nil
}
