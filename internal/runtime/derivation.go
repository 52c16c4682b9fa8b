package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/verdantlabs/espalier/pkg/domain"
)

// Complete drives the derivation handoff: it freezes the answer set, calls
// the compiler, and forwards the resulting artifact to the consumer.
//
// Compiler failure is recovered locally via the fallback generator and
// surfaced only as a non-blocking notice on the derive hook. A cancelled ctx
// is the one distinct terminal failure: the session ends in PhaseCancelled
// and the downstream consumer is never touched.
func (s *Session) Complete(ctx context.Context) (*domain.DerivedArtifact, error) {
	s.mu.Lock()

	if s.phase != domain.PhaseCollecting {
		phase := s.phase
		s.mu.Unlock()
		return nil, fmt.Errorf("%w (phase %s)", domain.ErrSessionDone, phase)
	}

	// Freeze: one final snapshot, then no more mutations.
	frozen := s.answers
	s.setPhase(ctx, domain.PhaseCompleting, "")
	if s.saver != nil {
		if err := s.saver.Flush(ctx); err != nil {
			s.logger.Warn("draft flush before derivation failed", "draft", s.draftID, "err", err)
		}
	}
	s.setPhase(ctx, domain.PhaseDeriving, "")

	// The compiler call is unbounded; release the lock so concurrent
	// reads (Phase, Answers, step views) stay responsive. The Deriving
	// phase keeps every mutation out until we re-acquire.
	s.mu.Unlock()
	artifact, err := s.derive(ctx, frozen)
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		// The initiating view went away; do not mutate the downstream store.
		s.setPhase(ctx, domain.PhaseCancelled, "")
		return nil, ctx.Err()
	}
	if err != nil {
		s.logger.Warn("remote derivation failed, using local fallback", "draft", s.draftID, "err", err)
		artifact = s.fallback(s.def.ID, s.draftID, frozen)
		artifact.Fallback = true
		s.setPhase(ctx, domain.PhaseFallback, fmt.Sprintf("derivation service unavailable, generated locally: %v", err))
	} else {
		s.setPhase(ctx, domain.PhaseDerived, "")
	}

	now := time.Now().UTC()
	s.completedAt = &now
	if s.saver != nil {
		s.saver.Schedule(s.draftLocked())
		if err := s.saver.Flush(ctx); err != nil {
			s.logger.Warn("completed draft write failed", "draft", s.draftID, "err", err)
		}
	}

	if s.consumer != nil {
		if err := s.consumer.Accept(ctx, artifact, frozen); err != nil {
			// Ownership still transfers; the consumer owns its own retries.
			s.logger.Warn("artifact consumer rejected handoff", "draft", s.draftID, "err", err)
		}
	}
	s.setPhase(ctx, domain.PhaseHandedOff, "")
	return artifact, nil
}

// derive runs the compiler, or the local generator when none is configured.
func (s *Session) derive(ctx context.Context, frozen domain.AnswerSet) (*domain.DerivedArtifact, error) {
	if s.compiler == nil {
		return s.fallback(s.def.ID, s.draftID, frozen), nil
	}
	artifact, err := s.compiler.Compile(ctx, frozen)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, fmt.Errorf("compiler returned no artifact")
	}
	artifact.WizardID = s.def.ID
	artifact.DraftID = s.draftID
	if artifact.Source == nil {
		artifact.Source = frozen
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	return artifact, nil
}

func (s *Session) setPhase(ctx context.Context, phase domain.Phase, notice string) {
	s.phase = phase
	if s.hooks.OnDerive != nil {
		s.hooks.OnDerive(ctx, &domain.DeriveEvent{
			EventBase: s.eventBase(domain.EventDerive),
			Phase:     phase,
			Notice:    notice,
		})
	}
}

// DefaultFallback is the local, synchronous substitute for the remote
// compiler. It produces a single profile whose traits are the flattened
// answer leaves, so the artifact is never empty for a non-trivial draft.
func DefaultFallback(wizardID, draftID string, answers domain.AnswerSet) *domain.DerivedArtifact {
	leaves := answers.Leaves()
	traits := make(map[string]any, len(leaves))
	paths := make([]string, 0, len(leaves))
	for p, v := range leaves {
		traits[string(p)] = v
		paths = append(paths, string(p))
	}
	sort.Strings(paths)

	return &domain.DerivedArtifact{
		WizardID: wizardID,
		DraftID:  draftID,
		Profiles: []domain.Profile{{
			ID:      draftID + "-p0",
			Name:    "Draft profile",
			Summary: fmt.Sprintf("Derived locally from %d answered fields", len(paths)),
			Traits:  traits,
		}},
		Source:    answers,
		CreatedAt: time.Now().UTC(),
	}
}
