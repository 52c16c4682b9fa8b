package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/verdantlabs/espalier/internal/logging"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/ports"
	"github.com/verdantlabs/espalier/pkg/registry"
)

// AdvancePolicy decides which steps must be valid before moving forward.
type AdvancePolicy int

const (
	// PolicyLocal gates advancement on the current step only. Editing an
	// earlier step does not re-check later, already-visited steps.
	PolicyLocal AdvancePolicy = iota
	// PolicyChain re-validates every required step up to and including the
	// current one.
	PolicyChain
)

// Saver is the debounced persistence side channel used by a session.
// Schedule is fire-and-forget; Flush forces any pending write.
type Saver interface {
	Schedule(draft *domain.DraftRecord)
	Flush(ctx context.Context) error
}

// FallbackFunc generates a best-effort artifact locally when the remote
// compiler fails. It must be synchronous and must not return nil.
type FallbackFunc func(wizardID, draftID string, answers domain.AnswerSet) *domain.DerivedArtifact

// Config wires a Session's collaborators. Definition-derived fields
// (Registry, Validator, Rules) are compiled once per wizard and shared.
type Config struct {
	Definition *domain.WizardDefinition
	Registry   *registry.Registry
	Validator  *Validator
	Rules      *RuleSet

	DraftID string
	// Draft resumes a previously saved session. Nil starts empty.
	Draft *domain.DraftRecord

	Saver    Saver
	Compiler ports.Compiler
	Consumer ports.ArtifactConsumer
	Fallback FallbackFunc
	Policy   AdvancePolicy
	Hooks    domain.LifecycleHooks
	Logger   *slog.Logger
}

// Session is one live wizard instance: the answer set, its history, the
// unsure flags and the step position of a single user on a single device.
//
// All mutations run to completion under the session lock, so the answer set
// visible to the rest of the engine is always exactly the history snapshot
// at the cursor. Step position is tracked independently of the history:
// undo rewinds data, never navigation.
type Session struct {
	mu sync.Mutex

	def       *domain.WizardDefinition
	registry  *registry.Registry
	validator *Validator
	rules     *RuleSet

	draftID   string
	answers   domain.AnswerSet
	unsure    map[string]bool
	history   *domain.History
	stepIndex int
	// maxVisited is the highest step ordinal the user has reached; jumps
	// beyond it are rejected.
	maxVisited int

	// validity caches per-step predicate results, invalidated only by
	// commits that touch the step's declared inputs.
	validity map[string]bool

	phase       domain.Phase
	completedAt *time.Time

	saver    Saver
	compiler ports.Compiler
	consumer ports.ArtifactConsumer
	fallback FallbackFunc
	policy   AdvancePolicy
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// NewSession creates a session, seeding answers and history from cfg.Draft
// when resuming. The seeded history holds a single initial snapshot.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Definition == nil || cfg.Registry == nil || cfg.Validator == nil || cfg.Rules == nil {
		return nil, fmt.Errorf("session config incomplete: definition, registry, validator and rules are required")
	}
	if cfg.DraftID == "" {
		return nil, fmt.Errorf("draft id is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallback
	}

	s := &Session{
		def:       cfg.Definition,
		registry:  cfg.Registry,
		validator: cfg.Validator,
		rules:     cfg.Rules,
		draftID:   cfg.DraftID,
		answers:   domain.NewAnswerSet(),
		unsure:    make(map[string]bool),
		validity:  make(map[string]bool),
		phase:     domain.PhaseCollecting,
		saver:     cfg.Saver,
		compiler:  cfg.Compiler,
		consumer:  cfg.Consumer,
		fallback:  cfg.Fallback,
		policy:    cfg.Policy,
		hooks:     cfg.Hooks,
		logger:    cfg.Logger,
	}

	if cfg.Draft != nil {
		if cfg.Draft.Answers != nil {
			s.answers = cfg.Draft.Answers
		}
		for id, flag := range cfg.Draft.Unsure {
			s.unsure[id] = flag
		}
		if cfg.Draft.StepIndex >= 0 && cfg.Draft.StepIndex < cfg.Registry.Len() {
			s.stepIndex = cfg.Draft.StepIndex
		}
	}
	s.maxVisited = s.stepIndex
	s.history = domain.NewHistory(s.answers)
	return s, nil
}

// DraftID returns the stable draft identifier of this session.
func (s *Session) DraftID() string {
	return s.draftID
}

// WizardID returns the definition ID this session runs.
func (s *Session) WizardID() string {
	return s.def.ID
}

// Phase returns the derivation phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Answers returns the current answer set. The returned value is a
// copy-on-write snapshot and must not be mutated in place.
func (s *Session) Answers() domain.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers
}

// Set writes value at path and commits.
func (s *Session) Set(ctx context.Context, path domain.FieldPath, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return err
	}
	s.commit(ctx, s.answers.Set(path, value), path, false)
	return nil
}

// Unset removes the value at path and commits. Absence is the unset
// representation; predicates see the path as never answered.
func (s *Session) Unset(ctx context.Context, path domain.FieldPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return err
	}
	s.commit(ctx, s.answers.Unset(path), path, false)
	return nil
}

// Toggle adds item to the list at path if absent, removes it if present,
// and commits.
func (s *Session) Toggle(ctx context.Context, path domain.FieldPath, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return err
	}
	s.commit(ctx, s.answers.Toggle(path, item), path, false)
	return nil
}

// SetSingle replaces the list at path with a one-element list and commits.
func (s *Session) SetSingle(ctx context.Context, path domain.FieldPath, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return err
	}
	s.commit(ctx, s.answers.SetSingle(path, item), path, false)
	return nil
}

// commit appends the new answer set to history, fires hooks, invalidates
// affected validity caches, runs default propagation and schedules a save.
// Caller holds the lock.
func (s *Session) commit(ctx context.Context, next domain.AnswerSet, path domain.FieldPath, byRule bool) {
	s.history.Commit(next)
	s.answers = next
	s.invalidateValidity(path)
	s.emitCommit(ctx, domain.EventCommit, path, byRule)

	for _, sug := range s.rules.Triggered(path, s.answers) {
		// A rule write commits its own snapshot and may trigger further
		// rules; the static acyclicity check bounds the chain.
		s.commit(ctx, s.answers.Set(sug.target, sug.value), sug.target, true)
	}

	s.scheduleSave(ctx)
}

// Undo rewinds the answer set one snapshot. At the seed it is a no-op.
// Step position is unaffected.
func (s *Session) Undo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCollecting {
		return false
	}
	restored, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.answers = restored
	s.invalidateAllValidity()
	s.emitCommit(ctx, domain.EventUndo, "", false)
	s.scheduleSave(ctx)
	return true
}

// Redo replays one undone snapshot. Available only until the next commit.
func (s *Session) Redo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCollecting {
		return false
	}
	restored, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.answers = restored
	s.invalidateAllValidity()
	s.emitCommit(ctx, domain.EventRedo, "", false)
	s.scheduleSave(ctx)
	return true
}

// History exposes the snapshot log for inspection.
func (s *Session) History() *domain.History {
	return s.history
}

// MarkUnsure records low confidence on a step without blocking progress.
// Unsure flags live outside the answer set and outside history.
func (s *Session) MarkUnsure(ctx context.Context, stepID string, unsure bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry.IndexOf(stepID); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, stepID)
	}
	if unsure {
		s.unsure[stepID] = true
	} else {
		delete(s.unsure, stepID)
	}
	s.scheduleSave(ctx)
	return nil
}

// Unsure reports the flag for a step.
func (s *Session) Unsure(stepID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsure[stepID]
}

// StepIndex returns the current step ordinal.
func (s *Session) StepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepIndex
}

// CurrentStep returns the definition of the current step.
func (s *Session) CurrentStep() domain.StepDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, _ := s.registry.At(s.stepIndex)
	return step
}

// IsValid evaluates the step's predicate against the current answers,
// re-using the cached result when no relevant field changed since.
func (s *Session) IsValid(stepID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isValidLocked(stepID)
}

func (s *Session) isValidLocked(stepID string) bool {
	if cached, ok := s.validity[stepID]; ok {
		return cached
	}
	valid := s.validator.Eval(stepID, s.answers)
	s.validity[stepID] = valid
	return valid
}

func (s *Session) invalidateValidity(touched domain.FieldPath) {
	for id := range s.validity {
		inputs := s.validator.Inputs(id)
		if len(inputs) == 0 || touchesAny(touched, inputs) {
			delete(s.validity, id)
		}
	}
}

func (s *Session) invalidateAllValidity() {
	clear(s.validity)
}

// CanAdvance applies the advance policy to the current position.
func (s *Session) CanAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAdvanceLocked()
}

func (s *Session) canAdvanceLocked() bool {
	switch s.policy {
	case PolicyChain:
		for i := 0; i <= s.stepIndex; i++ {
			step, _ := s.registry.At(i)
			if !s.isValidLocked(step.ID) {
				return false
			}
		}
		return true
	default:
		step, _ := s.registry.At(s.stepIndex)
		return s.isValidLocked(step.ID)
	}
}

// Advance moves to the next step when the policy allows. It returns false
// without error when gated by validation or already on the last step;
// advancing past the last step is Complete's job.
func (s *Session) Advance(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return false, err
	}
	if !s.canAdvanceLocked() {
		return false, nil
	}
	if s.registry.IsLast(s.stepIndex) {
		return false, nil
	}
	s.moveTo(ctx, s.stepIndex+1)
	return true, nil
}

// Back moves to the previous step. No validation gates backward movement.
func (s *Session) Back(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCollecting || s.registry.IsFirst(s.stepIndex) {
		return false
	}
	s.moveTo(ctx, s.stepIndex-1)
	return true
}

// GoTo jumps to a step the user has already visited (e.g. from a review
// screen). Jumping forward past the furthest visited step is rejected.
func (s *Session) GoTo(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCollecting(); err != nil {
		return err
	}
	if i < 0 || i >= s.registry.Len() || i > s.maxVisited {
		return fmt.Errorf("%w: %d", domain.ErrStepOutOfRange, i)
	}
	s.moveTo(ctx, i)
	return nil
}

// moveTo updates the position and fires the step hook. Caller holds the lock.
func (s *Session) moveTo(ctx context.Context, i int) {
	s.stepIndex = i
	if i > s.maxVisited {
		s.maxVisited = i
	}
	step, _ := s.registry.At(i)
	if s.hooks.OnStepEnter != nil {
		s.hooks.OnStepEnter(ctx, &domain.StepEvent{
			EventBase: s.eventBase(domain.EventStepEnter),
			StepID:    step.ID,
			Index:     i,
		})
	}
	s.scheduleSave(ctx)
}

// Draft snapshots the session as a persistable record.
func (s *Session) Draft() *domain.DraftRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked()
}

func (s *Session) draftLocked() *domain.DraftRecord {
	unsure := make(map[string]bool, len(s.unsure))
	for k, v := range s.unsure {
		unsure[k] = v
	}
	return &domain.DraftRecord{
		ID:          s.draftID,
		WizardID:    s.def.ID,
		Answers:     s.answers,
		Unsure:      unsure,
		StepIndex:   s.stepIndex,
		SavedAt:     time.Now().UTC(),
		CompletedAt: s.completedAt,
	}
}

// Close flushes any pending persistence write. Safe to call multiple times.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	saver := s.saver
	s.mu.Unlock()
	if saver == nil {
		return nil
	}
	return saver.Flush(ctx)
}

func (s *Session) checkCollecting() error {
	if s.phase != domain.PhaseCollecting {
		return fmt.Errorf("%w (phase %s)", domain.ErrSessionDone, s.phase)
	}
	return nil
}

func (s *Session) scheduleSave(ctx context.Context) {
	if s.saver == nil {
		return
	}
	s.saver.Schedule(s.draftLocked())
}

func (s *Session) emitCommit(ctx context.Context, typ domain.EventType, path domain.FieldPath, byRule bool) {
	ev := &domain.CommitEvent{
		EventBase: s.eventBase(typ),
		Path:      path,
		ByRule:    byRule,
		Cursor:    s.history.Cursor(),
	}
	switch typ {
	case domain.EventUndo:
		if s.hooks.OnUndo != nil {
			s.hooks.OnUndo(ctx, ev)
		}
	case domain.EventRedo:
		if s.hooks.OnRedo != nil {
			s.hooks.OnRedo(ctx, ev)
		}
	default:
		if s.hooks.OnCommit != nil {
			s.hooks.OnCommit(ctx, ev)
		}
	}
}

func (s *Session) eventBase(typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now().UTC(),
		Type:      typ,
		DraftID:   s.draftID,
	}
}
