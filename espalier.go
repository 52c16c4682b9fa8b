package espalier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verdantlabs/espalier/internal/adapters/memory"
	"github.com/verdantlabs/espalier/internal/runtime"
	"github.com/verdantlabs/espalier/pkg/domain"
	"github.com/verdantlabs/espalier/pkg/persistence"
	"github.com/verdantlabs/espalier/pkg/ports"
	"github.com/verdantlabs/espalier/pkg/registry"
	"github.com/verdantlabs/espalier/pkg/session"
)

// Session is a live wizard run. See the runtime package for the full API.
type Session = runtime.Session

// Definition is the static description of a wizard.
type Definition = domain.WizardDefinition

// AdvancePolicy decides which steps gate forward navigation.
type AdvancePolicy = runtime.AdvancePolicy

const (
	PolicyLocal = runtime.PolicyLocal
	PolicyChain = runtime.PolicyChain
)

// Engine is the high-level entry point for the Espalier library.
// It compiles a wizard definition once and hands out sessions that share
// the compiled registry, predicates and default rules.
type Engine struct {
	def       *domain.WizardDefinition
	registry  *registry.Registry
	validator *runtime.Validator
	rules     *runtime.RuleSet

	store     ports.DraftStore
	sessions  *session.Manager
	compiler  ports.Compiler
	consumer  ports.ArtifactConsumer
	fallback  runtime.FallbackFunc
	policy    AdvancePolicy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	saveDelay time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a draft store, bypassing the default in-memory one.
func WithStore(store ports.DraftStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithCompiler sets the remote artifact compiler. Without one, completion
// generates the artifact locally.
func WithCompiler(c ports.Compiler) Option {
	return func(e *Engine) {
		e.compiler = c
	}
}

// WithConsumer sets the downstream receiver of derived artifacts.
func WithConsumer(c ports.ArtifactConsumer) Option {
	return func(e *Engine) {
		e.consumer = c
	}
}

// WithFallback overrides the local artifact generator used when the
// compiler fails or is absent.
func WithFallback(fn runtime.FallbackFunc) Option {
	return func(e *Engine) {
		e.fallback = fn
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithAdvancePolicy sets the validation gating policy for new sessions.
func WithAdvancePolicy(p AdvancePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithSaveDelay sets the autosave debounce window.
func WithSaveDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.saveDelay = d
	}
}

// New compiles the wizard definition and initializes an Engine.
// Compilation fails fast on duplicate step IDs, malformed predicates and
// cyclic default rules, so a definition that loads is safe to run.
func New(def *domain.WizardDefinition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("wizard definition is required")
	}

	eng := &Engine{
		def:       def,
		saveDelay: persistence.DefaultDelay,
	}

	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which
	// would overwrite its default).
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if def.ID != "" {
		eng.logger = eng.logger.With("wizard", def.ID)
	}

	reg, err := registry.New(def.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to build step registry: %w", err)
	}
	eng.registry = reg

	validator, err := runtime.CompileValidator(def.Steps, eng.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compile step predicates: %w", err)
	}
	eng.validator = validator

	rules, err := runtime.CompileRules(def.Rules, eng.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compile default rules: %w", err)
	}
	eng.rules = rules

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	eng.sessions = session.NewManager(eng.store, session.WithLogger(eng.logger))

	return eng, nil
}

// Definition returns the wizard definition this engine runs.
func (e *Engine) Definition() *domain.WizardDefinition {
	return e.def
}

// Registry returns the compiled step registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Sessions returns the draft lifecycle manager backing this engine.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Store returns the underlying draft store.
func (e *Engine) Store() ports.DraftStore {
	return e.store
}

// NewSession starts a fresh wizard run with a generated draft ID.
func (e *Engine) NewSession(ctx context.Context) (*Session, error) {
	draft, err := e.sessions.Start(ctx, e.def.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start draft: %w", err)
	}
	return e.buildSession(draft.ID, draft)
}

// ResumeSession restores a previously saved run.
// Returns domain.ErrDraftNotFound if no draft with that ID exists.
func (e *Engine) ResumeSession(ctx context.Context, draftID string) (*Session, error) {
	draft, err := e.sessions.Load(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return e.buildSession(draftID, draft)
}

// buildSession wires a runtime session with its own debounced saver.
// Savers are per-session: the debounce window tracks one draft's pending
// write, never a mix of drafts.
func (e *Engine) buildSession(draftID string, draft *domain.DraftRecord) (*Session, error) {
	saverOpts := []persistence.Option{
		persistence.WithDelay(e.saveDelay),
		persistence.WithLogger(e.logger),
	}
	if e.hooks.OnSave != nil {
		saverOpts = append(saverOpts, persistence.WithSaveHook(e.hooks.OnSave))
	}
	saver := persistence.NewSaver(e.store, saverOpts...)

	return runtime.NewSession(runtime.Config{
		Definition: e.def,
		Registry:   e.registry,
		Validator:  e.validator,
		Rules:      e.rules,
		DraftID:    draftID,
		Draft:      draft,
		Saver:      saver,
		Compiler:   e.compiler,
		Consumer:   e.consumer,
		Fallback:   e.fallback,
		Policy:     e.policy,
		Hooks:      e.hooks,
		Logger:     e.logger.With("draft", draftID),
	})
}
