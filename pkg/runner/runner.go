// Package runner drives a wizard session over line-based IO. It owns the
// render/input/commit loop so frontends (CLI, tests, scripted automation)
// only supply an IOHandler.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/pkg/domain"
)

// Runner handles the execution loop of a wizard session using provided IO.
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler on
	// Input/Output is created.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Renderer transforms the step markdown before display.
	Renderer ContentRenderer

	Input  io.Reader
	Output io.Writer

	keymap *Keymap
}

// NewRunner creates a new Runner with default Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		keymap: NewKeymap(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Keymap exposes the command bindings so hosts can add or replace them.
func (r *Runner) Keymap() *Keymap {
	return r.keymap
}

// Run executes the wizard loop until the session completes or the user
// quits. A quit leaves the draft saved for resume and returns (nil, nil);
// completion returns the derived artifact.
func (r *Runner) Run(ctx context.Context, engine *espalier.Engine, sess *espalier.Session) (*domain.DerivedArtifact, error) {
	handler := r.resolveHandler()

	var artifact *domain.DerivedArtifact
	done := false

	unbinds := r.bindDefaults(ctx, sess, handler, &artifact, &done)
	defer func() {
		for _, u := range unbinds {
			u()
		}
	}()

	for !done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := handler.Output(ctx, r.renderStep(engine, sess)); err != nil {
			return nil, fmt.Errorf("output error: %w", err)
		}

		line, err := handler.Input(ctx)
		if err != nil {
			if err == io.EOF {
				// End of scripted input: keep the draft for resume.
				break
			}
			return nil, err
		}

		if err := r.dispatch(ctx, engine, sess, handler, line, &artifact, &done); err != nil {
			return nil, err
		}
	}

	if err := sess.Close(ctx); err != nil {
		r.Logger.Warn("session close failed", "draft", sess.DraftID(), "err", err)
	}
	return artifact, nil
}

// dispatch interprets one input line.
//
// Grammar:
//
//	path = value     write value (JSON literal or bare string)
//	path += value    toggle a list item
//	path := value    replace with a one-item list (single-select)
//	:command [args]  bound command (:undo, :redo, :back, :unsure, ...)
//	(empty line)     advance, or complete on the last step
func (r *Runner) dispatch(ctx context.Context, engine *espalier.Engine, sess *espalier.Session, handler IOHandler, line string, artifact **domain.DerivedArtifact, done *bool) error {
	switch {
	case line == "":
		return r.advanceOrComplete(ctx, engine, sess, handler, artifact, done)

	case line == "exit" || line == "quit":
		*done = true
		return nil

	case strings.HasPrefix(line, ":"):
		fields := strings.Fields(line)
		if action, ok := r.keymap.Lookup(fields[0]); ok {
			if err := action(ctx); err != nil {
				return err
			}
			return nil
		}
		return r.dispatchParameterized(ctx, sess, handler, fields)

	default:
		return r.dispatchAssignment(ctx, sess, handler, line)
	}
}

func (r *Runner) dispatchParameterized(ctx context.Context, sess *espalier.Session, handler IOHandler, fields []string) error {
	switch fields[0] {
	case ":unset":
		if len(fields) < 2 {
			return handler.Output(ctx, "Usage: :unset <path>")
		}
		return sess.Unset(ctx, domain.FieldPath(fields[1]))

	case ":goto":
		if len(fields) < 2 {
			return handler.Output(ctx, "Usage: :goto <step-number>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return handler.Output(ctx, "Step number must be an integer")
		}
		if err := sess.GoTo(ctx, n-1); err != nil {
			return handler.Output(ctx, fmt.Sprintf("Cannot jump there: %v", err))
		}
		return nil

	default:
		return handler.Output(ctx, fmt.Sprintf("Unknown command %s", fields[0]))
	}
}

func (r *Runner) dispatchAssignment(ctx context.Context, sess *espalier.Session, handler IOHandler, line string) error {
	for _, op := range []string{"+=", ":=", "="} {
		idx := strings.Index(line, op)
		if idx <= 0 {
			continue
		}
		path := domain.FieldPath(strings.TrimSpace(line[:idx]))
		value := parseValue(strings.TrimSpace(line[idx+len(op):]))

		var err error
		switch op {
		case "+=":
			err = sess.Toggle(ctx, path, value)
		case ":=":
			err = sess.SetSingle(ctx, path, value)
		case "=":
			err = sess.Set(ctx, path, value)
		}
		if err != nil {
			return handler.Output(ctx, fmt.Sprintf("Cannot record answer: %v", err))
		}
		return nil
	}
	return handler.Output(ctx, "Expected 'path = value' or a :command")
}

func (r *Runner) advanceOrComplete(ctx context.Context, engine *espalier.Engine, sess *espalier.Session, handler IOHandler, artifact **domain.DerivedArtifact, done *bool) error {
	if !sess.CanAdvance() {
		return handler.Output(ctx, "This step still needs an answer (or mark it with :unsure).")
	}

	last := engine.Registry().IsLast(sess.StepIndex())
	if !last {
		if _, err := sess.Advance(ctx); err != nil {
			return fmt.Errorf("advance failed: %w", err)
		}
		return nil
	}

	a, err := sess.Complete(ctx)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}
	*artifact = a
	*done = true

	if a.Fallback {
		return handler.Output(ctx, "Derivation service unavailable; the result was generated locally and will sync later.")
	}
	return nil
}

// bindDefaults installs the built-in commands. The returned handles let
// Run tear down exactly what it installed, leaving host bindings intact.
func (r *Runner) bindDefaults(ctx context.Context, sess *espalier.Session, handler IOHandler, artifact **domain.DerivedArtifact, done *bool) []func() {
	echo := func(format string, args ...any) {
		_ = handler.Output(ctx, fmt.Sprintf(format, args...))
	}

	return []func(){
		r.keymap.Bind(":undo", func(ctx context.Context) error {
			if !sess.Undo(ctx) {
				echo("Nothing to undo.")
			}
			return nil
		}),
		r.keymap.Bind(":redo", func(ctx context.Context) error {
			if !sess.Redo(ctx) {
				echo("Nothing to redo.")
			}
			return nil
		}),
		r.keymap.Bind(":back", func(ctx context.Context) error {
			if !sess.Back(ctx) {
				echo("Already at the first step.")
			}
			return nil
		}),
		r.keymap.Bind(":unsure", func(ctx context.Context) error {
			step := sess.CurrentStep()
			return sess.MarkUnsure(ctx, step.ID, !sess.Unsure(step.ID))
		}),
		r.keymap.Bind(":quit", func(ctx context.Context) error {
			*done = true
			return nil
		}),
	}
}

// renderStep builds the markdown view of the current position.
func (r *Runner) renderStep(engine *espalier.Engine, sess *espalier.Session) string {
	step := sess.CurrentStep()
	total := engine.Registry().Len()

	var b strings.Builder
	fmt.Fprintf(&b, "## Step %d/%d", sess.StepIndex()+1, total)
	if step.Title != "" {
		fmt.Fprintf(&b, ": %s", step.Title)
	}
	b.WriteString("\n\n")

	var badges []string
	if step.Optional {
		badges = append(badges, "*optional*")
	}
	if sess.Unsure(step.ID) {
		badges = append(badges, "*marked to revisit*")
	}
	if len(badges) > 0 {
		b.WriteString(strings.Join(badges, " · "))
		b.WriteString("\n\n")
	}

	if step.Prompt != "" {
		b.WriteString(step.Prompt)
		b.WriteString("\n")
	}

	answers := sess.Answers()
	shown := false
	for _, path := range step.Inputs {
		if v, ok := answers.Get(path); ok {
			if !shown {
				b.WriteString("\nCurrent answers:\n")
				shown = true
			}
			fmt.Fprintf(&b, "  - `%s`: %v\n", path, v)
		}
	}

	if !sess.IsValid(step.ID) && !step.Optional {
		b.WriteString("\n*This step still needs an answer.*\n")
	}

	return b.String()
}

func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	th := NewTextHandler(r.Input, r.Output)
	th.Renderer = r.Renderer
	r.Handler = th
	return th
}

// parseValue interprets an input token: valid JSON literals ("3", "true",
// `["a"]`) become typed values, anything else stays a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
