package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ContentRenderer is a function that transforms step markdown before
// outputting it. This allows TUI rendering (markdown to ANSI) without
// coupling the core package.
type ContentRenderer func(string) (string, error)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between a terminal and scripted input in tests.
type IOHandler interface {
	// Output presents the current step view to the user.
	Output(ctx context.Context, view string) error

	// Input reads one command line from the user.
	Input(ctx context.Context) (string, error)
}

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	interactive bool
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	if f, ok := r.(*os.File); ok {
		h.interactive = term.IsTerminal(int(f.Fd()))
	}
	return h
}

// Interactive reports whether input comes from a terminal.
func (h *TextHandler) Interactive() bool {
	return h.interactive
}

func (h *TextHandler) Output(ctx context.Context, view string) error {
	output := view
	if h.Renderer != nil {
		rendered, err := h.Renderer(view)
		if err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(output, "\n"))
	return err
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(h.Writer, "> ")

		text, readErr := h.Reader.ReadString('\n')
		if readErr != nil && !(readErr == io.EOF && text != "") {
			// A last line without a trailing newline still counts.
			return "", readErr
		}

		clean, err := SanitizeInput(strings.TrimSpace(text))
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}
