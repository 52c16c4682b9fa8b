// Package mcp exposes the wizard engine as an MCP server so agent hosts
// can drive a guided flow tool-by-tool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/pkg/domain"
)

// StepResponse is the unified structured result returned by every tool.
type StepResponse struct {
	DraftID    string           `json:"draft_id" jsonschema_description:"Stable identifier of the draft"`
	Phase      string           `json:"phase" jsonschema_description:"Lifecycle phase of the session"`
	StepID     string           `json:"step_id" jsonschema_description:"ID of the step the session is positioned on"`
	Prompt     string           `json:"prompt,omitempty" jsonschema_description:"Prompt text of the current step"`
	StepIndex  int              `json:"step_index" jsonschema_description:"Zero-based ordinal of the current step"`
	StepCount  int              `json:"step_count" jsonschema_description:"Total number of steps"`
	Valid      bool             `json:"valid" jsonschema_description:"Whether the current step's predicate passes"`
	CanAdvance bool             `json:"can_advance" jsonschema_description:"Whether forward navigation is allowed"`
	Answers    domain.AnswerSet `json:"answers" jsonschema_description:"Current answer set"`
}

// CompleteResult is returned by complete_wizard.
type CompleteResult struct {
	Phase    string                  `json:"phase" jsonschema_description:"Terminal phase after handoff"`
	Artifact *domain.DerivedArtifact `json:"artifact" jsonschema_description:"The derived artifact"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    *espalier.Engine
	mcpServer *server.MCPServer

	mu   sync.Mutex
	live map[string]*espalier.Session
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *espalier.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("espalier-mcp", strings.TrimSpace(espalier.Version)),
		live:      make(map[string]*espalier.Session),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// session resolves the live session for draft_id, resuming from the store
// when the server has not seen the draft yet.
func (s *Server) session(ctx context.Context, draftID string) (*espalier.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.live[draftID]; ok {
		return sess, nil
	}
	sess, err := s.engine.ResumeSession(ctx, draftID)
	if err != nil {
		return nil, err
	}
	s.live[draftID] = sess
	return sess, nil
}

func (s *Server) stepResponse(sess *espalier.Session) StepResponse {
	step := sess.CurrentStep()
	return StepResponse{
		DraftID:    sess.DraftID(),
		Phase:      string(sess.Phase()),
		StepID:     step.ID,
		Prompt:     step.Prompt,
		StepIndex:  sess.StepIndex(),
		StepCount:  s.engine.Registry().Len(),
		Valid:      sess.IsValid(step.ID),
		CanAdvance: sess.CanAdvance(),
		Answers:    sess.Answers(),
	}
}

func (s *Server) registerTools() {
	// TOOL: start_wizard
	startTool := mcp.NewTool("start_wizard",
		mcp.WithDescription("Start a new wizard draft, or resume one by passing its draft_id."),
		mcp.WithString("draft_id", mcp.Description("Draft to resume (optional; omit to start fresh)")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	// TOOL: get_step
	getStepTool := mcp.NewTool("get_step",
		mcp.WithDescription("Get the current step view of a draft: prompt, validity and collected answers."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft to inspect")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(getStepTool, mcp.NewStructuredToolHandler(s.handleGetStep))

	// TOOL: submit_answer
	submitTool := mcp.NewTool("submit_answer",
		mcp.WithDescription("Write an answer value at a dotted path. Mode 'toggle' flips a list item, 'single' replaces a one-item list, 'unset' clears the path."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft to mutate")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Dotted answer path, e.g. 'company.size'")),
		mcp.WithString("value", mcp.Description("JSON-encoded value (string, number, bool, list or object)")),
		mcp.WithString("mode", mcp.Description("One of: set (default), toggle, single, unset")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmitAnswer))

	// TOOL: navigate
	navigateTool := mcp.NewTool("navigate",
		mcp.WithDescription("Move through the wizard: advance, back, undo or redo."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft to navigate")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of: advance, back, undo, redo")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(navigateTool, mcp.NewStructuredToolHandler(s.handleNavigate))

	// TOOL: mark_unsure
	unsureTool := mcp.NewTool("mark_unsure",
		mcp.WithDescription("Flag the current step to revisit later. The flag survives save and resume."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft to flag")),
		mcp.WithBoolean("unsure", mcp.Description("Flag value (default true)")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(unsureTool, mcp.NewStructuredToolHandler(s.handleMarkUnsure))

	// TOOL: complete_wizard
	completeTool := mcp.NewTool("complete_wizard",
		mcp.WithDescription("Finish the wizard: derive the artifact and hand it off. The draft stops accepting answers."),
		mcp.WithString("draft_id", mcp.Required(), mcp.Description("Draft to complete")),
		mcp.WithOutputSchema[CompleteResult](),
	)
	s.mcpServer.AddTool(completeTool, mcp.NewStructuredToolHandler(s.handleComplete))

	// TOOL: list_drafts
	s.mcpServer.AddTool(mcp.NewTool("list_drafts",
		mcp.WithDescription("List stored draft IDs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.Sessions().List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	if draftID, _ := args["draft_id"].(string); draftID != "" {
		sess, err := s.session(ctx, draftID)
		if err != nil {
			return StepResponse{}, fmt.Errorf("resume failed: %w", err)
		}
		return s.stepResponse(sess), nil
	}

	sess, err := s.engine.NewSession(ctx)
	if err != nil {
		return StepResponse{}, fmt.Errorf("start failed: %w", err)
	}
	s.mu.Lock()
	s.live[sess.DraftID()] = sess
	s.mu.Unlock()
	return s.stepResponse(sess), nil
}

func (s *Server) handleGetStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	draftID, _ := args["draft_id"].(string)
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return StepResponse{}, fmt.Errorf("unknown draft: %w", err)
	}
	return s.stepResponse(sess), nil
}

func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	draftID, _ := args["draft_id"].(string)
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return StepResponse{}, fmt.Errorf("unknown draft: %w", err)
	}

	pathStr, _ := args["path"].(string)
	if pathStr == "" {
		return StepResponse{}, fmt.Errorf("path is required")
	}
	path := domain.FieldPath(pathStr)

	var value any
	if raw, ok := args["value"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			// Unquoted plain strings are accepted as-is for convenience.
			value = raw
		}
	}

	mode, _ := args["mode"].(string)
	switch mode {
	case "", "set":
		err = sess.Set(ctx, path, value)
	case "toggle":
		err = sess.Toggle(ctx, path, value)
	case "single":
		err = sess.SetSingle(ctx, path, value)
	case "unset":
		err = sess.Unset(ctx, path)
	default:
		return StepResponse{}, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return StepResponse{}, fmt.Errorf("submit failed: %w", err)
	}

	return s.stepResponse(sess), nil
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	draftID, _ := args["draft_id"].(string)
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return StepResponse{}, fmt.Errorf("unknown draft: %w", err)
	}

	action, _ := args["action"].(string)
	switch action {
	case "advance":
		if !sess.CanAdvance() {
			return StepResponse{}, fmt.Errorf("current step is not valid")
		}
		if _, err := sess.Advance(ctx); err != nil {
			return StepResponse{}, fmt.Errorf("advance failed: %w", err)
		}
	case "back":
		sess.Back(ctx)
	case "undo":
		sess.Undo(ctx)
	case "redo":
		sess.Redo(ctx)
	default:
		return StepResponse{}, fmt.Errorf("unknown action %q", action)
	}

	return s.stepResponse(sess), nil
}

func (s *Server) handleMarkUnsure(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	draftID, _ := args["draft_id"].(string)
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return StepResponse{}, fmt.Errorf("unknown draft: %w", err)
	}

	unsure := true
	if v, ok := args["unsure"].(bool); ok {
		unsure = v
	}

	if err := sess.MarkUnsure(ctx, sess.CurrentStep().ID, unsure); err != nil {
		return StepResponse{}, fmt.Errorf("mark unsure failed: %w", err)
	}
	return s.stepResponse(sess), nil
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CompleteResult, error) {
	draftID, _ := args["draft_id"].(string)
	sess, err := s.session(ctx, draftID)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("unknown draft: %w", err)
	}

	artifact, err := sess.Complete(ctx)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("complete failed: %w", err)
	}

	s.mu.Lock()
	delete(s.live, draftID)
	s.mu.Unlock()
	_ = sess.Close(ctx)

	return CompleteResult{
		Phase:    string(sess.Phase()),
		Artifact: artifact,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: espalier://definition
	s.mcpServer.AddResource(mcp.NewResource("espalier://definition", "Wizard Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Definition())
		if err != nil {
			return nil, fmt.Errorf("failed to encode definition: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "espalier://definition",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
