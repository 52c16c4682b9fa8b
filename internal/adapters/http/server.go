// Package http exposes a wizard engine over a JSON API.
//
// Each draft gets at most one live session per process; the handler keeps
// the session map so repeated requests against the same draft share answer
// history and step position.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/verdantlabs/espalier"
	"github.com/verdantlabs/espalier/pkg/domain"
)

// Server routes wizard operations to live sessions.
type Server struct {
	engine *espalier.Engine
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*espalier.Session
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine *espalier.Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		engine: engine,
		logger: logger,
		live:   make(map[string]*espalier.Session),
	}

	r := chi.NewRouter()

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", server.CreateDraft)
		r.Get("/", server.ListDrafts)

		r.Route("/{draftID}", func(r chi.Router) {
			r.Get("/", server.GetDraft)
			r.Delete("/", server.DeleteDraft)
			r.Post("/answers", server.SubmitAnswer)
			r.Post("/undo", server.Undo)
			r.Post("/redo", server.Redo)
			r.Post("/unsure", server.MarkUnsure)
			r.Post("/advance", server.Advance)
			r.Post("/back", server.Back)
			r.Post("/goto", server.GoTo)
			r.Post("/complete", server.Complete)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the live session for a draft, resuming it from the store
// on first access.
func (s *Server) session(r *http.Request) (*espalier.Session, error) {
	draftID := chi.URLParam(r, "draftID")
	if draftID == "" {
		return nil, fmt.Errorf("draft ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.live[draftID]; ok {
		return sess, nil
	}

	sess, err := s.engine.ResumeSession(r.Context(), draftID)
	if err != nil {
		return nil, err
	}
	s.live[draftID] = sess
	return sess, nil
}

// StepView is the wire representation of a session's current position.
type StepView struct {
	DraftID    string           `json:"draft_id"`
	WizardID   string           `json:"wizard_id"`
	Phase      string           `json:"phase"`
	StepIndex  int              `json:"step_index"`
	StepCount  int              `json:"step_count"`
	Step       StepInfo         `json:"step"`
	Valid      bool             `json:"valid"`
	CanAdvance bool             `json:"can_advance"`
	CanUndo    bool             `json:"can_undo"`
	CanRedo    bool             `json:"can_redo"`
	Unsure     bool             `json:"unsure"`
	Answers    domain.AnswerSet `json:"answers"`
}

// StepInfo describes the step the session is positioned on.
type StepInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Optional bool   `json:"optional"`
}

func (s *Server) stepView(sess *espalier.Session) StepView {
	step := sess.CurrentStep()
	return StepView{
		DraftID:    sess.DraftID(),
		WizardID:   sess.WizardID(),
		Phase:      string(sess.Phase()),
		StepIndex:  sess.StepIndex(),
		StepCount:  s.engine.Registry().Len(),
		Step: StepInfo{
			ID:       step.ID,
			Title:    step.Title,
			Prompt:   step.Prompt,
			Optional: step.Optional,
		},
		Valid:      sess.IsValid(step.ID),
		CanAdvance: sess.CanAdvance(),
		CanUndo:    sess.History().CanUndo(),
		CanRedo:    sess.History().CanRedo(),
		Unsure:     sess.Unsure(step.ID),
		Answers:    sess.Answers(),
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "espalier-http",
		"api_version": "0.1.0",
		"wizard":      s.engine.Definition().ID,
	})
}

// CreateDraft handles POST /drafts.
func (s *Server) CreateDraft(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.NewSession(r.Context())
	if err != nil {
		s.logger.Error("failed to create draft", "error", err)
		http.Error(w, "Failed to create draft", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.live[sess.DraftID()] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, s.stepView(sess))
}

// ListDrafts handles GET /drafts.
func (s *Server) ListDrafts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Sessions().List(r.Context())
	if err != nil {
		s.logger.Error("failed to list drafts", "error", err)
		http.Error(w, "Failed to list drafts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"drafts": ids})
}

// GetDraft handles GET /drafts/{draftID}.
func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// DeleteDraft handles DELETE /drafts/{draftID}.
func (s *Server) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")

	s.mu.Lock()
	if sess, ok := s.live[draftID]; ok {
		_ = sess.Close(r.Context())
		delete(s.live, draftID)
	}
	s.mu.Unlock()

	if err := s.engine.Sessions().Delete(r.Context(), draftID); err != nil {
		s.logger.Error("failed to delete draft", "draft", draftID, "error", err)
		http.Error(w, "Failed to delete draft", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnswerRequest is the body for POST /drafts/{draftID}/answers.
// Mode selects the commit semantics: "set" (default) writes the value,
// "toggle" adds/removes a list item, "single" replaces a one-item list,
// "unset" clears the path.
type AnswerRequest struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
	Mode  string `json:"mode,omitempty"`
}

// SubmitAnswer handles POST /drafts/{draftID}/answers.
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}

	var body AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Path == "" {
		http.Error(w, "Answer path is required", http.StatusBadRequest)
		return
	}

	path := domain.FieldPath(body.Path)
	switch body.Mode {
	case "", "set":
		err = sess.Set(r.Context(), path, body.Value)
	case "toggle":
		err = sess.Toggle(r.Context(), path, body.Value)
	case "single":
		err = sess.SetSingle(r.Context(), path, body.Value)
	case "unset":
		err = sess.Unset(r.Context(), path)
	default:
		http.Error(w, fmt.Sprintf("Unknown answer mode %q", body.Mode), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.sessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// Undo handles POST /drafts/{draftID}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}
	sess.Undo(r.Context())
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// Redo handles POST /drafts/{draftID}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}
	sess.Redo(r.Context())
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// UnsureRequest is the body for POST /drafts/{draftID}/unsure.
type UnsureRequest struct {
	StepID string `json:"step_id"`
	Unsure bool   `json:"unsure"`
}

// MarkUnsure handles POST /drafts/{draftID}/unsure.
func (s *Server) MarkUnsure(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}

	var body UnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.StepID == "" {
		body.StepID = sess.CurrentStep().ID
	}

	if err := sess.MarkUnsure(r.Context(), body.StepID, body.Unsure); err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// Advance handles POST /drafts/{draftID}/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}

	if !sess.CanAdvance() {
		http.Error(w, "Current step is not valid", http.StatusConflict)
		return
	}
	if _, err := sess.Advance(r.Context()); err != nil {
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// Back handles POST /drafts/{draftID}/back.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}
	sess.Back(r.Context())
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// GoToRequest is the body for POST /drafts/{draftID}/goto.
type GoToRequest struct {
	Index int `json:"index"`
}

// GoTo handles POST /drafts/{draftID}/goto.
func (s *Server) GoTo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}

	var body GoToRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := sess.GoTo(r.Context(), body.Index); err != nil {
		if errors.Is(err, domain.ErrStepOutOfRange) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stepView(sess))
}

// CompleteResponse is the body returned by POST /drafts/{draftID}/complete.
type CompleteResponse struct {
	Phase    string                  `json:"phase"`
	Artifact *domain.DerivedArtifact `json:"artifact"`
}

// Complete handles POST /drafts/{draftID}/complete.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.draftError(w, err)
		return
	}

	artifact, err := sess.Complete(r.Context())
	if err != nil {
		s.logger.Error("derivation failed", "draft", sess.DraftID(), "error", err)
		s.sessionError(w, err)
		return
	}

	s.mu.Lock()
	delete(s.live, sess.DraftID())
	s.mu.Unlock()
	_ = sess.Close(r.Context())

	writeJSON(w, http.StatusOK, CompleteResponse{
		Phase:    string(sess.Phase()),
		Artifact: artifact,
	})
}

func (s *Server) draftError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrDraftNotFound) {
		http.Error(w, "Draft not found", http.StatusNotFound)
		return
	}
	s.logger.Error("failed to open session", "error", err)
	http.Error(w, "Failed to open session", http.StatusInternalServerError)
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionDone):
		http.Error(w, "Session already completed", http.StatusConflict)
	case errors.Is(err, domain.ErrUnknownStep):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrStepOutOfRange):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, fmt.Sprintf("Operation failed: %v", err), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
