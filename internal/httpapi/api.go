package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getcooked/interview-gateway/internal/docstore"
	"github.com/getcooked/interview-gateway/internal/feedback"
	"github.com/getcooked/interview-gateway/internal/identity"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/session"
)

// API serves the interview HTTP surface
type API struct {
	sessions *session.Store
	feedback *feedback.Orchestrator
	docs     docstore.Store
}

// New creates the API. docs may be nil when no document store is configured.
func New(sessions *session.Store, orch *feedback.Orchestrator, docs docstore.Store) *API {
	if docs == nil {
		docs = docstore.Disabled{}
	}
	return &API{sessions: sessions, feedback: orch, docs: docs}
}

// Register adds the API routes to mux
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.root)
	mux.HandleFunc("GET /users/me", a.me)
	mux.HandleFunc("POST /api/initialize-question", a.initializeQuestion)
	mux.HandleFunc("POST /api/incremental-feedback", a.incrementalFeedback)
	mux.HandleFunc("GET /api/sessions/{id}", a.getSession)
	mux.HandleFunc("POST /api/evaluate", a.evaluate)
	mux.HandleFunc("GET /api/solutions", a.findSolutions)
	mux.HandleFunc("POST /api/solutions", a.addSolution)
	mux.HandleFunc("GET /interview/code-session", a.codeSession)
}

func (a *API) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the AI Interview Simulator"})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	u, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type initializeRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Input       string  `json:"input"`
	Output      string  `json:"output"`
	Explanation *string `json:"explanation"`
}

type initializeResponse struct {
	SessionID string `json:"session_id"`
}

func (a *API) initializeQuestion(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decode(r, w, initializeSchema, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	id := a.sessions.Create(session.Question{
		Title:       req.Title,
		Description: req.Description,
		Input:       req.Input,
		Output:      req.Output,
		Explanation: deref(req.Explanation),
	})
	observability.FromContext(r.Context()).Info().Str("session_id", id).Str("title", req.Title).Msg("Interview question initialized")
	writeJSON(w, http.StatusOK, initializeResponse{SessionID: id})
}

type incrementalRequest struct {
	SessionID  string  `json:"session_id"`
	Code       *string `json:"code"`
	Transcript *string `json:"transcript"`
	Status     string  `json:"status"`
}

type feedbackResponse struct {
	Feedback string `json:"feedback"`
}

func (a *API) incrementalFeedback(w http.ResponseWriter, r *http.Request) {
	var req incrementalRequest
	if err := decode(r, w, incrementalSchema, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	text, err := a.feedback.IncrementalFeedback(r.Context(), feedback.Update{
		SessionID:  req.SessionID,
		Code:       deref(req.Code),
		Transcript: deref(req.Transcript),
		Status:     req.Status,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Feedback: text})
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.Get(r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type evaluateRequest struct {
	SessionID string `json:"session_id"`
}

func (a *API) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decode(r, w, evaluateSchema, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	var userID string
	if u, err := identity.FromContext(r.Context()); err == nil {
		userID = u.ID
	}

	e, err := a.feedback.Evaluate(r.Context(), req.SessionID, userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type solutionsResponse struct {
	Problem   string              `json:"problem"`
	Solutions []docstore.Solution `json:"solutions"`
}

func (a *API) findSolutions(w http.ResponseWriter, r *http.Request) {
	problem := r.URL.Query().Get("problem")
	if problem == "" {
		a.fail(w, r, &ValidationError{Messages: []string{"problem: query parameter is required"}})
		return
	}

	solutions, err := a.docs.FindSolutions(r.Context(), problem)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, solutionsResponse{Problem: problem, Solutions: solutions})
}

type solutionRequest struct {
	Problem     string  `json:"problem"`
	Language    string  `json:"language"`
	Code        string  `json:"code"`
	Explanation *string `json:"explanation"`
}

type createdResponse struct {
	ID string `json:"id"`
}

func (a *API) addSolution(w http.ResponseWriter, r *http.Request) {
	var req solutionRequest
	if err := decode(r, w, solutionSchema, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	id, err := a.docs.InsertSolution(r.Context(), docstore.Solution{
		Problem:     req.Problem,
		Language:    req.Language,
		Code:        req.Code,
		Explanation: deref(req.Explanation),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// fail maps an error to its status. Upstream details are logged, never returned.
// Generation failures are matched before context errors, so a reasoning timeout stays a 500.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context())

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, docstore.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "Document store is not configured")
	case errors.Is(err, feedback.ErrGenerationFailed):
		observability.RecordError("generation_failed", "httpapi")
		writeError(w, http.StatusInternalServerError, "Failed to generate feedback")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Msg("Request timed out waiting for its session")
		writeError(w, http.StatusServiceUnavailable, "Session is busy, try again")
	case errors.Is(err, context.Canceled):
		// client went away
		logger.Warn().Err(err).Msg("Request cancelled")
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		logger.Error().Err(err).Msg("Request failed")
		observability.RecordError("internal", "httpapi")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
