// Package handler exposes the JSON API over chi.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neetprep/neetprep/internal/exam"
	appI18n "github.com/neetprep/neetprep/internal/i18n"
	"github.com/neetprep/neetprep/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	engine *exam.Engine
}

// New creates a new Handler.
func New(s *store.Store, e *exam.Engine) *Handler {
	return &Handler{store: s, engine: e}
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/quick-login", h.handleQuickLogin)

	r.Get("/api/subjects", h.handleListSubjects)
	r.Post("/api/subjects", h.handleCreateSubject)
	r.Get("/api/subjects/{subjectID}", h.handleGetSubject)
	r.Get("/api/subjects/{subjectID}/stats", h.handleSubjectStats)
	r.Get("/api/subjects/{subjectID}/topics", h.handleListTopics)
	r.Post("/api/subjects/{subjectID}/topics", h.handleCreateTopic)
	r.Get("/api/topics/{topicID}", h.handleGetTopic)
	r.Put("/api/topics/{topicID}", h.handleUpdateTopic)
	r.Delete("/api/topics/{topicID}", h.handleDeleteTopic)
	r.Get("/api/topics/{topicID}/stats", h.handleTopicStats)

	r.Get("/api/tests/{testID}/status", h.handleTestStatus)
	r.Get("/api/tests/{testID}/results", h.handleTestResults)
	r.Post("/api/tests/{testID}/submit", h.handleSubmitTest)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/api/auth/me", h.handleMe)
		r.Post("/api/tests/start", h.handleStartTest)
		r.Get("/api/tests/history", h.handleTestHistory)
		r.Get("/api/tests/analytics", h.handleTestAnalytics)
	})
}

// envelope is the common response wrapper. Payload keys are merged at the
// top level next to success and message.
type envelope map[string]any

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, msgID string, payload envelope) {
	body := envelope{"success": status < 400}
	if msgID != "" {
		body["message"] = appI18n.T(r.Context(), msgID)
	}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps engine errors onto HTTP statuses and localized messages.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msgID string
	switch {
	case errors.Is(err, exam.ErrNotFound):
		status, msgID = http.StatusNotFound, "TestNotFound"
	case errors.Is(err, exam.ErrAlreadyCompleted):
		status, msgID = http.StatusBadRequest, "TestAlreadyCompleted"
	case errors.Is(err, exam.ErrInvalidRequest):
		status, msgID = http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, exam.ErrGenerationFailed):
		status, msgID = http.StatusInternalServerError, "GenerationFailed"
	default:
		status, msgID = http.StatusInternalServerError, "InternalError"
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Info("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.respond(w, r, status, msgID, envelope{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
