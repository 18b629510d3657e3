package handler

import (
	"net/http"

	"github.com/neetprep/neetprep/internal/exam"
	"github.com/neetprep/neetprep/internal/model"
)

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req struct {
		SubjectID int64  `json:"subject_id"`
		TopicID   *int64 `json:"topic_id"`
		Count     int    `json:"num_questions"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}
	if req.Count == 0 {
		req.Count = 10
	}

	result, err := h.engine.Start(r.Context(), user.ID, req.SubjectID, req.TopicID, req.Count)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, "TestStarted", envelope{"test": result})
}

func (h *Handler) handleTestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "testID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status, err := h.engine.Status(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"status": status})
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "testID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req struct {
		Answers   []exam.AnswerSubmission    `json:"answers"`
		Questions []model.RawQuestionPayload `json:"questions"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}

	result, err := h.engine.Submit(r.Context(), id, req.Answers, req.Questions)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "TestSubmitted", envelope{"result": result})
}

func (h *Handler) handleTestResults(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "testID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.engine.Results(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"result": result})
}

func (h *Handler) handleTestHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	history, err := h.engine.History(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{
		"history": history,
		"count":   len(history),
	})
}

func (h *Handler) handleTestAnalytics(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	analytics, err := h.engine.Analytics(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"analytics": analytics})
}
