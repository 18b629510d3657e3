package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/neetprep/neetprep/internal/exam"
	"github.com/neetprep/neetprep/internal/model"
)

func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", exam.ErrInvalidRequest, name)
	}
	return id, nil
}

// handleListSubjects returns all active subjects, seeding the standard NEET
// set on first use of an empty database.
func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	if err := h.store.EnsureDefaultSubjects(); err != nil {
		h.respondError(w, r, err)
		return
	}
	subjects, err := h.store.ListSubjects()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"subjects": subjects})
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}
	id, err := h.store.CreateSubject(model.Subject{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, "SubjectCreated", envelope{"subject": subject})
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if subject == nil {
		h.respond(w, r, http.StatusNotFound, "SubjectNotFound", nil)
		return
	}
	topics, err := h.store.ListTopics(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"subject": subject, "topics": topics})
}

func (h *Handler) handleSubjectStats(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if subject == nil {
		h.respond(w, r, http.StatusNotFound, "SubjectNotFound", nil)
		return
	}
	stats, err := h.store.GetSubjectStats(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"subject": subject.Name, "stats": stats})
}

// handleListTopics returns a subject's topics, seeding defaults the same way
// the subject list does.
func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	if err := h.store.EnsureDefaultSubjects(); err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if subject == nil {
		h.respond(w, r, http.StatusNotFound, "SubjectNotFound", nil)
		return
	}
	topics, err := h.store.ListTopics(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"subject": subject.Name, "topics": topics})
}

func (h *Handler) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "subjectID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	subject, err := h.store.GetSubject(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if subject == nil {
		h.respond(w, r, http.StatusNotFound, "SubjectNotFound", nil)
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}
	topicID, err := h.store.CreateTopic(model.Topic{
		SubjectID:   id,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(topicID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, "TopicCreated", envelope{"topic": topic})
}

func (h *Handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if topic == nil {
		h.respond(w, r, http.StatusNotFound, "TopicNotFound", nil)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"topic": topic})
}

func (h *Handler) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if topic == nil {
		h.respond(w, r, http.StatusNotFound, "TopicNotFound", nil)
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}
	if err := h.store.UpdateTopic(id, req.Name, req.Description); err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err = h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "TopicUpdated", envelope{"topic": topic})
}

func (h *Handler) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if topic == nil {
		h.respond(w, r, http.StatusNotFound, "TopicNotFound", nil)
		return
	}
	if err := h.store.DeleteTopic(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "TopicDeleted", nil)
}

func (h *Handler) handleTopicStats(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "topicID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	topic, err := h.store.GetTopic(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if topic == nil {
		h.respond(w, r, http.StatusNotFound, "TopicNotFound", nil)
		return
	}
	stats, err := h.store.GetTopicStats(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", envelope{"topic": topic.Name, "stats": stats})
}
