package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/neetprep/neetprep/internal/model"
)

// quickLoginPassword backs the passwordless quick-login flow: every
// auto-created user gets this default so the account can later be claimed
// through a regular login.
const quickLoginPassword = "neet123"

// requireAuth checks for a valid bearer token and puts the user into the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			h.respond(w, r, http.StatusUnauthorized, "AuthRequired", nil)
			return
		}

		authSess, err := h.store.GetAuthSession(token)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.respond(w, r, http.StatusInternalServerError, "InternalError", nil)
			return
		}
		if authSess == nil {
			h.respond(w, r, http.StatusUnauthorized, "InvalidToken", nil)
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil {
			h.respond(w, r, http.StatusUnauthorized, "InvalidToken", nil)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleQuickLogin logs a user in by username alone, creating the account on
// first use. Meant for frictionless practice sessions, not real credentials.
func (h *Handler) handleQuickLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		h.respond(w, r, http.StatusBadRequest, "InvalidRequest", nil)
		return
	}

	user, err := h.store.GetUserByUsername(username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if user == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(quickLoginPassword), bcrypt.DefaultCost)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		id, err := h.store.CreateUser(model.User{
			Username:     username,
			Email:        fmt.Sprintf("%s@neettest.com", username),
			PasswordHash: string(hash),
		})
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		user, err = h.store.GetUserByID(id)
		if err != nil || user == nil {
			h.respondError(w, r, fmt.Errorf("reload user %d: %w", id, err))
			return
		}
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, "LoginSuccess", envelope{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	h.respond(w, r, http.StatusOK, "", envelope{"user": user})
}
