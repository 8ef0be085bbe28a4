package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gitporter/gitporter/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Login handles POST /api/v1/login. It provisions the local account on first
// sign-in, opens an import session and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrInvalidJSON)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		WriteError(w, NewValidationError("username can't be blank"))
		return
	}

	user, err := h.db.EnsureUser(r.Context(), req.Username)
	if err != nil {
		h.logger.Error("failed to provision user", "username", req.Username, "error", err)
		WriteError(w, ErrInternal)
		return
	}

	sess := h.sessions.Create(user.ID)
	token, err := h.jwtManager.GenerateToken(user.ID, user.Username, sess.ID)
	if err != nil {
		h.logger.Error("failed to issue session token", "username", user.Username, "error", err)
		h.sessions.Delete(sess.ID)
		WriteError(w, ErrInternal)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.jwtManager.SessionDuration()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user signed in", "user_id", user.ID, "username", user.Username)
	h.sendJSON(w, http.StatusOK, loginResponse{UserID: user.ID, Username: user.Username})
}

// Logout handles POST /api/v1/logout. Dropping the session discards every
// provider credential it held.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		h.sessions.Delete(sessionID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.sendJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
