package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/filevault/backend/internal/logging"
	"github.com/filevault/backend/internal/repositories"
)

// AuthHandler implements the token lifecycle endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Limiter  RateLimiter
}

type connectResponse struct {
	Token string `json:"token"`
}

// Connect handles GET /connect: Basic credentials in, bearer token out.
func (h AuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "connect") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	email, password, ok := r.BasicAuth()
	if !ok || email == "" {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("connect user lookup failed", "error", err, "email", email)
			respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		logger.Warn("connect password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("issue token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set(tokenHeader, token)
	respondJSON(ctx, w, http.StatusOK, connectResponse{Token: token})
}

// Disconnect handles GET /disconnect: revokes the presented token.
func (h AuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if _, err := h.Sessions.Resolve(ctx, token); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.Sessions.Revoke(ctx, token)
	w.WriteHeader(http.StatusNoContent)
}
