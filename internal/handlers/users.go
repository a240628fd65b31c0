package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/filevault/backend/internal/logging"
	"github.com/filevault/backend/internal/models"
	"github.com/filevault/backend/internal/repositories"
)

// UsersHandler implements account registration and the current-user lookup.
type UsersHandler struct {
	Users    UserStore
	Sessions SessionManager
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Create handles POST /users.
func (h UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "users") {
		respondError(ctx, w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid create user payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Missing email")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "Missing email")
		return
	}
	if req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "Missing password")
		return
	}

	if _, err := h.Users.FindByEmail(ctx, req.Email); err == nil {
		respondError(ctx, w, http.StatusBadRequest, "Already exist")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("create user lookup failed", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusBadRequest, "Already exist")
			return
		}
		logger.Error("create user", "error", err, "email", req.Email)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("welcome new user", "email", user.Email)

	respondJSON(ctx, w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

// Me handles GET /users/me.
func (h UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.Sessions.Resolve(ctx, bearerToken(r))
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		logging.FromContext(ctx).Error("fetch current user", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}

func (h UsersHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
