package handlers

import (
	"context"
	"net/http"

	"github.com/filevault/backend/internal/logging"
)

// StatusHandler reports service liveness and aggregate counts.
type StatusHandler struct {
	CheckDB      func(ctx context.Context) error
	CheckStorage func(ctx context.Context) error
	Users        UserStore
	Files        FileCounter
}

// Status implements GET /status.
func (h StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbOK := h.CheckDB != nil && h.CheckDB(ctx) == nil
	storageOK := h.CheckStorage != nil && h.CheckStorage(ctx) == nil

	respondJSON(ctx, w, http.StatusOK, map[string]bool{
		"db":      dbOK,
		"storage": storageOK,
	})
}

// Stats implements GET /stats.
func (h StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Users.Count(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("count users", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	nodes, err := h.Files.Count(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("count files", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]int64{
		"users": users,
		"files": nodes,
	})
}
