package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/filevault/backend/internal/logging"
)

// tokenHeader carries the bearer token on every authenticated request.
const tokenHeader = "X-Token"

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError writes the single-field error body every failure uses.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

// bearerToken extracts the session token from the request, if any.
func bearerToken(r *http.Request) string {
	return r.Header.Get(tokenHeader)
}
