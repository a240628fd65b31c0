package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/filevault/backend/internal/files"
	"github.com/filevault/backend/internal/logging"
	"github.com/filevault/backend/internal/models"
)

// FilesHandler implements the file management endpoints.
type FilesHandler struct {
	Files    FileService
	Sessions SessionManager
}

type uploadRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"`
}

// fileResponse is the public representation of a node. StoragePath has
// no field here; it never leaves the server.
type fileResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID string `json:"parentId"`
}

func toFileResponse(node models.FileNode) fileResponse {
	return fileResponse{
		ID:       node.ID,
		UserID:   node.OwnerID,
		Name:     node.Name,
		Type:     node.Type,
		IsPublic: node.IsPublic,
		ParentID: node.ParentID,
	}
}

// Create handles POST /files.
func (h FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.Sessions.Resolve(ctx, bearerToken(r))
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid upload payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Missing name")
		return
	}

	node, err := h.Files.Upload(ctx, userID, files.UploadInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, toFileResponse(node))
}

// Show handles GET /files/{id}.
func (h FilesHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.Sessions.Resolve(ctx, bearerToken(r))
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	node, err := h.Files.Show(ctx, userID, r.PathValue("id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toFileResponse(node))
}

// Index handles GET /files?parentId=&page=.
func (h FilesHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := h.Sessions.Resolve(ctx, bearerToken(r))
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	nodes, err := h.Files.Index(ctx, userID, r.URL.Query().Get("parentId"), page)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	response := make([]fileResponse, 0, len(nodes))
	for _, node := range nodes {
		response = append(response, toFileResponse(node))
	}

	respondJSON(ctx, w, http.StatusOK, response)
}

// Publish handles PUT /files/{id}/publish.
func (h FilesHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, true)
}

// Unpublish handles PUT /files/{id}/unpublish.
func (h FilesHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, false)
}

func (h FilesHandler) setVisibility(w http.ResponseWriter, r *http.Request, isPublic bool) {
	ctx := r.Context()

	userID, err := h.Sessions.Resolve(ctx, bearerToken(r))
	if err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	node, err := h.Files.SetVisibility(ctx, userID, r.PathValue("id"), isPublic)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toFileResponse(node))
}

// Data handles GET /files/{id}/data?size=. The token is optional here;
// public files are served to anonymous callers.
func (h FilesHandler) Data(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	callerID := ""
	if token := bearerToken(r); token != "" {
		if resolved, err := h.Sessions.Resolve(ctx, token); err == nil {
			callerID = resolved
		}
	}

	content, err := h.Files.Content(ctx, callerID, r.PathValue("id"), r.URL.Query().Get("size"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MimeType)
	if _, err := io.Copy(w, content.Reader); err != nil {
		logging.FromContext(ctx).Error("stream file content", "error", err)
	}
}

func (h FilesHandler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, files.ErrMissingName),
		errors.Is(err, files.ErrInvalidType),
		errors.Is(err, files.ErrMissingData),
		errors.Is(err, files.ErrParentNotFound),
		errors.Is(err, files.ErrParentNotFolder),
		errors.Is(err, files.ErrFolderNoContent):
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, files.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "Not found")
	case errors.Is(err, files.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "Forbidden")
	default:
		logging.FromContext(ctx).Error("file operation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "Internal server error")
	}
}
