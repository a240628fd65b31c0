package handlers

import (
	"context"

	"github.com/filevault/backend/internal/files"
	"github.com/filevault/backend/internal/models"
)

// UserStore captures the persistence operations required by the user
// and auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Count(ctx context.Context) (int64, error)
}

// SessionManager issues, resolves, and revokes bearer tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string)
}

// FileService orchestrates uploads, lookups, visibility toggles, and
// content retrieval.
type FileService interface {
	Upload(ctx context.Context, ownerID string, in files.UploadInput) (models.FileNode, error)
	Show(ctx context.Context, ownerID, id string) (models.FileNode, error)
	Index(ctx context.Context, ownerID, parentID string, page int) ([]models.FileNode, error)
	SetVisibility(ctx context.Context, ownerID, id string, isPublic bool) (models.FileNode, error)
	Content(ctx context.Context, callerID, id, size string) (files.Content, error)
}

// FileCounter reports the number of stored file nodes.
type FileCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users        UserStore
	Sessions     SessionManager
	Files        FileService
	FileCounts   FileCounter
	AuthLimiter  RateLimiter
	CheckDB      func(ctx context.Context) error
	CheckStorage func(ctx context.Context) error
}
