package repositories

import (
	"context"

	"github.com/filevault/backend/internal/models"
)

// FileRepository defines the data access contract for file nodes.
type FileRepository interface {
	Create(ctx context.Context, node models.FileNode) error
	FindByID(ctx context.Context, id string) (models.FileNode, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (models.FileNode, error)
	List(ctx context.Context, ownerID, parentID string, page int) ([]models.FileNode, error)
	SetVisibility(ctx context.Context, id, ownerID string, isPublic bool) error
	Count(ctx context.Context) (int64, error)
}
