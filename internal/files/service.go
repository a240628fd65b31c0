package files

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/filevault/backend/internal/logging"
	"github.com/filevault/backend/internal/models"
	"github.com/filevault/backend/internal/repositories"
	"github.com/filevault/backend/internal/storage"
	"github.com/filevault/backend/internal/thumbs"
)

// ThumbnailQueue schedules background derivative generation for images.
type ThumbnailQueue interface {
	Enqueue(ctx context.Context, job thumbs.Job) error
}

// UploadInput carries a validated-at-the-boundary upload request into
// the service. Data holds the base64-encoded payload for non-folders.
type UploadInput struct {
	Name     string
	Type     string
	ParentID string
	IsPublic bool
	Data     string
}

// Content is the result of a content retrieval: the raw bytes and the
// MIME type inferred from the node name's extension.
type Content struct {
	Reader   io.ReadCloser
	MimeType string
}

// Service orchestrates upload validation, hierarchy checks, blob
// persistence, and metadata creation.
type Service struct {
	repo  repositories.FileRepository
	blobs storage.BlobStore
	queue ThumbnailQueue

	nowFunc func() time.Time
}

// NewService constructs the file service. The queue may be nil, in
// which case image uploads simply skip thumbnail dispatch.
func NewService(repo repositories.FileRepository, blobs storage.BlobStore, queue ThumbnailQueue) *Service {
	return &Service{repo: repo, blobs: blobs, queue: queue}
}

// Upload validates the input, persists the blob for non-folders, and
// creates the metadata record. For images a thumbnail job is dispatched
// after the upload is durable; dispatch failure is logged and never
// rolls back the upload.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (models.FileNode, error) {
	if in.Name == "" {
		return models.FileNode{}, ErrMissingName
	}
	if !models.ValidType(in.Type) {
		return models.FileNode{}, ErrInvalidType
	}
	if in.Type != models.TypeFolder && in.Data == "" {
		return models.FileNode{}, ErrMissingData
	}

	parentID := in.ParentID
	if parentID == "" {
		parentID = models.RootFolderID
	}
	if parentID != models.RootFolderID {
		parent, err := s.repo.FindByIDAndOwner(ctx, parentID, ownerID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return models.FileNode{}, ErrParentNotFound
			}
			return models.FileNode{}, fmt.Errorf("look up parent: %w", err)
		}
		if !parent.IsFolder() {
			return models.FileNode{}, ErrParentNotFolder
		}
	}

	node := models.FileNode{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Type:      in.Type,
		IsPublic:  in.IsPublic,
		ParentID:  parentID,
		CreatedAt: s.now(),
	}

	if in.Type != models.TypeFolder {
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return models.FileNode{}, ErrMissingData
		}

		location, err := s.blobs.Save(ctx, uuid.NewString(), bytes.NewReader(data))
		if err != nil {
			return models.FileNode{}, fmt.Errorf("persist blob: %w", err)
		}
		node.StoragePath = location
	}

	if err := s.repo.Create(ctx, node); err != nil {
		return models.FileNode{}, fmt.Errorf("create file node: %w", err)
	}

	if node.Type == models.TypeImage && s.queue != nil {
		job := thumbs.Job{FileID: node.ID, OwnerID: node.OwnerID}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			// Thumbnailing is best effort; the upload already succeeded.
			logging.FromContext(ctx).Error("enqueue thumbnail job", "fileId", node.ID, "error", err)
		}
	}

	return node, nil
}

// Show returns the node with the given id, scoped to its owner.
func (s *Service) Show(ctx context.Context, ownerID, id string) (models.FileNode, error) {
	node, err := s.repo.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileNode{}, ErrNotFound
		}
		return models.FileNode{}, fmt.Errorf("look up file node: %w", err)
	}
	return node, nil
}

// Index lists the caller's nodes under parentID, 20 per page.
func (s *Service) Index(ctx context.Context, ownerID, parentID string, page int) ([]models.FileNode, error) {
	if parentID == "" {
		parentID = models.RootFolderID
	}
	nodes, err := s.repo.List(ctx, ownerID, parentID, page)
	if err != nil {
		return nil, fmt.Errorf("list file nodes: %w", err)
	}
	return nodes, nil
}

// SetVisibility flips a node's public flag. The operation is
// idempotent and owner-scoped end to end; a mismatch surfaces as
// ErrNotFound.
func (s *Service) SetVisibility(ctx context.Context, ownerID, id string, isPublic bool) (models.FileNode, error) {
	node, err := s.repo.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileNode{}, ErrNotFound
		}
		return models.FileNode{}, fmt.Errorf("look up file node: %w", err)
	}

	if err := s.repo.SetVisibility(ctx, id, ownerID, isPublic); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.FileNode{}, ErrNotFound
		}
		return models.FileNode{}, fmt.Errorf("update visibility: %w", err)
	}

	node.IsPublic = isPublic
	return node, nil
}

// Content serves the raw bytes of a node. Folders have no content;
// private files are readable only by their owner (callerID may be
// empty for anonymous requests). For images, size selects a derivative
// width; a derivative not yet on disk reads as not found, which also
// covers the window before the thumbnail worker has run.
func (s *Service) Content(ctx context.Context, callerID, id, size string) (Content, error) {
	node, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("look up file node: %w", err)
	}

	if node.IsFolder() {
		return Content{}, ErrFolderNoContent
	}

	if !node.IsPublic && (callerID == "" || callerID != node.OwnerID) {
		return Content{}, ErrForbidden
	}

	location := node.StoragePath
	if node.Type == models.TypeImage {
		if size == "" {
			size = strconv.Itoa(thumbs.Widths[0])
		}
		if _, err := strconv.Atoi(size); err != nil {
			return Content{}, ErrNotFound
		}
		location = fmt.Sprintf("%s_%s", location, size)
	}

	if err := s.blobs.Stat(ctx, location); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("stat blob: %w", err)
	}

	reader, err := s.blobs.Open(ctx, location)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return Content{}, ErrNotFound
		}
		return Content{}, fmt.Errorf("open blob: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(node.Name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return Content{Reader: reader, MimeType: mimeType}, nil
}

func (s *Service) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now().UTC()
}
