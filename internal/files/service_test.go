package files

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/filevault/backend/internal/models"
	"github.com/filevault/backend/internal/repositories"
	"github.com/filevault/backend/internal/storage"
	"github.com/filevault/backend/internal/thumbs"
)

type memFileRepo struct {
	mu    sync.Mutex
	nodes map[string]models.FileNode
	order []string
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{nodes: make(map[string]models.FileNode)}
}

func (r *memFileRepo) Create(_ context.Context, node models.FileNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[node.ID]; exists {
		return repositories.ErrConflict
	}
	r.nodes[node.ID] = node
	r.order = append(r.order, node.ID)
	return nil
}

func (r *memFileRepo) FindByID(_ context.Context, id string) (models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return models.FileNode{}, repositories.ErrNotFound
	}
	return node, nil
}

func (r *memFileRepo) FindByIDAndOwner(_ context.Context, id, ownerID string) (models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return models.FileNode{}, repositories.ErrNotFound
	}
	return node, nil
}

func (r *memFileRepo) List(_ context.Context, ownerID, parentID string, page int) ([]models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.FileNode
	for _, id := range r.order {
		node := r.nodes[id]
		if node.OwnerID == ownerID && node.ParentID == parentID {
			node.StoragePath = ""
			matched = append(matched, node)
		}
	}

	start := page * repositories.PageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + repositories.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *memFileRepo) SetVisibility(_ context.Context, id, ownerID string, isPublic bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	node.IsPublic = isPublic
	r.nodes[id] = node
	return nil
}

func (r *memFileRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.nodes)), nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	location := "mem/" + name
	s.mu.Lock()
	s.blobs[location] = data
	s.saves++
	s.mu.Unlock()
	return location, nil
}

func (s *memBlobStore) Write(_ context.Context, location string, data []byte) error {
	s.mu.Lock()
	s.blobs[location] = data
	s.mu.Unlock()
	return nil
}

func (s *memBlobStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.blobs[location]
	s.mu.Unlock()
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Stat(_ context.Context, location string) error {
	s.mu.Lock()
	_, ok := s.blobs[location]
	s.mu.Unlock()
	if !ok {
		return storage.ErrBlobNotFound
	}
	return nil
}

func (s *memBlobStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []thumbs.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job thumbs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newTestService() (*Service, *memFileRepo, *memBlobStore, *recordingQueue) {
	repo := newMemFileRepo()
	blobs := newMemBlobStore()
	queue := &recordingQueue{}
	return NewService(repo, blobs, queue), repo, blobs, queue
}

func encode(data string) string {
	return base64.StdEncoding.EncodeToString([]byte(data))
}

func TestUploadValidationOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"missing name", UploadInput{Type: models.TypeFile, Data: encode("x")}, ErrMissingName},
		{"missing type", UploadInput{Name: "a"}, ErrInvalidType},
		{"bad type", UploadInput{Name: "a", Type: "archive"}, ErrInvalidType},
		{"missing data", UploadInput{Name: "a", Type: models.TypeFile}, ErrMissingData},
		{"missing data image", UploadInput{Name: "a", Type: models.TypeImage}, ErrMissingData},
		{"bad parent", UploadInput{Name: "a", Type: models.TypeFile, Data: encode("x"), ParentID: "nope"}, ErrParentNotFound},
	}

	for _, tc := range cases {
		if _, err := svc.Upload(ctx, "user-1", tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v got %v", tc.name, tc.want, err)
		}
	}
}

func TestUploadParentMustBeFolder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	file, err := svc.Upload(ctx, "user-1", UploadInput{Name: "notes.txt", Type: models.TypeFile, Data: encode("hi")})
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}

	if _, err := svc.Upload(ctx, "user-1", UploadInput{
		Name: "child.txt", Type: models.TypeFile, Data: encode("x"), ParentID: file.ID,
	}); !errors.Is(err, ErrParentNotFolder) {
		t.Fatalf("expected ErrParentNotFolder got %v", err)
	}

	// A parent owned by someone else reads as not found, not as a
	// hierarchy error.
	folder, err := svc.Upload(ctx, "user-2", UploadInput{Name: "theirs", Type: models.TypeFolder})
	if err != nil {
		t.Fatalf("upload folder: %v", err)
	}
	if _, err := svc.Upload(ctx, "user-1", UploadInput{
		Name: "child.txt", Type: models.TypeFile, Data: encode("x"), ParentID: folder.ID,
	}); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound got %v", err)
	}
}

func TestUploadFolderNeverWritesBlob(t *testing.T) {
	svc, _, blobs, queue := newTestService()

	node, err := svc.Upload(context.Background(), "user-1", UploadInput{Name: "docs", Type: models.TypeFolder})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if node.StoragePath != "" {
		t.Fatalf("folder should have no storage path, got %q", node.StoragePath)
	}
	if blobs.saveCount() != 0 {
		t.Fatalf("folder upload wrote %d blobs", blobs.saveCount())
	}
	if node.ParentID != models.RootFolderID {
		t.Fatalf("expected root parent got %q", node.ParentID)
	}
	if len(queue.jobs) != 0 {
		t.Fatal("folder upload should not enqueue thumbnail jobs")
	}
}

func TestUploadFileWritesExactlyOneBlob(t *testing.T) {
	svc, _, blobs, queue := newTestService()

	node, err := svc.Upload(context.Background(), "user-1", UploadInput{
		Name: "notes.txt", Type: models.TypeFile, Data: encode("contents"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if blobs.saveCount() != 1 {
		t.Fatalf("expected exactly one blob write, got %d", blobs.saveCount())
	}
	if node.StoragePath == "" {
		t.Fatal("file should have a storage path")
	}
	if len(queue.jobs) != 0 {
		t.Fatal("plain file upload should not enqueue thumbnail jobs")
	}
}

func TestUploadImageEnqueuesJob(t *testing.T) {
	svc, _, _, queue := newTestService()

	node, err := svc.Upload(context.Background(), "user-1", UploadInput{
		Name: "photo.png", Type: models.TypeImage, Data: encode("pngbytes"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("expected one thumbnail job, got %d", len(queue.jobs))
	}
	if queue.jobs[0].FileID != node.ID || queue.jobs[0].OwnerID != "user-1" {
		t.Fatalf("unexpected job %+v", queue.jobs[0])
	}
}

func TestUploadSurvivesEnqueueFailure(t *testing.T) {
	svc, repo, _, queue := newTestService()
	queue.err = errors.New("queue full")

	node, err := svc.Upload(context.Background(), "user-1", UploadInput{
		Name: "photo.png", Type: models.TypeImage, Data: encode("pngbytes"),
	})
	if err != nil {
		t.Fatalf("upload should succeed despite enqueue failure: %v", err)
	}

	if _, err := repo.FindByIDAndOwner(context.Background(), node.ID, "user-1"); err != nil {
		t.Fatalf("upload was rolled back: %v", err)
	}
}

func TestShowIsOwnerScoped(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	node, err := svc.Upload(ctx, "user-1", UploadInput{Name: "docs", Type: models.TypeFolder})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Show(ctx, "user-1", node.ID); err != nil {
		t.Fatalf("owner show: %v", err)
	}
	if _, err := svc.Show(ctx, "user-2", node.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other caller got %v", err)
	}
	if _, err := svc.Show(ctx, "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id got %v", err)
	}
}

func TestSetVisibilityIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	node, err := svc.Upload(ctx, "user-1", UploadInput{Name: "notes.txt", Type: models.TypeFile, Data: encode("x")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	for i := 0; i < 2; i++ {
		updated, err := svc.SetVisibility(ctx, "user-1", node.ID, true)
		if err != nil {
			t.Fatalf("publish attempt %d: %v", i+1, err)
		}
		if !updated.IsPublic {
			t.Fatalf("publish attempt %d: expected isPublic=true", i+1)
		}
	}

	updated, err := svc.SetVisibility(ctx, "user-1", node.ID, false)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if updated.IsPublic {
		t.Fatal("expected isPublic=false after unpublish")
	}

	if _, err := svc.SetVisibility(ctx, "user-2", node.ID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner got %v", err)
	}
}

func TestContentAccess(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	folder, err := svc.Upload(ctx, "user-1", UploadInput{Name: "docs", Type: models.TypeFolder})
	if err != nil {
		t.Fatalf("upload folder: %v", err)
	}
	private, err := svc.Upload(ctx, "user-1", UploadInput{Name: "notes.txt", Type: models.TypeFile, Data: encode("secret")})
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}

	if _, err := svc.Content(ctx, "user-1", folder.ID, ""); !errors.Is(err, ErrFolderNoContent) {
		t.Fatalf("expected ErrFolderNoContent got %v", err)
	}

	// Private file: anonymous and non-owner callers are rejected, the
	// owner reads it, in any order.
	if _, err := svc.Content(ctx, "", private.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous got %v", err)
	}
	if _, err := svc.Content(ctx, "user-2", private.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner got %v", err)
	}

	content, err := svc.Content(ctx, "user-1", private.ID, "")
	if err != nil {
		t.Fatalf("owner content: %v", err)
	}
	data, _ := io.ReadAll(content.Reader)
	content.Reader.Close()
	if string(data) != "secret" {
		t.Fatalf("expected file bytes got %q", data)
	}
	if content.MimeType != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected mime type %q", content.MimeType)
	}

	// Publish, then anonymous reads succeed.
	if _, err := svc.SetVisibility(ctx, "user-1", private.ID, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.Content(ctx, "", private.ID, ""); err != nil {
		t.Fatalf("anonymous content after publish: %v", err)
	}

	if _, err := svc.Content(ctx, "user-1", "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestContentImageDerivatives(t *testing.T) {
	svc, _, blobs, _ := newTestService()
	ctx := context.Background()

	node, err := svc.Upload(ctx, "user-1", UploadInput{
		Name: "photo.png", Type: models.TypeImage, Data: encode("source"), IsPublic: true,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Before the worker has run, every derivative read is a 404-shaped
	// miss, including the default size.
	if _, err := svc.Content(ctx, "", node.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before thumbnails exist got %v", err)
	}

	// Simulate the worker writing derivatives beside the source.
	original, _ := svc.Show(ctx, "user-1", node.ID)
	for _, width := range []int{500, 250, 100} {
		location := fmt.Sprintf("%s_%d", original.StoragePath, width)
		if err := blobs.Write(ctx, location, []byte(fmt.Sprintf("thumb-%d", width))); err != nil {
			t.Fatalf("write derivative: %v", err)
		}
	}

	content, err := svc.Content(ctx, "", node.ID, "100")
	if err != nil {
		t.Fatalf("content size=100: %v", err)
	}
	data, _ := io.ReadAll(content.Reader)
	content.Reader.Close()
	if string(data) != "thumb-100" {
		t.Fatalf("expected 100px derivative got %q", data)
	}
	if content.MimeType != "image/png" {
		t.Fatalf("unexpected mime type %q", content.MimeType)
	}

	// Default size is 500.
	content, err = svc.Content(ctx, "", node.ID, "")
	if err != nil {
		t.Fatalf("content default size: %v", err)
	}
	data, _ = io.ReadAll(content.Reader)
	content.Reader.Close()
	if string(data) != "thumb-500" {
		t.Fatalf("expected 500px derivative got %q", data)
	}

	// Unsupported sizes have no blob on disk and read as not found.
	if _, err := svc.Content(ctx, "", node.ID, "999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for size=999 got %v", err)
	}
	if _, err := svc.Content(ctx, "", node.ID, "../etc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-numeric size got %v", err)
	}
}

func TestIndexPagination(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	folder, err := svc.Upload(ctx, "user-1", UploadInput{Name: "bulk", Type: models.TypeFolder})
	if err != nil {
		t.Fatalf("upload folder: %v", err)
	}

	for i := 0; i < 25; i++ {
		if _, err := svc.Upload(ctx, "user-1", UploadInput{
			Name: fmt.Sprintf("file-%02d.txt", i), Type: models.TypeFile, Data: encode("x"), ParentID: folder.ID,
		}); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}

	page0, err := svc.Index(ctx, "user-1", folder.ID, 0)
	if err != nil {
		t.Fatalf("index page 0: %v", err)
	}
	if len(page0) != 20 {
		t.Fatalf("expected 20 nodes on page 0, got %d", len(page0))
	}

	page1, err := svc.Index(ctx, "user-1", folder.ID, 1)
	if err != nil {
		t.Fatalf("index page 1: %v", err)
	}
	if len(page1) != 5 {
		t.Fatalf("expected 5 nodes on page 1, got %d", len(page1))
	}

	// Insertion order holds across pages.
	if page0[0].Name != "file-00.txt" || page1[0].Name != "file-20.txt" {
		t.Fatalf("unexpected ordering: %q, %q", page0[0].Name, page1[0].Name)
	}

	// Listing another owner's folder yields nothing.
	other, err := svc.Index(ctx, "user-2", folder.ID, 0)
	if err != nil {
		t.Fatalf("index other owner: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty listing for other owner, got %d", len(other))
	}
}
