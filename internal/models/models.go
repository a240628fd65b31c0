package models

import "time"

// User represents an account within the FileVault service.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// File node types.
const (
	TypeFolder = "folder"
	TypeFile   = "file"
	TypeImage  = "image"
)

// RootFolderID is the canonical parent id for top-level nodes. Every
// layer (API, repositories, queries) uses this single value.
const RootFolderID = "0"

// ValidType reports whether t is one of the supported node types.
func ValidType(t string) bool {
	return t == TypeFolder || t == TypeFile || t == TypeImage
}

// FileNode is the metadata record for a folder or a stored file/image.
// StoragePath is internal-only: folders never carry one and it is
// stripped before a node crosses the API boundary.
type FileNode struct {
	ID          string
	OwnerID     string
	Name        string
	Type        string
	IsPublic    bool
	ParentID    string
	StoragePath string
	CreatedAt   time.Time
}

// IsFolder reports whether the node is a folder.
func (n FileNode) IsFolder() bool { return n.Type == TypeFolder }
