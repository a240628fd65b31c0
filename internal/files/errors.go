package files

import "errors"

// Validation and access sentinels. The handler layer maps these to
// HTTP statuses; the messages are part of the API contract.
var (
	ErrMissingName     = errors.New("Missing name")
	ErrInvalidType     = errors.New("Invalid type")
	ErrMissingData     = errors.New("Missing data")
	ErrParentNotFound  = errors.New("Parent not found")
	ErrParentNotFolder = errors.New("Parent is not a folder")

	// ErrNotFound covers both absent nodes and ownership mismatches,
	// so callers cannot probe for the existence of private files.
	ErrNotFound = errors.New("Not found")
	// ErrForbidden indicates the node exists but is private and the
	// caller is not its owner.
	ErrForbidden = errors.New("Forbidden")
	// ErrFolderNoContent indicates a content request against a folder.
	ErrFolderNoContent = errors.New("A folder doesn't have content")
)
