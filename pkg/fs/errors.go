package fs

import "errors"

// Error represents a domain error from filesystem core operations.
//
// These are structural errors (duplicate name, lookup miss, permission
// gating) as opposed to application errors reported by attribute show/store
// operations, which the core propagates verbatim without wrapping.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable error description.
	Message string

	// Path is the name or path related to the error, if applicable.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a filesystem core error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry doesn't exist.
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a child with the name already exists
	// under the same parent.
	ErrAlreadyExists

	// ErrNoMemory indicates a tree node or buffer could not be allocated.
	// Kept for taxonomy parity with hosts that can report allocation
	// failure per operation.
	ErrNoMemory

	// ErrPermissionDenied indicates I/O was attempted without the matching
	// show/store operation or without the permission bit.
	ErrPermissionDenied

	// ErrInvalidArgument indicates malformed parameters: empty name,
	// rename to the current name, renaming a node with no parent.
	ErrInvalidArgument

	// ErrIOError indicates an I/O failure inside this core (as opposed to
	// an application error from a show/store operation, which is returned
	// unwrapped).
	ErrIOError

	// ErrNotDirectory indicates the operation expected a directory entry.
	ErrNotDirectory

	// ErrStaleHandle indicates the entry was unlinked from the tree while
	// the caller still held a reference to it.
	ErrStaleHandle
)

// String returns the symbolic name of the code, for logs and metrics labels.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrNoMemory:
		return "no_memory"
	case ErrPermissionDenied:
		return "permission_denied"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrIOError:
		return "io_error"
	case ErrNotDirectory:
		return "not_directory"
	case ErrStaleHandle:
		return "stale_handle"
	default:
		return "unknown"
	}
}

// CodeOf extracts the ErrorCode from err. The second return is false when
// err is not a core *Error (application errors from show/store land here).
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err is a core *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
