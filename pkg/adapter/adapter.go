package adapter

import (
	"context"

	"github.com/attrfs/attrfs/pkg/fs"
)

// Adapter represents a host binding that projects the attribute tree into
// an external namespace and can be managed by the attrfs server.
//
// Each adapter speaks one host protocol (e.g. FUSE) and provides a
// unified interface for lifecycle management. All adapters share the same
// filesystem core, so the object hierarchy looks identical regardless of
// how it is mounted.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Filesystem injection: SetFilesystem() provides the shared tree
//  3. Startup: Serve() mounts the tree and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful unmount with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetFilesystem() is
// called once before Serve(), but Stop() may be called concurrently with
// Serve().
type Adapter interface {
	// Serve starts the host binding and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful
	// shutdown: stop serving new requests, release the mount, and return
	// context.Canceled or nil. If Serve returns before cancellation the
	// server treats it as fatal and stops all other adapters.
	Serve(ctx context.Context) error

	// SetFilesystem injects the shared filesystem core. Called exactly
	// once before Serve().
	SetFilesystem(f *fs.Filesystem)

	// Stop initiates graceful shutdown. Must be idempotent and safe to
	// call concurrently with Serve(); the context bounds the shutdown.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging.
	// The returned value should be constant for the adapter's lifetime.
	Protocol() string

	// Endpoint returns where the adapter projects the tree, e.g. the
	// mountpoint path. Used for logging and health reporting.
	Endpoint() string
}
