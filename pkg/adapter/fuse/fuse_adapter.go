// Package fuse implements the adapter.Adapter interface on top of a FUSE
// mount, projecting the attribute tree into the host's file namespace.
//
// The adapter is a host binding in the filesystem core's sense: directory
// entries stay authoritative in the core, kernel nodes are materialized on
// demand through Lookup and dropped again on eviction. The kernel may
// forget any node at any time; the core's tree does not care.
package fuse

import (
	"context"
	"errors"
	"sync"
	"time"

	bfuse "bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/attrfs/attrfs/internal/logger"
	attrfs "github.com/attrfs/attrfs/pkg/fs"
)

// Adapter implements adapter.Adapter for a FUSE mount.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Unmount requested from the kernel
//  3. The serve loop drains and the connection is closed
//  4. Serve returns once the kernel released the mount (bounded by
//     ShutdownTimeout)
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown uses sync.Once so
// repeated Stop calls are idempotent.
type Adapter struct {
	config Config

	// fsys is the shared filesystem core, injected before Serve.
	fsys *attrfs.Filesystem

	mu     sync.Mutex
	conn   *bfuse.Conn
	server *fusefs.Server

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New creates a FUSE adapter with the given configuration. Defaults are
// applied for zero-valued fields.
func New(config Config) *Adapter {
	config.ApplyDefaults()
	return &Adapter{
		config:   config,
		shutdown: make(chan struct{}),
	}
}

// SetFilesystem injects the shared filesystem core. Called exactly once
// before Serve.
func (a *Adapter) SetFilesystem(f *attrfs.Filesystem) {
	a.fsys = f
}

// Protocol returns the protocol name for logging.
func (a *Adapter) Protocol() string {
	return "FUSE"
}

// Endpoint returns the configured mountpoint.
func (a *Adapter) Endpoint() string {
	return a.config.Mountpoint
}

// Serve mounts the attribute tree and blocks until the context is
// cancelled, Stop is called, or the kernel connection fails.
func (a *Adapter) Serve(ctx context.Context) error {
	if a.fsys == nil {
		return errors.New("fuse: filesystem not injected")
	}
	if a.config.Mountpoint == "" {
		return errors.New("fuse: mountpoint not configured")
	}

	// A stale mount from a crashed previous run would make Mount fail.
	_ = bfuse.Unmount(a.config.Mountpoint)

	opts := []bfuse.MountOption{
		bfuse.FSName(a.config.FSName),
		bfuse.Subtype(a.config.Subtype),
	}
	if a.config.AllowOther {
		opts = append(opts, bfuse.AllowOther())
	}

	conn, err := bfuse.Mount(a.config.Mountpoint, opts...)
	if err != nil {
		return err
	}
	server := fusefs.New(conn, nil)

	a.mu.Lock()
	a.conn = conn
	a.server = server
	a.mu.Unlock()

	// With the server available, directory materialization can start
	// pushing kernel invalidations.
	a.fsys.SetMaterializer(&materializer{adapter: a})

	logger.Info("FUSE adapter serving %s at %s", a.config.FSName, a.config.Mountpoint)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(rootFS{adapter: a})
	}()

	select {
	case <-ctx.Done():
		a.unmount()
	case <-a.shutdown:
		a.unmount()
	case err := <-serveErr:
		_ = conn.Close()
		return err
	}

	select {
	case err := <-serveErr:
		_ = conn.Close()
		if err != nil {
			return err
		}
		return ctx.Err()
	case <-time.After(a.config.ShutdownTimeout):
		_ = conn.Close()
		return errors.New("fuse: kernel did not release the mount before the shutdown timeout")
	}
}

// Stop initiates graceful shutdown. Idempotent and safe to call
// concurrently with Serve.
func (a *Adapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		close(a.shutdown)
	})
	return nil
}

func (a *Adapter) unmount() {
	logger.Info("unmounting %s", a.config.Mountpoint)
	if err := bfuse.Unmount(a.config.Mountpoint); err != nil {
		logger.Warn("unmount of %s failed: %v", a.config.Mountpoint, err)
	}
}

// rootFS adapts the filesystem core to bazil's FS interface.
type rootFS struct {
	adapter *Adapter
}

// Root returns the node for the mount root.
func (r rootFS) Root() (fusefs.Node, error) {
	return &dirNode{adapter: r.adapter, entry: r.adapter.fsys.Root()}, nil
}

// materializer receives host binding callbacks from the filesystem core
// and translates them into kernel cache invalidations.
type materializer struct {
	adapter *Adapter
}

func (m *materializer) CreateDir(entry *attrfs.DirEntry, name string) (attrfs.HostNode, error) {
	// Kernel nodes are built lazily on lookup; registration only needs a
	// handle the later callbacks can use.
	return &dirNode{adapter: m.adapter, entry: entry}, nil
}

func (m *materializer) RemoveDir(entry *attrfs.DirEntry, h attrfs.HostNode) {
	m.invalidate(h)
}

func (m *materializer) RenameDir(entry *attrfs.DirEntry, h attrfs.HostNode, oldName, newName string) error {
	// The kernel learns the new name on the next lookup; dropping the
	// cached node is all that is needed.
	m.invalidate(h)
	return nil
}

func (m *materializer) InvalidateNode(h attrfs.HostNode) {
	m.invalidate(h)
}

func (m *materializer) Touch(h attrfs.HostNode) {
	if n, ok := h.(interface{ touch() }); ok {
		n.touch()
	}
}

func (m *materializer) Chmod(h attrfs.HostNode, mode uint32) {
	// Node attributes are read live from the entry; the short attr
	// validity window makes the kernel re-fetch them.
}

func (m *materializer) invalidate(h attrfs.HostNode) {
	m.adapter.mu.Lock()
	server := m.adapter.server
	m.adapter.mu.Unlock()
	if server == nil {
		return
	}
	n, ok := h.(fusefs.Node)
	if !ok {
		return
	}
	if err := server.InvalidateNodeData(n); err != nil && !errors.Is(err, bfuse.ErrNotCached) {
		logger.Debug("kernel invalidation failed: %v", err)
	}
}
