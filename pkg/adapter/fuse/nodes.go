package fuse

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	bfuse "bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/google/uuid"

	"github.com/attrfs/attrfs/internal/logger"
	attrfs "github.com/attrfs/attrfs/pkg/fs"
)

// attrValidity caps how long the kernel may cache node attributes.
// Permission overrides and touches become visible after at most this long.
const attrValidity = time.Second

// errno maps core filesystem errors onto FUSE errnos.
func errno(err error) error {
	if err == nil {
		return nil
	}
	code, ok := attrfs.CodeOf(err)
	if !ok {
		return bfuse.Errno(syscall.EIO)
	}
	switch code {
	case attrfs.ErrNotFound:
		return bfuse.Errno(syscall.ENOENT)
	case attrfs.ErrAlreadyExists:
		return bfuse.Errno(syscall.EEXIST)
	case attrfs.ErrNoMemory:
		return bfuse.Errno(syscall.ENOMEM)
	case attrfs.ErrPermissionDenied:
		return bfuse.Errno(syscall.EACCES)
	case attrfs.ErrInvalidArgument:
		return bfuse.Errno(syscall.EINVAL)
	case attrfs.ErrNotDirectory:
		return bfuse.Errno(syscall.ENOTDIR)
	case attrfs.ErrStaleHandle:
		return bfuse.Errno(syscall.ESTALE)
	default:
		return bfuse.Errno(syscall.EIO)
	}
}

// dirNode projects a directory entry into the kernel namespace.
type dirNode struct {
	adapter *Adapter
	entry   *attrfs.DirEntry
	mtime   atomic.Int64
}

func (d *dirNode) touch() {
	d.mtime.Store(time.Now().UnixNano())
}

// Attr fills in the standard metadata for the directory.
func (d *dirNode) Attr(ctx context.Context, a *bfuse.Attr) error {
	a.Valid = attrValidity
	a.Mode = os.ModeDir | os.FileMode(d.entry.Mode()&0777)
	if ns := d.mtime.Load(); ns != 0 {
		a.Mtime = time.Unix(0, ns)
	}
	return nil
}

// Lookup resolves one name under this directory: subdirectories first,
// then attribute files and links.
func (d *dirNode) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	fsys := d.adapter.fsys

	if child := fsys.ChildDir(d.entry, name); child != nil {
		if h := child.Host(); h != nil {
			if n, ok := h.(fusefs.Node); ok {
				return n, nil
			}
		}
		return &dirNode{adapter: d.adapter, entry: child}, nil
	}

	m, err := fsys.Lookup(d.entry, name)
	if err != nil {
		return nil, errno(err)
	}

	var node fusefs.Node
	switch m.Kind {
	case attrfs.KindAttr:
		node = &fileNode{adapter: d.adapter, entry: m.Entry, size: m.Size}
	case attrfs.KindBinAttr:
		node = &binNode{adapter: d.adapter, entry: m.Entry, size: m.Size}
	case attrfs.KindLink:
		node = &linkNode{adapter: d.adapter, entry: m.Entry}
	default:
		m.Entry.Put()
		return nil, bfuse.Errno(syscall.EIO)
	}

	// Bind the kernel node to the entry so later invalidations can reach
	// it. A concurrent lookup may have bound one already; reuse it.
	winner := m.Entry.AttachIfEmpty(node)
	if winner != attrfs.HostNode(node) {
		m.Entry.Put()
		return winner.(fusefs.Node), nil
	}
	return node, nil
}

// ReadDirAll enumerates the directory through a core cursor.
func (d *dirNode) ReadDirAll(ctx context.Context) ([]bfuse.Dirent, error) {
	c := d.adapter.fsys.OpenDir(d.entry)
	defer c.Close()

	var ents []bfuse.Dirent
	for {
		ent, ok := c.Next()
		if !ok {
			return ents, nil
		}
		de := bfuse.Dirent{Name: ent.Name}
		switch ent.Kind {
		case attrfs.KindDir, attrfs.KindRoot:
			de.Type = bfuse.DT_Dir
		case attrfs.KindLink:
			de.Type = bfuse.DT_Link
		default:
			de.Type = bfuse.DT_File
		}
		ents = append(ents, de)
	}
}

// fileNode projects a regular attribute file.
type fileNode struct {
	adapter *Adapter
	entry   *attrfs.DirEntry
	size    int64
	mtime   atomic.Int64
}

func (f *fileNode) touch() {
	f.mtime.Store(time.Now().UnixNano())
}

func (f *fileNode) Attr(ctx context.Context, a *bfuse.Attr) error {
	a.Valid = attrValidity
	a.Mode = os.FileMode(f.entry.Mode() & 0777)
	a.Size = uint64(f.size)
	if ns := f.mtime.Load(); ns != 0 {
		a.Mtime = time.Unix(0, ns)
	}
	return nil
}

// Open allocates one buffer per handle. Direct I/O is forced because the
// advertised size is a page, not the actual content length.
func (f *fileNode) Open(ctx context.Context, req *bfuse.OpenRequest, resp *bfuse.OpenResponse) (fusefs.Handle, error) {
	readable := !req.Flags.IsWriteOnly()
	writable := !req.Flags.IsReadOnly()

	b, err := f.adapter.fsys.OpenFile(f.entry, readable, writable)
	if err != nil {
		return nil, errno(err)
	}

	h := &fileHandle{buf: b, id: uuid.NewString()}
	resp.Flags |= bfuse.OpenDirectIO
	logger.Debug("opened attribute %s (handle %s, read=%t write=%t)", f.entry.Name(), h.id, readable, writable)
	return h, nil
}

// Forget releases the kernel binding when the node is evicted.
func (f *fileNode) Forget() {
	f.entry.Detach()
}

// fileHandle wraps one attribute buffer.
type fileHandle struct {
	buf *attrfs.Buffer
	id  string
}

func (h *fileHandle) Read(ctx context.Context, req *bfuse.ReadRequest, resp *bfuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.buf.ReadAt(buf, req.Offset)
	if errors.Is(err, io.EOF) {
		resp.Data = nil
		return nil
	}
	if err != nil {
		return errno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *fileHandle) Write(ctx context.Context, req *bfuse.WriteRequest, resp *bfuse.WriteResponse) error {
	if _, err := h.buf.Write(req.Data); err != nil {
		return errno(err)
	}
	// Report the full request as written; the store operation consumed
	// the whole value even if it condensed it.
	resp.Size = len(req.Data)
	return nil
}

// Poll reports exceptional readiness when the attribute changed since the
// handle last looked at it.
func (h *fileHandle) Poll(ctx context.Context, req *bfuse.PollRequest, resp *bfuse.PollResponse) error {
	if h.buf.Ready() {
		resp.REvents = bfuse.PollError | bfuse.PollPriority
	}
	return nil
}

func (h *fileHandle) Release(ctx context.Context, req *bfuse.ReleaseRequest) error {
	logger.Debug("released handle %s", h.id)
	return h.buf.Close()
}

// binNode projects a binary attribute file.
type binNode struct {
	adapter *Adapter
	entry   *attrfs.DirEntry
	size    int64
	mtime   atomic.Int64
}

func (b *binNode) touch() {
	b.mtime.Store(time.Now().UnixNano())
}

func (b *binNode) Attr(ctx context.Context, a *bfuse.Attr) error {
	a.Valid = attrValidity
	a.Mode = os.FileMode(b.entry.Mode() & 0777)
	a.Size = uint64(b.size)
	if ns := b.mtime.Load(); ns != 0 {
		a.Mtime = time.Unix(0, ns)
	}
	return nil
}

func (b *binNode) Open(ctx context.Context, req *bfuse.OpenRequest, resp *bfuse.OpenResponse) (fusefs.Handle, error) {
	readable := !req.Flags.IsWriteOnly()
	writable := !req.Flags.IsReadOnly()

	h, err := b.adapter.fsys.OpenBinFile(b.entry, readable, writable)
	if err != nil {
		return nil, errno(err)
	}
	return &binHandle{bin: h, id: uuid.NewString()}, nil
}

func (b *binNode) Forget() {
	b.entry.Detach()
}

// binHandle wraps one binary attribute handle.
type binHandle struct {
	bin *attrfs.BinHandle
	id  string
}

func (h *binHandle) Read(ctx context.Context, req *bfuse.ReadRequest, resp *bfuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.bin.ReadAt(buf, req.Offset)
	if errors.Is(err, io.EOF) {
		resp.Data = nil
		return nil
	}
	if err != nil {
		return errno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *binHandle) Write(ctx context.Context, req *bfuse.WriteRequest, resp *bfuse.WriteResponse) error {
	n, err := h.bin.WriteAt(req.Data, req.Offset)
	if err != nil {
		return errno(err)
	}
	resp.Size = n
	return nil
}

func (h *binHandle) Release(ctx context.Context, req *bfuse.ReleaseRequest) error {
	return h.bin.Close()
}

// linkNode projects a symbolic link.
type linkNode struct {
	adapter *Adapter
	entry   *attrfs.DirEntry
}

func (l *linkNode) Attr(ctx context.Context, a *bfuse.Attr) error {
	a.Valid = attrValidity
	a.Mode = os.ModeSymlink | os.FileMode(l.entry.Mode()&0777)
	return nil
}

func (l *linkNode) Readlink(ctx context.Context, req *bfuse.ReadlinkRequest) (string, error) {
	path, err := l.adapter.fsys.LinkPath(l.entry)
	if err != nil {
		return "", errno(err)
	}
	return path, nil
}

func (l *linkNode) Forget() {
	l.entry.Detach()
}
