package fs

import (
	"io"

	"github.com/attrfs/attrfs/pkg/object"
)

// BinHandle is one open handle on a binary attribute. Unlike regular
// attribute buffers there is no fill cycle: every read and write is
// forwarded to the attribute's handlers with an explicit offset, bounded
// by the declared size.
type BinHandle struct {
	entry  *DirEntry
	obj    *object.Object
	attr   *object.BinAttribute
	fs     *Filesystem
	closed bool
}

// OpenBinFile opens a binary attribute. The requested direction must be
// allowed by the permission bits and backed by a handler on the
// attribute.
func (f *Filesystem) OpenBinFile(e *DirEntry, readable, writable bool) (*BinHandle, error) {
	if e.Kind() != KindBinAttr {
		return nil, &Error{Code: ErrInvalidArgument, Message: "not a binary attribute", Path: e.Name()}
	}
	attr := e.BinAttribute()
	parent := e.Parent()
	if parent == nil {
		return nil, &Error{Code: ErrStaleHandle, Message: "attribute detached from tree", Path: e.Name()}
	}
	obj := parent.Object()
	if obj == nil {
		return nil, &Error{Code: ErrStaleHandle, Message: "attribute has no owning object", Path: e.Name()}
	}
	if readable && (!attr.Readable() || attr.Read == nil) {
		return nil, &Error{Code: ErrPermissionDenied, Message: "attribute is not readable", Path: attr.Name}
	}
	if writable && (!attr.Writable() || attr.Write == nil) {
		return nil, &Error{Code: ErrPermissionDenied, Message: "attribute is not writable", Path: attr.Name}
	}

	e.Get()
	f.metrics.RecordOpen()
	return &BinHandle{entry: e, obj: obj, attr: attr, fs: f}, nil
}

// ReadAt reads from the attribute content at an absolute offset. Reads
// at or past the declared size return io.EOF; reads crossing it are
// shortened.
func (h *BinHandle) ReadAt(p []byte, off int64) (int, error) {
	if h.closed {
		return 0, &Error{Code: ErrStaleHandle, Message: "handle is closed", Path: h.attr.Name}
	}
	if off < 0 {
		return 0, &Error{Code: ErrInvalidArgument, Message: "negative read offset", Path: h.attr.Name}
	}
	if off >= h.attr.Size {
		return 0, io.EOF
	}
	if rem := h.attr.Size - off; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := h.attr.Read(h.obj, h.attr, p, off)
	if err == nil {
		h.fs.metrics.RecordRead(n)
	}
	return n, err
}

// WriteAt writes to the attribute content at an absolute offset. Writes
// crossing the declared size are shortened; writes starting past it
// store nothing.
func (h *BinHandle) WriteAt(p []byte, off int64) (int, error) {
	if h.closed {
		return 0, &Error{Code: ErrStaleHandle, Message: "handle is closed", Path: h.attr.Name}
	}
	if off < 0 {
		return 0, &Error{Code: ErrInvalidArgument, Message: "negative write offset", Path: h.attr.Name}
	}
	if off >= h.attr.Size {
		return 0, nil
	}
	if rem := h.attr.Size - off; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := h.attr.Write(h.obj, h.attr, p, off)
	if err == nil {
		h.fs.metrics.RecordWrite(n)
	}
	return n, err
}

// Close releases the handle's hold on its entry. Idempotent.
func (h *BinHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.entry.Put()
	h.fs.metrics.RecordRelease()
	return nil
}
