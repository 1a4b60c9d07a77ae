package fs

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/attrfs/attrfs/pkg/object"
)

// Buffer is one open handle on an attribute file. Each open gets its own
// buffer: one page of content, a fill flag and a drain position. The
// accessor Show method runs at most once per fill cycle no matter how
// many partial reads drain the page; Store runs exactly once per write.
//
// The buffer pins its entry for its whole lifetime, so reads and writes
// keep working after the attribute is unlinked from the tree.
type Buffer struct {
	mu sync.Mutex

	entry *DirEntry
	obj   *object.Object
	attr  *object.Attribute
	ops   object.AttrOps
	fs    *Filesystem

	// dirEvents is the wait queue of the directory holding the
	// attribute, captured at open so waiting keeps working after unlink.
	dirEvents *EventVar

	page      []byte
	count     int
	pos       int
	needsFill bool

	// event is the entry's change counter observed at the last fill or
	// readiness report. A mismatch against the live counter means the
	// value changed since we last looked.
	event uint64

	readable bool
	writable bool
	closed   bool
}

// OpenFile opens an attribute file for reading, writing or both. Access
// is gated here, once: the requested direction must be allowed by the
// attribute's permission bits and backed by a method on the object's
// resolved accessor. Opening with neither direction requested is an
// error.
func (f *Filesystem) OpenFile(e *DirEntry, readable, writable bool) (*Buffer, error) {
	if e.Kind() != KindAttr {
		return nil, &Error{Code: ErrInvalidArgument, Message: "not an attribute file", Path: e.Name()}
	}
	if !readable && !writable {
		return nil, &Error{Code: ErrInvalidArgument, Message: "open requires at least one access direction", Path: e.Name()}
	}
	attr := e.Attribute()
	parent := e.Parent()
	if parent == nil {
		return nil, &Error{Code: ErrStaleHandle, Message: "attribute detached from tree", Path: e.Name()}
	}
	obj := parent.Object()
	if obj == nil {
		return nil, &Error{Code: ErrStaleHandle, Message: "attribute has no owning object", Path: e.Name()}
	}
	ops := object.ResolveOps(obj)
	if ops == nil {
		return nil, &Error{Code: ErrPermissionDenied, Message: "object has no attribute accessor", Path: e.Name()}
	}
	if readable && (!attr.Readable() || !object.CanShow(ops)) {
		return nil, &Error{Code: ErrPermissionDenied, Message: "attribute is not readable", Path: attr.Name}
	}
	if writable && (!attr.Writable() || !object.CanStore(ops)) {
		return nil, &Error{Code: ErrPermissionDenied, Message: "attribute is not writable", Path: attr.Name}
	}

	e.Get()
	b := &Buffer{
		entry:     e,
		obj:       obj,
		attr:      attr,
		ops:       ops,
		fs:        f,
		dirEvents: parent.Events(),
		needsFill: true,
		event:     e.Event(),
		readable:  readable,
		writable:  writable,
	}
	f.metrics.RecordOpen()
	return b, nil
}

// fill runs the accessor's Show once and resets the drain position. The
// change counter is sampled before Show runs, so a change racing with the
// fill is still observable afterwards. Caller holds b.mu.
func (b *Buffer) fill() error {
	if b.page == nil {
		b.page = make([]byte, PageSize)
	}
	b.event = b.entry.Event()

	start := time.Now()
	n, err := b.ops.Show(b.obj, b.attr, b.page)
	b.fs.metrics.RecordFill(time.Since(start), err != nil)
	if err != nil {
		return err
	}
	if n < 0 || n > PageSize {
		return &Error{Code: ErrIOError, Message: "accessor produced an out-of-range length", Path: b.attr.Name}
	}
	b.count = n
	b.pos = 0
	b.needsFill = false
	return nil
}

// Read drains the buffered content incrementally. The first read after
// open (or after a write or a change report) fills the page via the
// accessor; later reads only copy from the page. Returns io.EOF once the
// page is drained.
func (b *Buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, &Error{Code: ErrStaleHandle, Message: "buffer is closed", Path: b.attr.Name}
	}
	if !b.readable {
		return 0, &Error{Code: ErrPermissionDenied, Message: "buffer not open for reading", Path: b.attr.Name}
	}
	if b.needsFill {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	if b.pos >= b.count {
		return 0, io.EOF
	}
	n := copy(p, b.page[b.pos:b.count])
	b.pos += n
	b.fs.metrics.RecordRead(n)
	return n, nil
}

// ReadAt copies from the filled page at an absolute offset without moving
// the drain position. Host bindings that get explicit offsets from their
// protocol use this instead of Read.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, &Error{Code: ErrStaleHandle, Message: "buffer is closed", Path: b.attr.Name}
	}
	if !b.readable {
		return 0, &Error{Code: ErrPermissionDenied, Message: "buffer not open for reading", Path: b.attr.Name}
	}
	if b.needsFill {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	if off < 0 {
		return 0, &Error{Code: ErrInvalidArgument, Message: "negative read offset", Path: b.attr.Name}
	}
	if off >= int64(b.count) {
		return 0, io.EOF
	}
	n := copy(p, b.page[off:b.count])
	b.fs.metrics.RecordRead(n)
	return n, nil
}

// Write hands the data to the accessor's Store in a single shot. Content
// longer than one page less a byte is truncated before Store sees it.
// The returned count is whatever Store reports; its error comes back
// verbatim so accessors can expose validation failures unchanged. A
// successful store marks the page for refill, so the next read re-runs
// Show and sees the value the accessor actually kept.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, &Error{Code: ErrStaleHandle, Message: "buffer is closed", Path: b.attr.Name}
	}
	if !b.writable {
		return 0, &Error{Code: ErrPermissionDenied, Message: "buffer not open for writing", Path: b.attr.Name}
	}
	if b.page == nil {
		b.page = make([]byte, PageSize)
	}
	if len(p) > PageSize-1 {
		p = p[:PageSize-1]
	}
	n := copy(b.page, p)

	stored, err := b.ops.Store(b.obj, b.attr, b.page[:n])
	if err != nil {
		return 0, err
	}
	if stored > 0 {
		b.pos += stored
	}
	b.needsFill = true
	b.fs.metrics.RecordWrite(stored)
	return stored, nil
}

// Ready reports whether the attribute changed since this buffer last
// looked at it. A true result is edge-triggered: the observation is
// recorded and the next fill re-runs the accessor, so each change is
// reported at most once per handle.
func (b *Buffer) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	current := b.entry.Event()
	if current == b.event {
		return false
	}
	b.event = current
	b.needsFill = true
	return true
}

// Wait blocks until the attribute changes or the context is done. The
// change is consumed the same way Ready consumes it.
func (b *Buffer) Wait(ctx context.Context) error {
	for {
		if b.Ready() {
			return nil
		}
		// Subscribe before rechecking so a wake between the check and
		// the select is not lost.
		ch := b.dirEvents.Changed()
		if b.Ready() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Close releases the buffer's hold on its entry. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.page = nil
	b.entry.Put()
	b.fs.metrics.RecordRelease()
	return nil
}
