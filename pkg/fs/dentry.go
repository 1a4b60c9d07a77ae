package fs

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/attrfs/attrfs/pkg/object"
)

// PageSize bounds the textual representation of every attribute. Show
// operations fill at most one page; writes beyond it are truncated.
const PageSize = 4096

// EntryKind classifies a DirEntry.
type EntryKind int

const (
	// KindRoot is the single root of a filesystem tree.
	KindRoot EntryKind = iota

	// KindDir is an object directory.
	KindDir

	// KindAttr is a regular attribute file.
	KindAttr

	// KindBinAttr is a binary attribute file with a declared size.
	KindBinAttr

	// KindLink is a symbolic link to another object's directory.
	KindLink

	// kindCursor marks the payload-less marker entries used by directory
	// enumeration. Never visible outside this package.
	kindCursor
)

// Pinned reports whether entries of this kind anchor an object directory.
// Pinned entries (Root, Dir) are resolved by the host's own naming step and
// are never dropped as a side effect of tearing down a directory's files.
func (k EntryKind) Pinned() bool {
	return k == KindRoot || k == KindDir
}

// String returns the symbolic name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindDir:
		return "dir"
	case KindAttr:
		return "attr"
	case KindBinAttr:
		return "bin_attr"
	case KindLink:
		return "link"
	case kindCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// linkPayload is the payload of a KindLink entry: the link's own name and
// the object directory it points at.
type linkPayload struct {
	name   string
	target *object.Object
}

// DirEntry is one node of the shadow tree. It tracks an object directory,
// an attribute file, or a symbolic link independently of whether the host
// has materialized a concrete node for it.
//
// Lifetime is reference counted: created with one reference (owned by tree
// membership), acquired by host bindings and open buffers, released when
// unlinked or unbound. A DirEntry may outlive its tree membership while a
// reader still holds a reference, but it is never re-linked.
type DirEntry struct {
	kind EntryKind

	// payload depends on kind: *object.Object for Root/Dir, typed
	// attribute descriptors for Attr/BinAttr, *linkPayload for Link,
	// nil for enumeration cursors.
	payload any

	refs   atomic.Int64
	events *EventVar

	// parent is the directory whose children list currently contains this
	// entry, nil once unlinked. Written only under the parent's mu.
	parent atomic.Pointer[DirEntry]

	// sibling is this entry's element in the parent's children list.
	// Guarded by the parent's mu.
	sibling *list.Element

	// mu serializes all operations on this entry's children list. Only
	// meaningful for Root/Dir entries.
	mu       sync.Mutex
	children list.List

	// bindMu guards the host binding and the mode/override records, which
	// change independently of tree structure.
	bindMu   sync.Mutex
	host     HostNode
	mode     uint32
	override *NodeAttr
}

// NodeAttr is the externally-settable attribute override record carried by
// an entry after a host-initiated setattr. Nil fields mean "not overridden".
type NodeAttr struct {
	Mode *uint32
	UID  *uint32
	GID  *uint32
}

func newDirEntry(kind EntryKind, payload any, mode uint32) *DirEntry {
	e := &DirEntry{
		kind:    kind,
		payload: payload,
		events:  newEventVar(),
		mode:    mode,
	}
	e.refs.Store(1)
	return e
}

// Kind returns the entry's kind.
func (e *DirEntry) Kind() EntryKind { return e.kind }

// Name returns the entry's externally visible name, derived from its
// payload. Cursors have no name.
func (e *DirEntry) Name() string {
	switch p := e.payload.(type) {
	case *object.Object:
		return p.Name()
	case *object.Attribute:
		return p.Name
	case *object.BinAttribute:
		return p.Name
	case *linkPayload:
		return p.name
	default:
		return ""
	}
}

// Object returns the object behind a Root/Dir entry, or nil.
func (e *DirEntry) Object() *object.Object {
	o, _ := e.payload.(*object.Object)
	return o
}

// Attribute returns the attribute descriptor behind an Attr/BinAttr entry,
// or nil. For binary attributes the embedded Attribute is returned.
func (e *DirEntry) Attribute() *object.Attribute {
	switch p := e.payload.(type) {
	case *object.Attribute:
		return p
	case *object.BinAttribute:
		return &p.Attribute
	default:
		return nil
	}
}

// BinAttribute returns the binary attribute descriptor behind a BinAttr
// entry, or nil.
func (e *DirEntry) BinAttribute() *object.BinAttribute {
	ba, _ := e.payload.(*object.BinAttribute)
	return ba
}

// LinkTarget returns the target object of a Link entry, or nil.
func (e *DirEntry) LinkTarget() *object.Object {
	if p, ok := e.payload.(*linkPayload); ok {
		return p.target
	}
	return nil
}

// Mode returns the entry's effective permission bits: the override record
// if one was set, otherwise the mode fixed at creation.
func (e *DirEntry) Mode() uint32 {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	if e.override != nil && e.override.Mode != nil {
		return *e.override.Mode
	}
	return e.mode
}

// SetOverride installs an attribute override record, replacing any previous
// one. Passing nil clears the override.
func (e *DirEntry) SetOverride(attr *NodeAttr) {
	e.bindMu.Lock()
	e.override = attr
	e.bindMu.Unlock()
}

// Override returns the current override record, or nil.
func (e *DirEntry) Override() *NodeAttr {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	return e.override
}

// Events exposes the entry's event counter and wait queue.
func (e *DirEntry) Events() *EventVar { return e.events }

// Event returns the current value of the entry's event counter.
func (e *DirEntry) Event() uint64 { return e.events.Count() }

// Parent returns the directory this entry is currently linked under, or
// nil once unlinked.
func (e *DirEntry) Parent() *DirEntry { return e.parent.Load() }

// Get acquires one reference and returns the entry for chaining.
func (e *DirEntry) Get() *DirEntry {
	e.refs.Add(1)
	return e
}

// Put releases one reference. The entry's resources are dropped when the
// count reaches zero, which must happen only after the entry was unlinked
// from its parent.
func (e *DirEntry) Put() {
	if e.refs.Add(-1) > 0 {
		return
	}
	// Last reference gone. The entry must already be off the tree; clear
	// the payload so late accessors fail loudly instead of resurrecting
	// object state.
	e.payload = nil
}

// RefCount returns the current reference count. Used by tests and
// diagnostics.
func (e *DirEntry) RefCount() int64 {
	return e.refs.Load()
}

// Attach binds the entry to a realized host node. The caller must already
// hold the binding reference (Lookup takes it); Detach releases it.
func (e *DirEntry) Attach(h HostNode) {
	e.bindMu.Lock()
	e.host = h
	e.bindMu.Unlock()
}

// AttachIfEmpty binds h only when no host node is bound yet, and returns
// the winning binding. Callers that lose the race must release the
// reference they were going to hand over.
func (e *DirEntry) AttachIfEmpty(h HostNode) HostNode {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	if e.host != nil {
		return e.host
	}
	e.host = h
	return h
}

// Detach drops the host binding, returning the node that was bound (nil if
// none) and releasing the binding reference. Idempotent.
func (e *DirEntry) Detach() HostNode {
	e.bindMu.Lock()
	h := e.host
	e.host = nil
	e.bindMu.Unlock()
	if h != nil {
		e.Put()
	}
	return h
}

// Host returns the currently bound host node, or nil when the entry is not
// materialized.
func (e *DirEntry) Host() HostNode {
	e.bindMu.Lock()
	defer e.bindMu.Unlock()
	return e.host
}

// materializable reports whether the entry appears in enumeration: cursors
// and cleared payloads do not.
func (e *DirEntry) materializable() bool {
	return e.payload != nil && e.kind != kindCursor
}

// childByName scans the children list for a live child with the given
// name. Caller must hold e.mu. Cursors are skipped; name comparison is an
// exact byte-wise match.
func (e *DirEntry) childByName(name string) *DirEntry {
	for el := e.children.Front(); el != nil; el = el.Next() {
		child := el.Value.(*DirEntry)
		if !child.materializable() {
			continue
		}
		if child.Name() == name {
			return child
		}
	}
	return nil
}
