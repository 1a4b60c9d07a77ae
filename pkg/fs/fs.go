// Package fs implements the attrfs core: a refcounted shadow tree of
// directory entries projecting objects and their attributes into a file
// namespace, the fill-once/drain-incrementally attribute buffer protocol,
// and the event-counter change notification mechanism.
//
// The tree is authoritative and independent of any host directory-entry
// caching: a host node may be evicted and recreated at any time, but the
// object hierarchy and attribute set stay resolvable here without
// re-registration.
package fs

import (
	"sync"

	"github.com/attrfs/attrfs/internal/logger"
	"github.com/attrfs/attrfs/pkg/metrics"
	"github.com/attrfs/attrfs/pkg/object"
)

// DirMode is the permission mode given to object directories.
const DirMode = 0755

// LinkMode is the permission mode given to symbolic links.
const LinkMode = 0777

// Filesystem is one attribute filesystem instance: a tree rooted at a
// single Root entry, a registry of object directories, and the global
// rename-ordering lock.
//
// All methods are safe for concurrent use. Operations under different
// parent directories proceed independently; operations under one parent
// are mutually exclusive.
type Filesystem struct {
	root *DirEntry

	// mu guards the object-to-directory registry.
	mu   sync.RWMutex
	dirs map[*object.Object]*DirEntry

	// renameMu serializes all renames system-wide. Two renames under
	// different parents could otherwise deadlock on per-directory locks
	// taken in opposite order.
	renameMu sync.Mutex

	host    Materializer
	metrics metrics.FSMetrics
}

// New creates an empty filesystem with just the root directory entry.
func New() *Filesystem {
	return &Filesystem{
		root:    newDirEntry(KindRoot, nil, DirMode),
		dirs:    make(map[*object.Object]*DirEntry),
		metrics: metrics.NewNoopFSMetrics(),
	}
}

// SetMaterializer installs the host binding layer. Must be called before
// any directories are created; a nil materializer keeps the tree purely
// in-memory.
func (f *Filesystem) SetMaterializer(m Materializer) {
	f.host = m
}

// SetMetrics installs a metrics collector. Passing nil restores the no-op
// collector.
func (f *Filesystem) SetMetrics(m metrics.FSMetrics) {
	if m == nil {
		m = metrics.NewNoopFSMetrics()
	}
	f.metrics = m
}

// Root returns the root directory entry.
func (f *Filesystem) Root() *DirEntry {
	return f.root
}

// DirOf returns the directory entry registered for an object, or nil if
// the object has no directory in this filesystem.
func (f *Filesystem) DirOf(o *object.Object) *DirEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dirs[o]
}

// Exists reports whether dir currently has a live child with the given
// name. Name comparison is an exact byte-wise match.
func (f *Filesystem) Exists(dir *DirEntry, name string) bool {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	return dir.childByName(name) != nil
}

// create allocates a new entry and links it under parent, enforcing the
// one-node-per-(parent, name) invariant. The new entry holds one reference
// owned by its tree membership. No host node is created here.
func (f *Filesystem) create(parent *DirEntry, payload any, kind EntryKind, mode uint32) (*DirEntry, error) {
	e := newDirEntry(kind, payload, mode)
	name := e.Name()
	if name == "" {
		return nil, &Error{Code: ErrInvalidArgument, Message: "entry name must not be empty"}
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if parent.childByName(name) != nil {
		return nil, &Error{Code: ErrAlreadyExists, Message: "entry already exists", Path: name}
	}

	e.parent.Store(parent)
	e.sibling = parent.children.PushBack(e)
	f.metrics.RecordEntryCreated(kind.String())
	return e, nil
}

// unlink removes e from its parent's children list. Safe to call on an
// already-unlinked entry; removal walks are re-runnable. Does not release
// the tree-membership reference; callers pair unlink with Put.
func (f *Filesystem) unlink(e *DirEntry) {
	for {
		parent := e.parent.Load()
		if parent == nil {
			return
		}
		parent.mu.Lock()
		if e.parent.Load() != parent {
			// Raced with another unlink or a concurrent teardown;
			// retry against the current parent.
			parent.mu.Unlock()
			continue
		}
		if e.sibling != nil {
			parent.children.Remove(e.sibling)
			e.sibling = nil
		}
		e.parent.Store(nil)
		parent.mu.Unlock()
		f.metrics.RecordEntryRemoved(e.kind.String())
		return
	}
}

// removeEntry unlinks e and releases the tree-membership reference. The
// entry stays alive while other references (host bindings, open buffers)
// are outstanding.
func (f *Filesystem) removeEntry(e *DirEntry) {
	f.unlink(e)
	e.Put()
}

// CreateDir creates the directory for an object, under its parent's
// directory (or the root for parentless objects), registers the object's
// type default attributes, and asks the host to materialize the directory.
//
// Any failure after the entry is linked unwinds the linkage before
// returning, so a failed creation never leaves a visible-but-unbacked
// node.
func (f *Filesystem) CreateDir(o *object.Object) error {
	if o == nil {
		return &Error{Code: ErrInvalidArgument, Message: "object must not be nil"}
	}
	if o.Name() == "" {
		return &Error{Code: ErrInvalidArgument, Message: "object name must not be empty"}
	}

	parent := f.root
	if o.Parent != nil {
		parent = f.DirOf(o.Parent)
		if parent == nil {
			return &Error{Code: ErrNotFound, Message: "parent object has no directory", Path: o.Parent.Name()}
		}
	}

	e, err := f.create(parent, o, KindDir, DirMode)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if _, dup := f.dirs[o]; dup {
		f.mu.Unlock()
		f.removeEntry(e)
		return &Error{Code: ErrAlreadyExists, Message: "object already has a directory", Path: o.Name()}
	}
	f.dirs[o] = e
	f.mu.Unlock()

	if f.host != nil {
		h, err := f.host.CreateDir(e, o.Name())
		if err != nil {
			f.forgetDir(o, e)
			return err
		}
		e.Get()
		e.Attach(h)
	}

	if o.Type != nil {
		for i, attr := range o.Type.DefaultAttrs {
			if err := f.CreateFile(o, attr); err != nil {
				// Unwind the attributes registered so far, then the
				// directory itself.
				for _, prev := range o.Type.DefaultAttrs[:i] {
					if rmErr := f.RemoveFile(o, prev.Name); rmErr != nil {
						logger.Warn("unwind of default attribute %s/%s failed: %v", o.Name(), prev.Name, rmErr)
					}
				}
				if h := e.Detach(); h != nil && f.host != nil {
					f.host.RemoveDir(e, h)
				}
				f.forgetDir(o, e)
				return err
			}
		}
	}

	logger.Debug("created directory for object %s", o.Name())
	return nil
}

// forgetDir unwinds a partially created directory: drops the registry
// entry and the tree linkage.
func (f *Filesystem) forgetDir(o *object.Object, e *DirEntry) {
	f.mu.Lock()
	if f.dirs[o] == e {
		delete(f.dirs, o)
	}
	f.mu.Unlock()
	f.removeEntry(e)
}

// CreateFile registers an attribute file in an object's directory. The
// host node is not created here; it is materialized lazily on the first
// lookup.
func (f *Filesystem) CreateFile(o *object.Object, attr *object.Attribute) error {
	if attr == nil || attr.Name == "" {
		return &Error{Code: ErrInvalidArgument, Message: "attribute name must not be empty"}
	}
	dir := f.DirOf(o)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	_, err := f.create(dir, attr, KindAttr, attr.Mode&0777)
	return err
}

// CreateBinFile registers a binary attribute file with a declared size.
func (f *Filesystem) CreateBinFile(o *object.Object, attr *object.BinAttribute) error {
	if attr == nil || attr.Name == "" {
		return &Error{Code: ErrInvalidArgument, Message: "attribute name must not be empty"}
	}
	dir := f.DirOf(o)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	_, err := f.create(dir, attr, KindBinAttr, attr.Mode&0777)
	return err
}

// CreateLink registers a symbolic link named name in owner's directory,
// pointing at target's directory.
func (f *Filesystem) CreateLink(owner, target *object.Object, name string) error {
	if name == "" {
		return &Error{Code: ErrInvalidArgument, Message: "link name must not be empty"}
	}
	dir := f.DirOf(owner)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "owner object has no directory"}
	}
	if f.DirOf(target) == nil {
		return &Error{Code: ErrNotFound, Message: "link target has no directory", Path: name}
	}
	_, err := f.create(dir, &linkPayload{name: name, target: target}, KindLink, LinkMode)
	return err
}

// RemoveFile removes the attribute file or link named name from an
// object's directory. The entry's memory is reclaimed once the last
// outstanding reference (open buffer, host binding) is gone.
func (f *Filesystem) RemoveFile(o *object.Object, name string) error {
	dir := f.DirOf(o)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	return f.removeChild(dir, name)
}

// RemoveLink removes a symbolic link. Links and attribute files share the
// same removal path.
func (f *Filesystem) RemoveLink(o *object.Object, name string) error {
	return f.RemoveFile(o, name)
}

// removeChild unlinks the unpinned child with the given name from dir and
// invalidates its host binding if one exists.
func (f *Filesystem) removeChild(dir *DirEntry, name string) error {
	dir.mu.Lock()
	child := dir.childByName(name)
	if child == nil || child.kind.Pinned() {
		dir.mu.Unlock()
		return &Error{Code: ErrNotFound, Message: "no such attribute", Path: name}
	}
	if child.sibling != nil {
		dir.children.Remove(child.sibling)
		child.sibling = nil
	}
	child.parent.Store(nil)
	dir.mu.Unlock()

	f.metrics.RecordEntryRemoved(child.kind.String())
	if h := child.Detach(); h != nil && f.host != nil {
		f.host.InvalidateNode(h)
	}
	child.Put()
	return nil
}

// RemoveDir removes an object's directory. Every unpinned child (attribute
// files, links) is torn down first, dropping host bindings and releasing
// tree membership, and only then is the directory itself unlinked
// and its host materialization released.
//
// Nested subdirectories are not descended into: callers remove child
// objects depth-first before removing the parent.
func (f *Filesystem) RemoveDir(o *object.Object) error {
	e := f.DirOf(o)
	if e == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}

	// Children before parent, always.
	e.mu.Lock()
	var dropped []*DirEntry
	for el := e.children.Front(); el != nil; {
		next := el.Next()
		child := el.Value.(*DirEntry)
		if child.materializable() && !child.kind.Pinned() {
			e.children.Remove(el)
			child.sibling = nil
			child.parent.Store(nil)
			dropped = append(dropped, child)
		}
		el = next
	}
	e.mu.Unlock()

	for _, child := range dropped {
		f.metrics.RecordEntryRemoved(child.kind.String())
		if h := child.Detach(); h != nil && f.host != nil {
			f.host.InvalidateNode(h)
		}
		child.Put()
	}

	f.mu.Lock()
	if f.dirs[o] == e {
		delete(f.dirs, o)
	}
	f.mu.Unlock()

	if h := e.Detach(); h != nil && f.host != nil {
		f.host.RemoveDir(e, h)
	}
	f.removeEntry(e)
	logger.Debug("removed directory for object %s", o.Name())
	return nil
}

// TouchFile updates the modification timestamp on the materialized node of
// an attribute. Returns ErrNotFound if the attribute is not registered;
// attributes that have never been materialized are left untouched.
func (f *Filesystem) TouchFile(o *object.Object, name string) error {
	dir := f.DirOf(o)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	dir.mu.Lock()
	child := dir.childByName(name)
	dir.mu.Unlock()
	if child == nil {
		return &Error{Code: ErrNotFound, Message: "no such attribute", Path: name}
	}
	if h := child.Host(); h != nil && f.host != nil {
		f.host.Touch(h)
	}
	return nil
}

// ChmodFile changes the permission bits of an attribute file, recording
// them in the entry's override record and propagating to the materialized
// host node if one exists.
func (f *Filesystem) ChmodFile(o *object.Object, name string, mode uint32) error {
	dir := f.DirOf(o)
	if dir == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	dir.mu.Lock()
	child := dir.childByName(name)
	dir.mu.Unlock()
	if child == nil {
		return &Error{Code: ErrNotFound, Message: "no such attribute", Path: name}
	}

	mode &= 0777
	child.SetOverride(&NodeAttr{Mode: &mode})
	if h := child.Host(); h != nil && f.host != nil {
		f.host.Chmod(h, mode)
	}
	return nil
}

// Notify signals that the value behind an attribute changed. The path is
// (object, optional subdirectory name, optional attribute name); the walk
// resolves each step by name and the reached node's event counter is
// incremented. Waiters are woken on the directory holding the reached
// node, which is where open buffers subscribe, and on the object's own
// directory when a subdirectory walk moved past it. Waiters learn that
// something changed, not what.
func (f *Filesystem) Notify(o *object.Object, dir, attr string) error {
	e := f.DirOf(o)
	if e == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}

	group := e
	if dir != "" {
		group.mu.Lock()
		child := group.childByName(dir)
		group.mu.Unlock()
		if child == nil {
			return &Error{Code: ErrNotFound, Message: "no such subdirectory", Path: dir}
		}
		group = child
	}
	target := group
	if attr != "" {
		group.mu.Lock()
		child := group.childByName(attr)
		group.mu.Unlock()
		if child == nil {
			return &Error{Code: ErrNotFound, Message: "no such attribute", Path: attr}
		}
		target = child
	}

	target.Events().Bump()
	group.Events().Wake()
	if group != e {
		e.Events().Wake()
	}
	f.metrics.RecordNotify()
	return nil
}
