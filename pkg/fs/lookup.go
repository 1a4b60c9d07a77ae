package fs

import (
	"github.com/attrfs/attrfs/pkg/object"
)

// Materialization describes an entry resolved by Lookup, carrying
// everything a host binding needs to build its node without touching the
// entry again under lock.
type Materialization struct {
	// Entry holds one reference taken on the caller's behalf. The caller
	// either hands it to Attach together with the host node it builds, or
	// releases it with Put.
	Entry *DirEntry

	Kind EntryKind
	Mode uint32

	// Size is the advertised file size: the page size for attribute
	// files, the declared size for binary attributes, zero otherwise.
	Size int64

	// LinkTarget is set for links only.
	LinkTarget *object.Object
}

// Lookup resolves name to a leaf entry (attribute file, binary attribute
// or link) under dir. Subdirectories are not resolved here; their host
// nodes are created eagerly when the object directory is created, so
// lookups for them go through ChildDir.
//
// Returns ErrNotFound when no live leaf with that name exists.
func (f *Filesystem) Lookup(dir *DirEntry, name string) (*Materialization, error) {
	dir.mu.Lock()
	child := dir.childByName(name)
	if child != nil && child.kind.Pinned() {
		child = nil
	}
	if child == nil {
		dir.mu.Unlock()
		f.metrics.RecordLookup(false)
		return nil, &Error{Code: ErrNotFound, Message: "no such entry", Path: name}
	}
	child.Get()
	dir.mu.Unlock()

	m := &Materialization{
		Entry: child,
		Kind:  child.Kind(),
		Mode:  child.Mode(),
	}
	switch child.Kind() {
	case KindAttr:
		m.Size = PageSize
	case KindBinAttr:
		if ba, ok := child.payload.(*object.BinAttribute); ok {
			m.Size = ba.Size
		}
	case KindLink:
		m.LinkTarget = child.LinkTarget()
	}
	f.metrics.RecordLookup(true)
	return m, nil
}

// ChildDir resolves name to a subdirectory entry under dir, or nil if no
// live subdirectory with that name exists. No reference is taken; the
// returned entry is pinned by its object registration.
func (f *Filesystem) ChildDir(dir *DirEntry, name string) *DirEntry {
	dir.mu.Lock()
	defer dir.mu.Unlock()
	child := dir.childByName(name)
	if child == nil || !child.kind.Pinned() {
		return nil
	}
	return child
}
