// Package object provides the object-model layer of attrfs: named objects
// arranged in a parent/child hierarchy, each exposing a set of attribute
// files backed by show/store operations.
//
// The filesystem core (pkg/fs) projects these objects into a directory tree.
// This package knows nothing about that projection; it only defines what an
// object is and how its attribute operations are resolved.
package object

import "sync"

// Object is a named entity that owns a directory in the attribute
// filesystem and a set of attribute files beneath it.
//
// The name is mutable because renames go through the filesystem core, which
// serializes them against concurrent lookups. All other fields are fixed at
// construction time.
type Object struct {
	mu   sync.RWMutex
	name string

	// Parent places this object's directory under the parent's directory.
	// Objects with a nil parent live directly under the filesystem root.
	Parent *Object

	// Type optionally supplies per-class attribute operations and a set of
	// default attributes registered when the object's directory is created.
	Type *Type

	// Subsystem optionally supplies subsystem-wide fallback operations.
	Subsystem *Subsystem

	// Ops optionally supplies per-object attribute operations. When set,
	// they take precedence over Type and Subsystem operations.
	Ops AttrOps
}

// Type groups objects of the same class: shared attribute operations and
// the attributes every instance exposes.
type Type struct {
	// Name identifies the class in logs and diagnostics.
	Name string

	// Ops handles show/store for attributes of objects of this type.
	Ops AttrOps

	// DefaultAttrs are registered automatically when an object of this
	// type gets its directory created.
	DefaultAttrs []*Attribute
}

// Subsystem is the top-level grouping of objects. Its operations are the
// last resort when neither the object nor its type provide any.
type Subsystem struct {
	// Name identifies the subsystem.
	Name string

	// Ops is the subsystem-wide fallback for attribute show/store.
	Ops AttrOps
}

// New creates an object with the given name under parent. A nil parent
// places the object at the top level.
func New(name string, parent *Object) *Object {
	return &Object{name: name, Parent: parent}
}

// Name returns the object's current name.
func (o *Object) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name
}

// SetName updates the object's name. Callers must not invoke this directly
// while the object's directory is live; renames go through the filesystem
// core so that concurrent lookups observe a consistent name.
func (o *Object) SetName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.name = name
}

// ResolveOps selects the attribute operations for an object.
//
// Precedence mirrors the provider hierarchy: per-object operations first,
// then the object's type, then the owning subsystem. Returns nil when no
// provider supplies operations; opening an attribute of such an object
// fails with a permission error.
func ResolveOps(o *Object) AttrOps {
	if o == nil {
		return nil
	}
	if o.Ops != nil {
		return o.Ops
	}
	if o.Type != nil && o.Type.Ops != nil {
		return o.Type.Ops
	}
	if o.Subsystem != nil && o.Subsystem.Ops != nil {
		return o.Subsystem.Ops
	}
	return nil
}
