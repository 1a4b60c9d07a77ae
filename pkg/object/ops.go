package object

import "sync"

// AttrOps is the show/store operation pair bound to an attribute file when
// it is opened.
//
// Show fills page (one page, pre-sized by the caller) with the attribute's
// current textual value and returns the number of bytes written. Store
// consumes a complete replacement value and returns the number of bytes
// accepted. Errors from either are propagated verbatim to the reader or
// writer that triggered the call.
type AttrOps interface {
	Show(o *Object, attr *Attribute, page []byte) (int, error)
	Store(o *Object, attr *Attribute, data []byte) (int, error)
}

// OpsCapabilities is an optional interface an AttrOps implementation can
// provide to declare which directions it supports. Operations that do not
// implement it are assumed to support both.
//
// The filesystem core consults this at open time: opening for read requires
// CanShow, opening for write requires CanStore.
type OpsCapabilities interface {
	CanShow() bool
	CanStore() bool
}

// OpsFuncs adapts plain functions to AttrOps. A nil function marks the
// direction as unsupported.
type OpsFuncs struct {
	ShowFunc  func(o *Object, attr *Attribute, page []byte) (int, error)
	StoreFunc func(o *Object, attr *Attribute, data []byte) (int, error)
}

func (f OpsFuncs) Show(o *Object, attr *Attribute, page []byte) (int, error) {
	if f.ShowFunc == nil {
		return 0, ErrNoShow
	}
	return f.ShowFunc(o, attr, page)
}

func (f OpsFuncs) Store(o *Object, attr *Attribute, data []byte) (int, error) {
	if f.StoreFunc == nil {
		return 0, ErrNoStore
	}
	return f.StoreFunc(o, attr, data)
}

func (f OpsFuncs) CanShow() bool  { return f.ShowFunc != nil }
func (f OpsFuncs) CanStore() bool { return f.StoreFunc != nil }

// CanShow reports whether ops supports reads. Nil ops support nothing.
func CanShow(ops AttrOps) bool {
	if ops == nil {
		return false
	}
	if c, ok := ops.(OpsCapabilities); ok {
		return c.CanShow()
	}
	return true
}

// CanStore reports whether ops supports writes. Nil ops support nothing.
func CanStore(ops AttrOps) bool {
	if ops == nil {
		return false
	}
	if c, ok := ops.(OpsCapabilities); ok {
		return c.CanStore()
	}
	return true
}

// StaticOps is an AttrOps implementation backed by per-attribute in-memory
// values. Show returns the stored value, Store replaces it. Useful for
// configuration-seeded attributes and tests.
type StaticOps struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStaticOps creates a StaticOps with the given initial values keyed by
// attribute name.
func NewStaticOps(values map[string]string) *StaticOps {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticOps{values: copied}
}

func (s *StaticOps) Show(o *Object, attr *Attribute, page []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copy(page, s.values[attr.Name]), nil
}

func (s *StaticOps) Store(o *Object, attr *Attribute, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[attr.Name] = string(data)
	return len(data), nil
}

// Value returns the current value for name. Exposed for tests and the
// notification path of seeded objects.
func (s *StaticOps) Value(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}
