package fs

import "container/list"

// DirEnt is one enumerated directory entry: a snapshot taken under the
// directory lock, safe to use after the lock is dropped.
type DirEnt struct {
	Name string
	Kind EntryKind
	Mode uint32
}

// Cursor tracks a position in a directory's children during enumeration.
// The cursor is a real member of the children list: a payload-less marker
// entry that concurrent removals leave in place, so enumeration can be
// interleaved with creates and removes without invalidation. Entries
// removed mid-enumeration are simply not yielded past the point of
// removal; entries added behind the marker are not revisited.
//
// A Cursor is not safe for concurrent use by multiple goroutines.
type Cursor struct {
	dir    *DirEntry
	marker *DirEntry
	closed bool
}

// OpenDir starts an enumeration of dir, positioned before the first
// entry. The caller must Close the cursor to release its hold on the
// directory.
func (f *Filesystem) OpenDir(dir *DirEntry) *Cursor {
	marker := newDirEntry(kindCursor, nil, 0)
	dir.Get()
	dir.mu.Lock()
	marker.parent.Store(dir)
	marker.sibling = dir.children.PushFront(marker)
	dir.mu.Unlock()
	return &Cursor{dir: dir, marker: marker}
}

// Next advances past the next live entry and returns its snapshot.
// Returns ok=false when the enumeration is exhausted or the cursor is
// closed.
func (c *Cursor) Next() (DirEnt, bool) {
	if c.closed {
		return DirEnt{}, false
	}
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	for el := c.marker.sibling.Next(); el != nil; el = el.Next() {
		e := el.Value.(*DirEntry)
		if !e.materializable() {
			continue
		}
		c.dir.children.MoveAfter(c.marker.sibling, el)
		return DirEnt{Name: e.Name(), Kind: e.kind, Mode: e.Mode()}, true
	}
	// Exhausted; park the marker at the back so a repeated Next stays
	// O(1).
	c.dir.children.MoveToBack(c.marker.sibling)
	return DirEnt{}, false
}

// Seek repositions the cursor so the next call to Next yields the entry
// at position n, counting live entries from the front. Seeking past the
// end parks the cursor after the last entry.
func (c *Cursor) Seek(n int) {
	if c.closed {
		return
	}
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.dir.children.Remove(c.marker.sibling)
	var after *list.Element
	skipped := 0
	for el := c.dir.children.Front(); el != nil && skipped < n; el = el.Next() {
		e := el.Value.(*DirEntry)
		if !e.materializable() {
			continue
		}
		after = el
		skipped++
	}
	if after == nil {
		c.marker.sibling = c.dir.children.PushFront(c.marker)
	} else {
		c.marker.sibling = c.dir.children.InsertAfter(c.marker, after)
	}
}

// Close removes the cursor's marker from the directory and releases its
// hold. Idempotent.
func (c *Cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.dir.mu.Lock()
	c.dir.children.Remove(c.marker.sibling)
	c.marker.sibling = nil
	c.marker.parent.Store(nil)
	c.dir.mu.Unlock()
	c.dir.Put()
}
