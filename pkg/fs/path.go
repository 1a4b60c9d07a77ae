package fs

import (
	"strings"
)

// PathOf returns the slash-separated path of an entry from the root,
// without a leading slash. The root itself maps to the empty string.
func (f *Filesystem) PathOf(e *DirEntry) string {
	var parts []string
	for cur := e; cur != nil && cur != f.root; cur = cur.Parent() {
		parts = append(parts, cur.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// LinkPath computes the relative path a link entry should resolve to:
// enough parent steps to climb from the link's directory to the root,
// then the target directory's path back down. Relative targets stay
// correct when the whole tree is mounted at an arbitrary mountpoint.
func (f *Filesystem) LinkPath(link *DirEntry) (string, error) {
	target := link.LinkTarget()
	if target == nil {
		return "", &Error{Code: ErrInvalidArgument, Message: "entry is not a link", Path: link.Name()}
	}
	td := f.DirOf(target)
	if td == nil {
		return "", &Error{Code: ErrNotFound, Message: "link target has no directory", Path: link.Name()}
	}
	parent := link.Parent()
	if parent == nil {
		return "", &Error{Code: ErrStaleHandle, Message: "link detached from tree", Path: link.Name()}
	}

	var b strings.Builder
	for cur := parent; cur != nil && cur != f.root; cur = cur.Parent() {
		b.WriteString("../")
	}
	down := f.PathOf(td)
	if down == "" {
		return strings.TrimSuffix(b.String(), "/"), nil
	}
	b.WriteString(down)
	return b.String(), nil
}
