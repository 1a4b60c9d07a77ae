package fs

import (
	"github.com/attrfs/attrfs/internal/logger"
	"github.com/attrfs/attrfs/pkg/object"
)
// RenameDir renames an object's directory in place. Renaming to the
// current name is rejected, as is renaming a parentless directory. The
// destination name must be free in the parent.
//
// All renames are serialized by the filesystem-wide rename lock, then
// the parent directory lock orders the rename against concurrent
// lookups and enumeration under the same parent.
func (f *Filesystem) RenameDir(o *object.Object, newName string) error {
	if newName == "" {
		return &Error{Code: ErrInvalidArgument, Message: "new name must not be empty"}
	}
	e := f.DirOf(o)
	if e == nil {
		return &Error{Code: ErrNotFound, Message: "object has no directory"}
	}
	parent := e.Parent()
	if parent == nil {
		return &Error{Code: ErrInvalidArgument, Message: "cannot rename a detached directory", Path: o.Name()}
	}

	f.renameMu.Lock()
	defer f.renameMu.Unlock()

	parent.mu.Lock()
	oldName := o.Name()
	if newName == oldName {
		parent.mu.Unlock()
		return &Error{Code: ErrInvalidArgument, Message: "new name matches current name", Path: oldName}
	}
	if parent.childByName(newName) != nil {
		parent.mu.Unlock()
		return &Error{Code: ErrAlreadyExists, Message: "destination name is taken", Path: newName}
	}
	o.SetName(newName)
	parent.mu.Unlock()

	if h := e.Host(); h != nil && f.host != nil {
		if err := f.host.RenameDir(e, h, oldName, newName); err != nil {
			parent.mu.Lock()
			o.SetName(oldName)
			parent.mu.Unlock()
			return err
		}
	}

	logger.Debug("renamed directory %s to %s", oldName, newName)
	return nil
}
