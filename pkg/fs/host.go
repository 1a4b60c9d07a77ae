package fs

// HostNode is an opaque handle to a realized host directory-entry/file-node
// pair. The core never touches its internals; it only tracks the
// association between a DirEntry and the host object serving it.
type HostNode any

// Materializer is the contract with the host directory/file layer.
//
// Directories are materialized proactively at creation time; attribute
// files and links are materialized lazily, by the host calling Lookup and
// binding the returned entry itself. A nil Materializer is valid: the tree
// then exists purely in memory, which is how the library is used in tests
// and by embedders that drive Lookup directly.
//
// Implementations must tolerate concurrent calls for different directories;
// calls for one directory are serialized by the core.
type Materializer interface {
	// CreateDir binds a concrete host node to a freshly linked directory
	// entry. An error unwinds the entry from the tree before the creation
	// call returns.
	CreateDir(entry *DirEntry, name string) (HostNode, error)

	// RemoveDir releases the host node of a directory whose children have
	// already been torn down.
	RemoveDir(entry *DirEntry, h HostNode)

	// RenameDir atomically relocates the host binding to the new name.
	// An error leaves the core's state unchanged (the core reverts the
	// name it had tentatively assigned).
	RenameDir(entry *DirEntry, h HostNode, oldName, newName string) error

	// InvalidateNode drops a lazily materialized attribute or link node,
	// typically because its entry was removed from the tree.
	InvalidateNode(h HostNode)

	// Touch updates the modification timestamp on a materialized node.
	Touch(h HostNode)

	// Chmod propagates a permission change to a materialized node.
	Chmod(h HostNode, mode uint32)
}
