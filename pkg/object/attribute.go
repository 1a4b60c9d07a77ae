package object

// Permission bit masks used for attribute read/write gating.
// Only read and write bits matter to the filesystem core; everything else
// is carried through to the host binding untouched.
const (
	ModeReadMask  = 0444
	ModeWriteMask = 0222
)

// Attribute describes one named piece of object state exposed as a regular
// file. The textual representation produced by Show is bounded to one page.
type Attribute struct {
	// Name is the file name within the object's directory.
	Name string

	// Mode holds Unix permission bits. The read bits gate Show, the write
	// bits gate Store.
	Mode uint32
}

// BinAttribute is an attribute with an explicit declared file size, used
// for fixed-format binary content. Regular attributes report the page size
// instead.
type BinAttribute struct {
	Attribute

	// Size is the declared file size in bytes.
	Size int64

	// Read and Write, when set, handle positional I/O on the attribute
	// content. Binary attributes carry their handlers directly rather
	// than going through the object's resolved AttrOps.
	Read  func(o *Object, attr *BinAttribute, p []byte, off int64) (int, error)
	Write func(o *Object, attr *BinAttribute, p []byte, off int64) (int, error)
}

// Readable reports whether any read permission bit is set.
func (a *Attribute) Readable() bool {
	return a.Mode&ModeReadMask != 0
}

// Writable reports whether any write permission bit is set.
func (a *Attribute) Writable() bool {
	return a.Mode&ModeWriteMask != 0
}
