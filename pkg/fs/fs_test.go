package fs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrfs/attrfs/pkg/object"
)

// hostCall records one Materializer invocation for order assertions.
type hostCall struct {
	op   string
	name string
}

// recordingHost is a Materializer fake that records every call and can be
// told to fail directory creation or renames.
type recordingHost struct {
	mu         sync.Mutex
	calls      []hostCall
	failCreate bool
	failRename bool
}

type fakeNode struct {
	name string
}

func (h *recordingHost) record(op, name string) {
	h.mu.Lock()
	h.calls = append(h.calls, hostCall{op: op, name: name})
	h.mu.Unlock()
}

func (h *recordingHost) CreateDir(e *DirEntry, name string) (HostNode, error) {
	h.record("create_dir", name)
	if h.failCreate {
		return nil, &Error{Code: ErrIOError, Message: "host create failed", Path: name}
	}
	return &fakeNode{name: name}, nil
}

func (h *recordingHost) RemoveDir(e *DirEntry, hn HostNode) {
	h.record("remove_dir", hn.(*fakeNode).name)
}

func (h *recordingHost) RenameDir(e *DirEntry, hn HostNode, oldName, newName string) error {
	h.record("rename_dir", newName)
	if h.failRename {
		return &Error{Code: ErrIOError, Message: "host rename failed", Path: newName}
	}
	hn.(*fakeNode).name = newName
	return nil
}

func (h *recordingHost) InvalidateNode(hn HostNode) {
	h.record("invalidate", hn.(*fakeNode).name)
}

func (h *recordingHost) Touch(hn HostNode) {
	h.record("touch", hn.(*fakeNode).name)
}

func (h *recordingHost) Chmod(hn HostNode, mode uint32) {
	h.record("chmod", hn.(*fakeNode).name)
}

func (h *recordingHost) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	for i, c := range h.calls {
		out[i] = c.op + ":" + c.name
	}
	return out
}

// newTestObject creates an object backed by StaticOps with the given
// attribute values.
func newTestObject(name string, parent *object.Object, values map[string]string) *object.Object {
	o := object.New(name, parent)
	o.Ops = object.NewStaticOps(values)
	return o
}

// TestCreateDirRegistersDefaultAttrs verifies that creating an object's
// directory also registers its type's default attribute files.
func TestCreateDirRegistersDefaultAttrs(t *testing.T) {
	f := New()
	o := newTestObject("cpu0", nil, map[string]string{"online": "1\n", "freq": "2400000\n"})
	o.Type = &object.Type{
		Name: "cpu",
		DefaultAttrs: []*object.Attribute{
			{Name: "online", Mode: 0644},
			{Name: "freq", Mode: 0444},
		},
	}

	require.NoError(t, f.CreateDir(o))

	dir := f.DirOf(o)
	require.NotNil(t, dir)
	assert.True(t, f.Exists(dir, "online"))
	assert.True(t, f.Exists(dir, "freq"))
	assert.False(t, f.Exists(dir, "missing"))
}

// TestCreateDirDuplicateName verifies the one-node-per-name invariant for
// sibling directories.
func TestCreateDirDuplicateName(t *testing.T) {
	f := New()
	require.NoError(t, f.CreateDir(newTestObject("devices", nil, nil)))

	err := f.CreateDir(newTestObject("devices", nil, nil))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrAlreadyExists))
}

// TestCreateDirMissingParent verifies that a child object cannot get a
// directory before its parent has one.
func TestCreateDirMissingParent(t *testing.T) {
	f := New()
	parent := newTestObject("bus", nil, nil)
	child := newTestObject("usb0", parent, nil)

	err := f.CreateDir(child)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))

	require.NoError(t, f.CreateDir(parent))
	require.NoError(t, f.CreateDir(child))
	assert.NotNil(t, f.ChildDir(f.DirOf(parent), "usb0"))
}

// TestCreateDirHostFailureUnwinds verifies that a failed host
// materialization leaves no visible entry behind.
func TestCreateDirHostFailureUnwinds(t *testing.T) {
	f := New()
	host := &recordingHost{failCreate: true}
	f.SetMaterializer(host)

	o := newTestObject("ghost", nil, nil)
	err := f.CreateDir(o)
	require.Error(t, err)

	assert.Nil(t, f.DirOf(o))
	assert.False(t, f.Exists(f.Root(), "ghost"))

	// A retry with a healthy host must succeed from scratch.
	host.failCreate = false
	require.NoError(t, f.CreateDir(o))
	assert.NotNil(t, f.DirOf(o))
}

// TestRemoveDirTearsDownChildrenFirst verifies the teardown ordering:
// attribute nodes are invalidated before the directory's own host node is
// released, and the object is unregistered afterwards.
func TestRemoveDirTearsDownChildrenFirst(t *testing.T) {
	f := New()
	host := &recordingHost{}
	f.SetMaterializer(host)

	o := newTestObject("disk0", nil, map[string]string{"size": "1024\n"})
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "size", Mode: 0444}))

	// Materialize the attribute the way a host binding would.
	dir := f.DirOf(o)
	m, err := f.Lookup(dir, "size")
	require.NoError(t, err)
	m.Entry.Attach(&fakeNode{name: "size"})

	require.NoError(t, f.RemoveDir(o))

	ops := host.ops()
	require.Equal(t, []string{"create_dir:disk0", "invalidate:size", "remove_dir:disk0"}, ops)
	assert.Nil(t, f.DirOf(o))
	assert.False(t, f.Exists(f.Root(), "disk0"))
}

// TestRemoveFile verifies attribute removal and its not-found error.
func TestRemoveFile(t *testing.T) {
	f := New()
	o := newTestObject("eth0", nil, map[string]string{"mtu": "1500\n"})
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "mtu", Mode: 0644}))

	require.NoError(t, f.RemoveFile(o, "mtu"))
	assert.False(t, f.Exists(f.DirOf(o), "mtu"))

	err := f.RemoveFile(o, "mtu")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

// TestEntryOutlivesUnlink verifies that a referenced entry stays usable
// after removal from the tree and is only reclaimed at the last release.
func TestEntryOutlivesUnlink(t *testing.T) {
	f := New()
	o := newTestObject("eth0", nil, map[string]string{"mtu": "1500\n"})
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "mtu", Mode: 0644}))

	m, err := f.Lookup(f.DirOf(o), "mtu")
	require.NoError(t, err)

	require.NoError(t, f.RemoveFile(o, "mtu"))

	// The entry is gone from the namespace but the held reference keeps
	// the payload alive.
	assert.False(t, f.Exists(f.DirOf(o), "mtu"))
	assert.Equal(t, "mtu", m.Entry.Name())
	assert.Equal(t, int64(1), m.Entry.RefCount())

	m.Entry.Put()
	assert.Equal(t, int64(0), m.Entry.RefCount())
}

// TestCreateLink verifies link registration, duplicate rejection and
// relative path computation across the tree.
func TestCreateLink(t *testing.T) {
	f := New()
	devices := newTestObject("devices", nil, nil)
	eth0 := newTestObject("eth0", devices, nil)
	class := newTestObject("class", nil, nil)
	net := newTestObject("net", class, nil)
	require.NoError(t, f.CreateDir(devices))
	require.NoError(t, f.CreateDir(eth0))
	require.NoError(t, f.CreateDir(class))
	require.NoError(t, f.CreateDir(net))

	require.NoError(t, f.CreateLink(net, eth0, "eth0"))

	err := f.CreateLink(net, eth0, "eth0")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrAlreadyExists))

	m, err := f.Lookup(f.DirOf(net), "eth0")
	require.NoError(t, err)
	defer m.Entry.Put()
	require.Equal(t, KindLink, m.Kind)

	path, err := f.LinkPath(m.Entry)
	require.NoError(t, err)
	assert.Equal(t, "../../devices/eth0", path)
}

// TestCreateLinkMissingTarget verifies that a link cannot point at an
// object without a directory.
func TestCreateLinkMissingTarget(t *testing.T) {
	f := New()
	owner := newTestObject("class", nil, nil)
	require.NoError(t, f.CreateDir(owner))

	err := f.CreateLink(owner, newTestObject("orphan", nil, nil), "orphan")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

// TestNotify verifies that a notification bumps the named node's counter
// and that unknown names report not-found.
func TestNotify(t *testing.T) {
	f := New()
	o := newTestObject("thermal", nil, map[string]string{"temp": "45000\n"})
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "temp", Mode: 0444}))

	dir := f.DirOf(o)
	m, err := f.Lookup(dir, "temp")
	require.NoError(t, err)
	defer m.Entry.Put()

	before := m.Entry.Event()
	require.NoError(t, f.Notify(o, "", "temp"))
	assert.Equal(t, before+1, m.Entry.Event())

	// A bare object notification bumps the directory itself.
	dirBefore := dir.Event()
	require.NoError(t, f.Notify(o, "", ""))
	assert.Equal(t, dirBefore+1, dir.Event())

	err = f.Notify(o, "", "missing")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))

	err = f.Notify(newTestObject("unregistered", nil, nil), "", "")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

// TestNotifySubdirectory verifies the two-step name walk through a child
// directory.
func TestNotifySubdirectory(t *testing.T) {
	f := New()
	parent := newTestObject("power", nil, nil)
	child := newTestObject("state", parent, map[string]string{"current": "on\n"})
	require.NoError(t, f.CreateDir(parent))
	require.NoError(t, f.CreateDir(child))
	require.NoError(t, f.CreateFile(child, &object.Attribute{Name: "current", Mode: 0444}))

	m, err := f.Lookup(f.DirOf(child), "current")
	require.NoError(t, err)
	defer m.Entry.Put()

	before := m.Entry.Event()
	require.NoError(t, f.Notify(parent, "state", "current"))
	assert.Equal(t, before+1, m.Entry.Event())
}

// TestTouchAndChmod verifies timestamp and permission propagation to
// materialized nodes.
func TestTouchAndChmod(t *testing.T) {
	f := New()
	host := &recordingHost{}
	f.SetMaterializer(host)

	o := newTestObject("led0", nil, map[string]string{"brightness": "0\n"})
	require.NoError(t, f.CreateDir(o))
	require.NoError(t, f.CreateFile(o, &object.Attribute{Name: "brightness", Mode: 0644}))

	// Not materialized yet: touch is a no-op, chmod still records the
	// override.
	require.NoError(t, f.TouchFile(o, "brightness"))
	require.NoError(t, f.ChmodFile(o, "brightness", 0444))

	m, err := f.Lookup(f.DirOf(o), "brightness")
	require.NoError(t, err)
	assert.Equal(t, uint32(0444), m.Entry.Mode())
	m.Entry.Attach(&fakeNode{name: "brightness"})

	require.NoError(t, f.TouchFile(o, "brightness"))
	require.NoError(t, f.ChmodFile(o, "brightness", 0600))
	assert.Equal(t, uint32(0600), m.Entry.Mode())

	ops := host.ops()
	assert.Contains(t, ops, "touch:brightness")
	assert.Contains(t, ops, "chmod:brightness")

	err = f.TouchFile(o, "missing")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
}

// TestPathOf verifies path assembly from nested directories.
func TestPathOf(t *testing.T) {
	f := New()
	a := newTestObject("devices", nil, nil)
	b := newTestObject("pci0", a, nil)
	c := newTestObject("fn0", b, nil)
	require.NoError(t, f.CreateDir(a))
	require.NoError(t, f.CreateDir(b))
	require.NoError(t, f.CreateDir(c))

	assert.Equal(t, "", f.PathOf(f.Root()))
	assert.Equal(t, "devices/pci0/fn0", f.PathOf(f.DirOf(c)))
}

// TestLookupSkipsDirectories verifies that Lookup resolves leaves only
// while ChildDir resolves subdirectories only.
func TestLookupSkipsDirectories(t *testing.T) {
	f := New()
	parent := newTestObject("bus", nil, nil)
	child := newTestObject("usb0", parent, nil)
	require.NoError(t, f.CreateDir(parent))
	require.NoError(t, f.CreateDir(child))
	require.NoError(t, f.CreateFile(parent, &object.Attribute{Name: "uevent", Mode: 0644}))

	dir := f.DirOf(parent)

	_, err := f.Lookup(dir, "usb0")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotFound))
	assert.NotNil(t, f.ChildDir(dir, "usb0"))

	m, err := f.Lookup(dir, "uevent")
	require.NoError(t, err)
	defer m.Entry.Put()
	assert.Equal(t, KindAttr, m.Kind)
	assert.Equal(t, int64(PageSize), m.Size)
	assert.Nil(t, f.ChildDir(dir, "uevent"))
}
