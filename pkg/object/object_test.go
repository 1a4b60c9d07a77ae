package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOpsPrecedence(t *testing.T) {
	objectOps := NewStaticOps(nil)
	typeOps := NewStaticOps(nil)
	subsysOps := NewStaticOps(nil)

	subsys := &Subsystem{Name: "testing", Ops: subsysOps}
	typ := &Type{Name: "widget", Ops: typeOps}

	tests := []struct {
		name string
		obj  *Object
		want AttrOps
	}{
		{
			name: "PerObjectWins",
			obj:  &Object{name: "a", Ops: objectOps, Type: typ, Subsystem: subsys},
			want: objectOps,
		},
		{
			name: "TypeBeatsSubsystem",
			obj:  &Object{name: "b", Type: typ, Subsystem: subsys},
			want: typeOps,
		},
		{
			name: "SubsystemFallback",
			obj:  &Object{name: "c", Subsystem: subsys},
			want: subsysOps,
		},
		{
			name: "NothingResolvesToNil",
			obj:  New("d", nil),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveOps(tt.obj)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestResolveOpsNilObject(t *testing.T) {
	assert.Nil(t, ResolveOps(nil))
}

func TestOpsFuncsCapabilities(t *testing.T) {
	readOnly := OpsFuncs{ShowFunc: func(o *Object, a *Attribute, p []byte) (int, error) { return 0, nil }}
	assert.True(t, CanShow(readOnly))
	assert.False(t, CanStore(readOnly))

	writeOnly := OpsFuncs{StoreFunc: func(o *Object, a *Attribute, d []byte) (int, error) { return len(d), nil }}
	assert.False(t, CanShow(writeOnly))
	assert.True(t, CanStore(writeOnly))

	// Implementations without the capability interface support both.
	assert.True(t, CanShow(NewStaticOps(nil)))
	assert.True(t, CanStore(NewStaticOps(nil)))

	assert.False(t, CanShow(nil))
	assert.False(t, CanStore(nil))
}

func TestOpsFuncsMissingDirection(t *testing.T) {
	var f OpsFuncs
	_, err := f.Show(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoShow)
	_, err = f.Store(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestStaticOps(t *testing.T) {
	ops := NewStaticOps(map[string]string{"state": "online"})
	attr := &Attribute{Name: "state", Mode: 0644}

	page := make([]byte, 16)
	n, err := ops.Show(nil, attr, page)
	require.NoError(t, err)
	assert.Equal(t, "online", string(page[:n]))

	n, err = ops.Store(nil, attr, []byte("offline"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "offline", ops.Value("state"))
}

func TestAttributeModeGates(t *testing.T) {
	assert.True(t, (&Attribute{Mode: 0444}).Readable())
	assert.False(t, (&Attribute{Mode: 0444}).Writable())
	assert.True(t, (&Attribute{Mode: 0200}).Writable())
	assert.False(t, (&Attribute{Mode: 0200}).Readable())
}

func TestObjectRenameThroughSetName(t *testing.T) {
	o := New("old", nil)
	require.Equal(t, "old", o.Name())
	o.SetName("new")
	assert.Equal(t, "new", o.Name())
}
