package config

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrfs/attrfs/pkg/fs"
)

// TestBuildSeed verifies seeded objects, attributes, and links land in
// the tree and are readable through the buffer protocol.
func TestBuildSeed(t *testing.T) {
	seed := &SeedConfig{
		Objects: []SeedObjectConfig{
			{
				Path: "devices",
			},
			{
				Path: "devices/cpu0",
				Attributes: map[string]any{
					"online": "1\n",
					"freq": map[string]any{
						"value": "2400000\n",
						"mode":  uint32(0o444),
					},
				},
			},
			{
				Path:  "class",
				Links: map[string]string{"cpu0": "devices/cpu0"},
			},
		},
	}

	fsys := fs.New()
	require.NoError(t, BuildSeed(fsys, seed))

	devices := fsys.ChildDir(fsys.Root(), "devices")
	require.NotNil(t, devices)
	cpu0 := fsys.ChildDir(devices, "cpu0")
	require.NotNil(t, cpu0)

	m, err := fsys.Lookup(cpu0, "freq")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o444), m.Mode)

	b, err := fsys.OpenFile(m.Entry, true, false)
	m.Entry.Put()
	require.NoError(t, err)
	defer b.Close()

	data, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "2400000\n", string(data))

	class := fsys.ChildDir(fsys.Root(), "class")
	require.NotNil(t, class)
	link, err := fsys.Lookup(class, "cpu0")
	require.NoError(t, err)
	defer link.Entry.Put()
	require.Equal(t, fs.KindLink, link.Kind)

	path, err := fsys.LinkPath(link.Entry)
	require.NoError(t, err)
	assert.Equal(t, "../devices/cpu0", path)
}

// TestBuildSeedMissingParent verifies ordering violations surface as
// errors at build time too, not only in validation.
func TestBuildSeedMissingParent(t *testing.T) {
	seed := &SeedConfig{
		Objects: []SeedObjectConfig{
			{Path: "devices/cpu0"},
		},
	}
	require.Error(t, BuildSeed(fs.New(), seed))
}
