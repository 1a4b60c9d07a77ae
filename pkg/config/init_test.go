package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestInitConfig verifies the starter config is written, is valid YAML,
// and passes a full Load round trip.
func TestInitConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, section := range []string{"logging:", "server:", "adapters:", "seed:"} {
		assert.True(t, strings.Contains(string(content), section), "missing section %s", section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Adapters.FUSE.Enabled)
	assert.Len(t, loaded.Seed.Objects, 2)
}

// TestInitConfigAlreadyExists verifies overwrite protection and the
// force override.
func TestInitConfigAlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	require.Error(t, err)

	_, err = InitConfig(true)
	require.NoError(t, err)
}
