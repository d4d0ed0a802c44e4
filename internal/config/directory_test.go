package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirectoryConfigIsValid(t *testing.T) {
	cfg := DefaultDirectoryConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 500, cfg.SearchCeiling)
	assert.Equal(t, 2000, cfg.AggregateCeiling)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
}

func TestDirectoryConfigValidate(t *testing.T) {
	cfg := DefaultDirectoryConfig()
	cfg.MaxPageSize = 10
	assert.Error(t, cfg.Validate())

	cfg = DefaultDirectoryConfig()
	cfg.QueryTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestWatchDirectoryConfigWithoutOverlay(t *testing.T) {
	holder, err := WatchDirectoryConfig(Config{Directory: DefaultDirectoryConfig()})
	require.NoError(t, err)
	assert.Equal(t, DefaultDirectoryConfig(), holder.Get())
}

func TestWatchDirectoryConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "directory.yml")
	content := "directory:\n  pageSize: 10\n  searchCeiling: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	base := DefaultDirectoryConfig()
	base.ConfigPath = path
	holder, err := WatchDirectoryConfig(Config{Directory: base})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 10, got.PageSize)
	assert.Equal(t, 50, got.SearchCeiling)
	assert.Equal(t, base.AggregateCeiling, got.AggregateCeiling)
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "250")
	assert.Equal(t, 250*time.Millisecond, getenvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "2s")
	assert.Equal(t, 2*time.Second, getenvDuration("TEST_DURATION", time.Second))

	t.Setenv("TEST_DURATION", "nope")
	assert.Equal(t, time.Second, getenvDuration("TEST_DURATION", time.Second))
}
