package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDefaultFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultDBPath, cfg.DBPath)
	require.Equal(t, DefaultSchedulerTimeout, cfg.SchedulerTimeout)
	require.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actorctl.yaml")
	cfg := &Config{DBPath: "custom.db", SchedulerAddr: "127.0.0.1:9090"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "custom.db", loaded.DBPath)
	require.Equal(t, "127.0.0.1:9090", loaded.SchedulerAddr)
	require.Equal(t, DefaultSchedulerTimeout, loaded.SchedulerTimeout)
}

func TestLoad_MissingExplicitPathIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
