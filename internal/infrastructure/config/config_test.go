package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "megamarket.db", cfg.SQLite.Path)
	assert.Equal(t, 10*time.Second, cfg.Stream.Timeout())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().SQLite.Path, cfg.SQLite.Path)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "megamarket.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9090
sqlite:
  path: /tmp/test.db
stream:
  timeout_seconds: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "/tmp/test.db", cfg.SQLite.Path)
	assert.Equal(t, 3*time.Second, cfg.Stream.Timeout())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "megamarket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEGAMARKET_DB_PATH", "/data/market.db")
	t.Setenv("MEGAMARKET_HOST", "localhost")
	t.Setenv("MEGAMARKET_PORT", "3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/data/market.db", cfg.SQLite.Path)
	assert.Equal(t, "localhost:3000", cfg.Server.Addr())
}
