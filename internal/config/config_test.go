package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DBMaxConns)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.DBAcquireTimeout)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "http_addr: \":9000\"\ndb_url: postgres://from-yaml\ndb_acquire_timeout: 500ms\ncors_origins: \"http://a, http://b\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("SERVICE_DB_URL", "postgres://from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://from-env", cfg.DBURL)
	assert.Equal(t, 500*time.Millisecond, cfg.DBAcquireTimeout)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins())
	assert.Equal(t, 5, cfg.DBMaxConns)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.Validate(), "db_url")

	cfg.DBURL = "postgres://x"
	cfg.PwdKey = "k"
	assert.ErrorContains(t, cfg.Validate(), "token_key")

	cfg.TokenKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.DBMaxConns = 0
	assert.Error(t, cfg.Validate())
}
