/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies Load falls back to defaults without a config
// file or environment overrides.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DB.Enabled)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "chessledger", cfg.DB.DBName)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 10, cfg.Server.ShutdownTimeoutSec)
	assert.Equal(t, 4096, cfg.Mempool.Capacity)
	assert.Equal(t, 256, cfg.Chain.MaxBlockTxs)
	assert.False(t, cfg.Chain.AllowEmptyBlocks)
	assert.NotEmpty(t, cfg.Logging.Level)
}

// TestLoadEnvOverrides verifies environment variables win over defaults.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MEMPOOL_CAPACITY", "128")
	t.Setenv("MAX_BLOCK_TXS", "32")
	t.Setenv("ALLOW_EMPTY_BLOCKS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, 128, cfg.Mempool.Capacity)
	assert.Equal(t, 32, cfg.Chain.MaxBlockTxs)
	assert.True(t, cfg.Chain.AllowEmptyBlocks)
}

// TestLoadFromYAML verifies YAML file loading.
func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  enabled: true
  host: pg.example.com
  port: 5433
  dbname: ledger
server:
  http_addr: ":7070"
  shutdown_timeout_sec: 30
mempool:
  capacity: 512
chain:
  max_block_txs: 64
  allow_empty_blocks: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)

	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "pg.example.com", cfg.DB.Host)
	assert.Equal(t, 5433, cfg.DB.Port)
	assert.Equal(t, "ledger", cfg.DB.DBName)
	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
	assert.Equal(t, 30, cfg.Server.ShutdownTimeoutSec)
	assert.Equal(t, 512, cfg.Mempool.Capacity)
	assert.Equal(t, 64, cfg.Chain.MaxBlockTxs)
	assert.True(t, cfg.Chain.AllowEmptyBlocks)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

// TestLoadFromYAMLErrors covers missing and invalid files.
func TestLoadFromYAMLErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{not yaml"), 0o600))
	_, err = LoadFromYAML(bad)
	assert.Error(t, err)
}
