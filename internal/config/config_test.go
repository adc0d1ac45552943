package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridfall/internal/netqueue"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gridfall.db", cfg.Server.DBPath)
	assert.Equal(t, netqueue.Config{Target: 5, Capacity: 64, Policy: netqueue.DropOldest}, cfg.Client.Queue())
	assert.Empty(t, cfg.Client.Server, "offline by default")
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridfall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  stale_after: 30m
client:
  server: ws://file/ws
  nick: ann
  require_server: true
  queue_policy: reject
log:
  level: debug
`), 0o644))

	cfg, err := Load(path, env(map[string]string{
		"PORT":            "7000",
		"GRIDFALL_SERVER": "ws://env/ws",
		"DB_PATH":         "/tmp/x.db",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.Server.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.Server.StaleAfter)
	assert.Equal(t, time.Minute, cfg.Server.CleanupInterval, "unset keys keep defaults")
	assert.Equal(t, "ws://env/ws", cfg.Client.Server)
	assert.Equal(t, "ann", cfg.Client.Nick)
	assert.True(t, cfg.Client.RequireServer)
	assert.Equal(t, netqueue.Reject, cfg.Client.Queue().Policy)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("client:\n  queue_policy: block\n"), 0o644))
	_, err = Load(bad, env(nil))
	assert.ErrorContains(t, err, "queue_policy")
}
