package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 5000, cfg.NameNode.Port)
	assert.Equal(t, 7000, cfg.StorageNode.ClientPort)
	assert.Equal(t, 6000, cfg.StorageNode.ControlPort)
	assert.Equal(t, "fs", cfg.StorageNode.Backend)
	assert.Equal(t, 30*time.Second, cfg.NameNode.HeartbeatTimeout)
	assert.Equal(t, 10*time.Second, cfg.NameNode.ScanInterval)
	assert.Equal(t, 120*time.Second, cfg.NameNode.LockLeaseTTL)
	assert.False(t, cfg.StorageNode.TrustClientLocks)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
namenode:
  port: 5500
  scan_interval: 3s
  lock_lease_ttl: 1m
storagenode:
  id: ss-1
  backend: badger
  namenode_addr: nn.internal:5500
  trust_client_locks: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level should be normalized")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5500, cfg.NameNode.Port)
	assert.Equal(t, 3*time.Second, cfg.NameNode.ScanInterval)
	assert.Equal(t, time.Minute, cfg.NameNode.LockLeaseTTL)
	assert.Equal(t, "ss-1", cfg.StorageNode.ID)
	assert.Equal(t, "badger", cfg.StorageNode.Backend)
	assert.Equal(t, "nn.internal:5500", cfg.StorageNode.NameNodeAddr)
	assert.True(t, cfg.StorageNode.TrustClientLocks)

	// Unspecified values still get defaults
	assert.Equal(t, 7000, cfg.StorageNode.ClientPort)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "logging:\n  level: verbose\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad backend", "storagenode:\n  backend: s3\n"},
		{"port out of range", "namenode:\n  port: 99999\n"},
		{"colliding ports", "storagenode:\n  client_port: 7000\n  control_port: 7000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfigFile(t, "logging: [unclosed"))
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.StorageNode.ID = "ss-9"
	cfg.NameNode.Port = 5050

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ss-9", loaded.StorageNode.ID)
	assert.Equal(t, 5050, loaded.NameNode.Port)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SCRIBEFS_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(writeConfigFile(t, "logging:\n  level: INFO\n"))
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestGetDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}
