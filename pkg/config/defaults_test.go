package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5000, cfg.NameNode.Port)
	assert.Equal(t, "data/namenode", cfg.NameNode.DataDir)
	assert.Equal(t, 100, cfg.NameNode.CacheSize)
	assert.Equal(t, 8080, cfg.NameNode.API.Port)
	assert.Equal(t, "data/storagenode", cfg.StorageNode.DataDir)
	assert.Equal(t, 30*time.Second, cfg.StorageNode.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.StorageNode.ReconnectBackoff)
	assert.Equal(t, "http://localhost:4040", cfg.Profiling.Endpoint)
	assert.NotEmpty(t, cfg.Profiling.ProfileTypes)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	cfg.NameNode.Port = 6500
	cfg.StorageNode.Backend = "badger"
	cfg.NameNode.LockLeaseTTL = -1 // explicit "no lease expiry" sentinel stays

	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "explicit level normalized, not replaced")
	assert.Equal(t, 6500, cfg.NameNode.Port)
	assert.Equal(t, "badger", cfg.StorageNode.Backend)
	assert.Equal(t, time.Duration(-1), cfg.NameNode.LockLeaseTTL)
}

func TestMetricsPortDefaultOnlyWhenEnabled(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Zero(t, cfg.Metrics.Port)

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}
