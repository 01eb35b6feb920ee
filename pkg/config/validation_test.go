package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level")
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.StorageNode.Backend = "memory"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestValidateRejectsZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsPortCollision(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.StorageNode.ClientPort = 6000
	cfg.StorageNode.ControlPort = 6000

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control_port")
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.NameNode.Port = -1

	assert.Error(t, Validate(cfg))
}
