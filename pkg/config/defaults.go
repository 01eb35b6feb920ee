package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyProfilingDefaults(&cfg.Profiling)
	applyShutdownTimeoutDefaults(cfg)
	applyNameNodeDefaults(&cfg.NameNode)
	applyStorageNodeDefaults(&cfg.StorageNode)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyNameNodeDefaults(cfg *NameNodeConfig) {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/namenode"
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 100
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 30 * time.Second
	}
	if cfg.ScanInterval == 0 {
		cfg.ScanInterval = 10 * time.Second
	}
	if cfg.LockLeaseTTL == 0 {
		cfg.LockLeaseTTL = 120 * time.Second
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 100
	}
	applyAPIDefaults(&cfg.API)
}

func applyAPIDefaults(cfg *APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyStorageNodeDefaults(cfg *StorageNodeConfig) {
	if cfg.ClientPort == 0 {
		cfg.ClientPort = 7000
	}
	if cfg.ControlPort == 0 {
		cfg.ControlPort = 6000
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data/storagenode"
	}
	if cfg.Backend == "" {
		cfg.Backend = "fs"
	}
	if cfg.NameNodeAddr == "" {
		cfg.NameNodeAddr = "localhost:5000"
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 100
	}
	// TrustClientLocks defaults to false: lock enforcement is on unless
	// explicitly disabled.
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
