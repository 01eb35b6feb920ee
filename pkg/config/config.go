package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the ScribeFS configuration.
//
// One file configures both roles: a process started as a name node reads
// the NameNode section, a process started as a storage node reads the
// StorageNode section. The ambient sections (logging, metrics,
// profiling) apply to either role.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SCRIBEFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// NameNode configures the name node role
	NameNode NameNodeConfig `mapstructure:"namenode" yaml:"namenode"`

	// StorageNode configures the storage node role
	StorageNode StorageNodeConfig `mapstructure:"storagenode" yaml:"storagenode"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
// The name node exposes /metrics on its admin API; the storage node
// serves a bare /metrics endpoint on MetricsConfig.Port.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the storage node metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// NameNodeConfig configures the name node role.
type NameNodeConfig struct {
	// Port is the TCP port clients and storage nodes connect to
	// Default: 5000
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// DataDir is where the name node persists its registries
	// Default: "data/namenode"
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// MaxConnections bounds concurrent client sessions
	// Default: 100
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,gt=0" yaml:"max_connections"`

	// HeartbeatTimeout is how long a storage node may stay silent before
	// it is marked disconnected
	// Default: 30s
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout" yaml:"heartbeat_timeout"`

	// ScanInterval is how often the failure monitor sweeps the storage
	// node registry
	// Default: 10s
	ScanInterval time.Duration `mapstructure:"scan_interval" yaml:"scan_interval"`

	// LockLeaseTTL is the sentence lock lease duration. Locks unused for
	// longer than this are reclaimed by the monitor. A negative value
	// disables lease expiry, so locks are held until released.
	// Default: 120s
	LockLeaseTTL time.Duration `mapstructure:"lock_lease_ttl" yaml:"lock_lease_ttl"`

	// CacheSize bounds the LRU cache in front of the file registry
	// Default: 100
	CacheSize int `mapstructure:"cache_size" validate:"omitempty,gt=0" yaml:"cache_size"`

	// API configures the read-only admin HTTP API
	API APIConfig `mapstructure:"api" yaml:"api"`
}

// APIConfig configures the name node admin HTTP API.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the admin API listen port
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// StorageNodeConfig configures the storage node role.
type StorageNodeConfig struct {
	// ID is the storage node identifier, unique across the deployment.
	// Required when running as a storage node.
	ID string `mapstructure:"id" yaml:"id"`

	// ClientPort serves client file operations
	// Default: 7000
	ClientPort int `mapstructure:"client_port" validate:"omitempty,min=1,max=65535" yaml:"client_port"`

	// ControlPort serves name node control commands
	// Default: 6000
	ControlPort int `mapstructure:"control_port" validate:"omitempty,min=1,max=65535" yaml:"control_port"`

	// DataDir is the root of the node's blob store
	// Default: "data/storagenode"
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Backend selects the blob store implementation
	// Valid values: fs, badger
	// Default: fs
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=fs badger" yaml:"backend"`

	// NameNodeAddr is the name node host:port
	// Default: "localhost:5000"
	NameNodeAddr string `mapstructure:"namenode_addr" yaml:"namenode_addr"`

	// AdvertiseHost is the address registered with the name node and
	// handed to clients in redirections. Defaults to the local address
	// of the name node connection.
	AdvertiseHost string `mapstructure:"advertise_host" yaml:"advertise_host"`

	// HeartbeatInterval is how often the node reports liveness
	// Default: 30s
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`

	// ReconnectBackoff is the wait between name node reconnect attempts
	// Default: 5s
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff" yaml:"reconnect_backoff"`

	// MaxConnections bounds concurrent client sessions
	// Default: 100
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,gt=0" yaml:"max_connections"`

	// TrustClientLocks skips the lock revalidation the node normally
	// performs with the name node before committing a write. By default
	// the node confirms the caller holds the sentence lock it claims;
	// setting this trusts clients instead.
	TrustClientLocks bool `mapstructure:"trust_client_locks" yaml:"trust_client_locks"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SCRIBEFS_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			// No file anywhere: run on defaults. Every default is usable
			// out of the box except the storage node ID, which the role
			// command validates itself.
			return Load("")
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  scribefs init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// setupViper binds the SCRIBEFS_* environment (dots become
// underscores, e.g. SCRIBEFS_LOGGING_LEVEL) and the config file
// location.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SCRIBEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reports whether a config file was found. A missing
// file is not an error; a malformed one is.
func readConfigFile(v *viper.Viper) (bool, error) {
	err := v.ReadInConfig()
	if err == nil {
		return true, nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("read config file: %w", err)
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

// durationDecodeHook decodes "30s"-style strings and bare numbers
// (nanoseconds) into time.Duration fields.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		}
		return data, nil
	}
}

// getConfigDir resolves $XDG_CONFIG_HOME/scribefs, then
// ~/.config/scribefs, then the current directory.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribefs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "scribefs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
