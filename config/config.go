// Package config loads fsbridge configuration from YAML or JSON files and
// builds ready-to-use routers from it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/walkerlab/fsbridge"
	"github.com/walkerlab/fsbridge/backends"
	"github.com/walkerlab/fsbridge/internal/util"
)

// Bytes per MB
const MB = 1024 * 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultChunkSize bounds memory during streamed cross-environment
	// transfers
	DefaultChunkSize = 1 * MB

	// DefaultTempPrefix/Suffix wrap the base name of atomic-write temp
	// objects
	DefaultTempPrefix = "."
	DefaultTempSuffix = ".tmp"

	// DefaultAtomicWrites routes writes through temp-then-rename sessions
	DefaultAtomicWrites = true
)

// Config contains runtime configuration values for an fsbridge router.
type Config struct {
	Backend      map[string]any        // Raw backend block, dispatched by its "type" key through the backends registry
	Routes       []fsbridge.PrefixRule // Ordered local->remote prefix table; empty routes everything unchanged
	AtomicWrites bool                  // Whether writes go through temp-then-rename sessions (Default true)
	TempPrefix   string                // Prefix wrapped around temp object base names (Default ".")
	TempSuffix   string                // Suffix wrapped around temp object base names (Default ".tmp")
	ChunkSize    int                   // Streamed transfer chunk size in bytes (Default 1MB)
	LogLvl       util.LogLevel         // Internal log level (Default info)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero
// values when loading partial configuration. See [Config] for field
// descriptions.
type ConfigOverride struct {
	Backend      map[string]any        `yaml:"backend,omitempty" json:"backend,omitempty"`
	Routes       []fsbridge.PrefixRule `yaml:"routes,omitempty" json:"routes,omitempty"`
	AtomicWrites *bool                 `yaml:"atomic_writes,omitempty" json:"atomic_writes,omitempty"`
	TempPrefix   *string               `yaml:"temp_prefix,omitempty" json:"temp_prefix,omitempty"`
	TempSuffix   *string               `yaml:"temp_suffix,omitempty" json:"temp_suffix,omitempty"`
	ChunkSize    *int                  `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	LogLvl       *util.LogLevel        `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		AtomicWrites: DefaultAtomicWrites,
		TempPrefix:   DefaultTempPrefix,
		TempSuffix:   DefaultTempSuffix,
		ChunkSize:    DefaultChunkSize,
		LogLvl:       util.InfoLevel,
	}
}

// NewConfig creates a Config from defaults with the override applied.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.Backend != nil {
		c.Backend = override.Backend
	}
	if override.Routes != nil {
		c.Routes = override.Routes
	}
	if override.AtomicWrites != nil {
		c.AtomicWrites = *override.AtomicWrites
	}
	if override.TempPrefix != nil {
		c.TempPrefix = *override.TempPrefix
	}
	if override.TempSuffix != nil {
		c.TempSuffix = *override.TempSuffix
	}
	if override.ChunkSize != nil {
		c.ChunkSize = *override.ChunkSize
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}

// Build constructs the configured backend through the backends registry and
// wraps it in a router. An empty route table routes every non-empty path
// unchanged. The configured log level is applied globally.
func (c *Config) Build() (*fsbridge.Router, error) {
	util.InitializeLogger(c.LogLvl)
	if c.Backend == nil {
		return nil, fmt.Errorf("config: no backend configured")
	}
	raw, err := json.Marshal(c.Backend)
	if err != nil {
		return nil, fmt.Errorf("config: invalid backend block: %w", err)
	}
	backend, err := backends.FromConfig(raw)
	if err != nil {
		return nil, err
	}

	var mapper fsbridge.Mapper
	if len(c.Routes) > 0 {
		mapper = fsbridge.NewPrefixMapper(c.Routes)
	}

	return fsbridge.NewRouter(backend, mapper, &fsbridge.RouterOptions{
		AtomicWrites: c.AtomicWrites,
		TempPrefix:   c.TempPrefix,
		TempSuffix:   c.TempSuffix,
		ChunkSize:    c.ChunkSize,
	}), nil
}
