// Package config loads the application configuration from a YAML file
// with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"phdradar/internal/dedup"
	"phdradar/internal/llm"
	"phdradar/internal/syncstate"
)

// Config is the structure of ~/.phdradar/config.yaml.
type Config struct {
	Storage StorageConfig  `yaml:"storage"`
	LLM     LLMConfig      `yaml:"llm"`
	Dedup   DedupConfig    `yaml:"dedup"`
	State   StateConfig    `yaml:"state"`
	Sources []SourceConfig `yaml:"sources"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// Path is the sqlite database file.
	Path string `yaml:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	// APIKey falls back to ANTHROPIC_API_KEY when empty.
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// CooldownSeconds paces consecutive provider calls.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// DedupConfig configures duplicate detection thresholds. VerifyThreshold
// is a pointer because 0 is a valid setting (verify every pair below the
// auto-accept threshold); nil means the default.
type DedupConfig struct {
	AutoAcceptThreshold float64  `yaml:"auto_accept_threshold"`
	VerifyThreshold     *float64 `yaml:"verify_threshold"`
	WindowDays          int      `yaml:"window_days"`
}

// StateConfig configures the sync state file.
type StateConfig struct {
	Path string `yaml:"path"`
}

// SourceConfig configures one data source.
type SourceConfig struct {
	Name string `yaml:"name"`
	// Type is currently "feedfile".
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".phdradar", "config.yaml")
}

// Load reads the config file, applies defaults, and validates. A missing
// file yields the default config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dataDir(), "phdradar.db")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = llm.DefaultModel
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Dedup.AutoAcceptThreshold == 0 {
		c.Dedup.AutoAcceptThreshold = dedup.DefaultAutoAcceptThreshold
	}
	if c.Dedup.VerifyThreshold == nil {
		v := dedup.DefaultVerifyThreshold
		c.Dedup.VerifyThreshold = &v
	}
	if c.Dedup.WindowDays == 0 {
		c.Dedup.WindowDays = dedup.DefaultWindowDays
	}
	if c.State.Path == "" {
		c.State.Path = filepath.Join(dataDir(), syncstate.DefaultFileName)
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite or postgres)", c.Storage.Driver)
	}

	if err := c.DedupConfig().Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		seen[src.Name] = true
		switch src.Type {
		case "feedfile":
			if src.Path == "" {
				return fmt.Errorf("sources[%d] (%s): path is required for feedfile sources", i, src.Name)
			}
		default:
			return fmt.Errorf("sources[%d] (%s): unknown source type %q", i, src.Name, src.Type)
		}
	}
	return nil
}

// DedupConfig converts the YAML section to the engine config.
func (c *Config) DedupConfig() dedup.Config {
	verify := dedup.DefaultVerifyThreshold
	if c.Dedup.VerifyThreshold != nil {
		verify = *c.Dedup.VerifyThreshold
	}
	return dedup.Config{
		AutoAcceptThreshold: c.Dedup.AutoAcceptThreshold,
		VerifyThreshold:     verify,
		WindowDays:          c.Dedup.WindowDays,
	}
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".phdradar"
	}
	return filepath.Join(home, ".phdradar")
}
