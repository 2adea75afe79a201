package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phdradar/internal/dedup"
	"phdradar/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, llm.DefaultModel, cfg.LLM.Model)
	assert.Equal(t, dedup.DefaultAutoAcceptThreshold, cfg.Dedup.AutoAcceptThreshold)
	assert.Equal(t, dedup.DefaultWindowDays, cfg.Dedup.WindowDays)
	assert.NotEmpty(t, cfg.State.Path)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: postgres
  dsn: postgres://localhost/phdradar
llm:
  model: claude-sonnet-4-20250514
  cooldown_seconds: 2
dedup:
  auto_accept_threshold: 0.9
  verify_threshold: 0.3
  window_days: 30
sources:
  - name: bluesky
    type: feedfile
    path: /var/lib/phdradar/bluesky.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Equal(t, 0.9, cfg.Dedup.AutoAcceptThreshold)
	assert.Equal(t, 30, cfg.DedupConfig().WindowDays)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "bluesky", cfg.Sources[0].Name)
}

func TestVerifyThresholdZeroIsRespected(t *testing.T) {
	// 0 is a legitimate setting (verify every pair below auto-accept)
	// and must not be replaced by the default.
	path := writeConfig(t, `
dedup:
  verify_threshold: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.DedupConfig().VerifyThreshold)
	assert.Equal(t, dedup.DefaultAutoAcceptThreshold, cfg.DedupConfig().AutoAcceptThreshold)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "storage: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"unknown driver",
			func(c *Config) { c.Storage.Driver = "mysql" },
			"unknown storage driver",
		},
		{
			"postgres without dsn",
			func(c *Config) { c.Storage.Driver = "postgres"; c.Storage.DSN = "" },
			"storage.dsn is required",
		},
		{
			"unnamed source",
			func(c *Config) { c.Sources = []SourceConfig{{Type: "feedfile", Path: "x.json"}} },
			"name is required",
		},
		{
			"duplicate source name",
			func(c *Config) {
				c.Sources = []SourceConfig{
					{Name: "bluesky", Type: "feedfile", Path: "a.json"},
					{Name: "bluesky", Type: "feedfile", Path: "b.json"},
				}
			},
			"duplicate source name",
		},
		{
			"feedfile without path",
			func(c *Config) { c.Sources = []SourceConfig{{Name: "bluesky", Type: "feedfile"}} },
			"path is required",
		},
		{
			"unknown source type",
			func(c *Config) { c.Sources = []SourceConfig{{Name: "x", Type: "rss", Path: "x"}} },
			"unknown source type",
		},
		{
			"bad thresholds",
			func(c *Config) { v := 0.99; c.Dedup.VerifyThreshold = &v },
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
