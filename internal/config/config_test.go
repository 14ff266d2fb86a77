package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1:8430", cfg.Address())
	assert.Equal(t, "basic", cfg.Calculator.DefaultProfile)
	assert.Equal(t, 30*time.Minute, cfg.Calculator.SessionIdle)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Service.Port, cfg.Service.Port)
}

func TestLoad_OverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("ABACUS_TEST_KEY", "secret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
service:
  port: 9000
  data_dir: ` + dir + `
api:
  api_key: ${ABACUS_TEST_KEY}
logging:
  level: debug
  output: [console, file]
calculator:
  default_profile: extended
  session_idle: 5m
  keymap_file: ~/keys.toml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"console", "file"}, cfg.Logging.Output)
	assert.Equal(t, "extended", cfg.Calculator.DefaultProfile)
	assert.Equal(t, 5*time.Minute, cfg.Calculator.SessionIdle)
	assert.Equal(t, time.Minute, cfg.Calculator.PruneInterval, "unset fields keep defaults")

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "keys.toml"), cfg.Calculator.KeymapFile)
	assert.Equal(t, filepath.Join(dir, "abacus-service.pid"), cfg.PIDPath())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  port: 70000\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid service port")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"mcp only", func(c *Config) { c.API.Enabled = false }, ""},
		{"api only", func(c *Config) { c.MCP.Enabled = false }, ""},
		{"nothing served", func(c *Config) { c.API.Enabled, c.MCP.Enabled = false, false }, "both disabled"},
		{"negative rate", func(c *Config) { c.API.SessionsPerMinute = -1 }, "sessions_per_minute"},
		{"negative idle", func(c *Config) { c.Calculator.SessionIdle = -time.Second }, "negative"},
		{"no default profile", func(c *Config) { c.Calculator.DefaultProfile = "" }, "default_profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Service.DataDir = dir
	cfg.Calculator.DefaultProfile = "extended"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Calculator, loaded.Calculator)
	assert.Equal(t, cfg.Service, loaded.Service)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Service.DataDir = filepath.Join(t.TempDir(), "data")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, filepath.Dir(cfg.LogPath()))
}
