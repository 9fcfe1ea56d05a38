package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webcam-filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
	assert.Equal(t, 4, cfg.Buffers)
	assert.Equal(t, 2, cfg.Scale)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
source: synthetic
width: 320
height: 240
buffers: 6
filters: "bg"
displays: [websocket, push]
push_url: ws://localhost:9000/ingest
restart:
  max_retries: 5
  retry_delay: 250ms
  max_retry_delay: 4s
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, SourceSynthetic, cfg.Source)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 6, cfg.Buffers)
	assert.Equal(t, []string{DisplayWebSocket, DisplayPush}, cfg.Displays)
	assert.True(t, cfg.HasDisplay(DisplayPush))
	assert.False(t, cfg.HasDisplay(DisplayFFplay))
	assert.Equal(t, 5, cfg.Restart.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Restart.RetryDelay)
	assert.Equal(t, 4*time.Second, cfg.Restart.MaxRetryDelay)
	assert.Equal(t, ":8080", cfg.Listen, "default kept")

	vc, err := cfg.VideoConfig()
	require.NoError(t, err)
	assert.Equal(t, "bg", vc.InitialMask.String())
	assert.Equal(t, 6, vc.BufferCount)
	assert.Equal(t, 5, vc.MaxRestarts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "width: 320\nheight: 240\n")
	t.Setenv("WEBCAM_FILTERS_WIDTH", "160")
	t.Setenv("WEBCAM_FILTERS_RESTART_MAX_RETRIES", "0")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 160, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
	assert.Equal(t, 0, cfg.Restart.MaxRetries)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default().Width, cfg.Width)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "width: 321\n")
	_, err := Load(viper.New(), path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"odd width", func(c *Config) { c.Width = 641 }},
		{"zero height", func(c *Config) { c.Height = 0 }},
		{"one buffer", func(c *Config) { c.Buffers = 1 }},
		{"too many buffers", func(c *Config) { c.Buffers = 64 }},
		{"scale", func(c *Config) { c.Scale = 5 }},
		{"unknown source", func(c *Config) { c.Source = "rtsp" }},
		{"no device", func(c *Config) { c.Device = "" }},
		{"unknown display", func(c *Config) { c.Displays = []string{"sdl"} }},
		{"no displays", func(c *Config) { c.Displays = nil }},
		{"push without url", func(c *Config) { c.Displays = []string{DisplayPush} }},
		{"bad filter key", func(c *Config) { c.Filters = "bz" }},
		{"negative retries", func(c *Config) { c.Restart.MaxRetries = -1 }},
		{"bad delays", func(c *Config) { c.Restart.MaxRetryDelay = time.Millisecond }},
		{"jpeg quality", func(c *Config) { c.JPEGQuality = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_SyntheticNeedsNoDevice(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceSynthetic
	cfg.Device = ""
	assert.NoError(t, cfg.Validate())
}

func TestVideoConfig_BadFilters(t *testing.T) {
	cfg := Default()
	cfg.Filters = "?"
	_, err := cfg.VideoConfig()
	assert.ErrorIs(t, err, domain.ErrContractViolation)
}

// chdir меняет рабочий каталог на время теста (аналог t.Chdir из Go 1.24)
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
