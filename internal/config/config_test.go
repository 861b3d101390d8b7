package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.15, cfg.Cropper.SafetyMargin)
	assert.Equal(t, 8, cfg.Vision.GridCols)
	assert.Equal(t, "#FFFFFF", cfg.Frame.MatColor)
	assert.True(t, cfg.Swap.TrimAlpha)
	assert.Equal(t, 20, cfg.Swap.BottomMargin)
	assert.Equal(t, 2*time.Minute, cfg.Matting.Timeout)
	assert.Equal(t, "none", cfg.Detection.Backend)
	assert.Equal(t, "jpeg", cfg.Output.Format)
	assert.Equal(t, 90, cfg.Output.Quality)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"margin too large", func(c *Config) { c.Cropper.SafetyMargin = 0.5 }, "cropper.safetymargin"},
		{"quality out of range", func(c *Config) { c.Output.Quality = 0 }, "output.quality"},
		{"bad format", func(c *Config) { c.Output.Format = "tiff" }, "output.format"},
		{"bad color", func(c *Config) { c.Frame.MatColor = "white" }, "frame.matcolor"},
		{"short mat color", func(c *Config) { c.Frame.MatColor = "#000" }, "frame.matcolor"},
		{"short swap background", func(c *Config) { c.Swap.Background = "#abcd" }, "swap.background"},
		{"export background with alpha", func(c *Config) { c.Export.Background = "#FFFFFF80" }, "export.background"},
		{"bad backend", func(c *Config) { c.Detection.Backend = "gpt" }, "detection.backend"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad matting url", func(c *Config) { c.Matting.URL = "not a url" }, "matting.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "composer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cropper:
  safety_margin: 0.2
swap:
  trim_alpha: false
matting:
  url: http://matting:7000
  timeout: 30s
output:
  format: webp
`), 0o644))

	t.Setenv("COMPOSER_OUTPUT_QUALITY", "75")
	t.Setenv("COMPOSER_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.Cropper.SafetyMargin)
	assert.Equal(t, 0.1, cfg.Cropper.UpwardBias)
	assert.False(t, cfg.Swap.TrimAlpha)
	assert.Equal(t, "http://matting:7000", cfg.Matting.URL)
	assert.Equal(t, 30*time.Second, cfg.Matting.Timeout)
	assert.Equal(t, "webp", cfg.Output.Format)
	assert.Equal(t, 75, cfg.Output.Quality)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  quality: 500\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.quality")
}

func TestSaveToFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Collage.Brand = "Studio North"
	cfg.Export.Platforms = []string{"instagram", "twitter"}

	for _, name := range []string{"nested/config.yaml", "config.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path), name)

		back, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, "Studio North", back.Collage.Brand, name)
		assert.Equal(t, []string{"instagram", "twitter"}, back.Export.Platforms, name)
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Cropper.SafetyMargin = 0.05
	cfg.Swap.Background = "#102030"
	cfg.Swap.Workers = 3
	cfg.Export.FocalAware = true

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.05, opts.Crop.SafetyMargin)
	assert.Equal(t, color.NRGBA{0x10, 0x20, 0x30, 255}, opts.Swap.Background)
	assert.Equal(t, 3, opts.Swap.Workers)
	assert.True(t, opts.Export.FocalAware)
	assert.Equal(t, 0.6, opts.Swap.HeightRatio)

	cfg.Export.Background = "#abc"
	_, err = cfg.EngineOptions()
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
}
