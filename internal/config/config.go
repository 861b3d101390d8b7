package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	composer "github.com/menta2k/photo-composer"
	"github.com/menta2k/photo-composer/internal/logging"
	"github.com/menta2k/photo-composer/pkg/presets"
)

// EnvPrefix prefixes environment overrides, e.g. COMPOSER_OUTPUT_DIR.
const EnvPrefix = "COMPOSER"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the application configuration
type Config struct {
	Cropper   CropperConfig   `mapstructure:"cropper" json:"cropper" yaml:"cropper"`
	Vision    VisionConfig    `mapstructure:"vision" json:"vision" yaml:"vision"`
	Frame     FrameConfig     `mapstructure:"frame" json:"frame" yaml:"frame"`
	Collage   CollageConfig   `mapstructure:"collage" json:"collage" yaml:"collage"`
	Swap      SwapConfig      `mapstructure:"swap" json:"swap" yaml:"swap"`
	Export    ExportConfig    `mapstructure:"export" json:"export" yaml:"export"`
	Matting   MattingConfig   `mapstructure:"matting" json:"matting" yaml:"matting"`
	Detection DetectionConfig `mapstructure:"detection" json:"detection" yaml:"detection"`
	Output    OutputConfig    `mapstructure:"output" json:"output" yaml:"output"`
	Logging   logging.Config  `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// CropperConfig holds configuration for smart cropping
type CropperConfig struct {
	SafetyMargin float64 `mapstructure:"safety_margin" json:"safety_margin" yaml:"safety_margin" default:"0.15" validate:"gte=0,lt=0.5"`
	UpwardBias   float64 `mapstructure:"upward_bias" json:"upward_bias" yaml:"upward_bias" default:"0.1" validate:"gte=0,lte=1"`
}

// VisionConfig holds configuration for focal point detection
type VisionConfig struct {
	GridCols     int     `mapstructure:"grid_cols" json:"grid_cols" yaml:"grid_cols" default:"8" validate:"gte=1,lte=64"`
	GridRows     int     `mapstructure:"grid_rows" json:"grid_rows" yaml:"grid_rows" default:"8" validate:"gte=1,lte=64"`
	PositionBias float64 `mapstructure:"position_bias" json:"position_bias" yaml:"position_bias" default:"0.25" validate:"gte=0,lte=1"`
	NoiseFloor   float64 `mapstructure:"noise_floor" json:"noise_floor" yaml:"noise_floor" default:"4" validate:"gte=0,lte=255"`
	MaxRadius    int     `mapstructure:"max_radius" json:"max_radius" yaml:"max_radius" default:"20" validate:"gte=1"`
}

// FrameConfig holds configuration for custom frames
type FrameConfig struct {
	Padding  int    `mapstructure:"padding" json:"padding" yaml:"padding" default:"40" validate:"gte=0"`
	MatColor string `mapstructure:"mat_color" json:"mat_color" yaml:"mat_color" default:"#FFFFFF" validate:"rgbhex"`
}

// CollageConfig holds configuration for collages
type CollageConfig struct {
	Brand       string  `mapstructure:"brand" json:"brand" yaml:"brand"`
	CaptionSize float64 `mapstructure:"caption_size" json:"caption_size" yaml:"caption_size" default:"24" validate:"gt=0,lte=200"`
}

// SwapConfig holds configuration for background swaps
type SwapConfig struct {
	Workers      int     `mapstructure:"workers" json:"workers" yaml:"workers" validate:"gte=0"`
	HeightRatio  float64 `mapstructure:"height_ratio" json:"height_ratio" yaml:"height_ratio" default:"0.6" validate:"gt=0,lte=1"`
	TrimAlpha    bool    `mapstructure:"trim_alpha" json:"trim_alpha" yaml:"trim_alpha" default:"true"`
	BottomMargin int     `mapstructure:"bottom_margin" json:"bottom_margin" yaml:"bottom_margin" default:"20" validate:"gte=0"`
	Background   string  `mapstructure:"background" json:"background" yaml:"background" default:"#FFFFFF" validate:"rgbhex"`
}

// ExportConfig holds configuration for platform exports
type ExportConfig struct {
	Workers    int      `mapstructure:"workers" json:"workers" yaml:"workers" validate:"gte=0"`
	FocalAware bool     `mapstructure:"focal_aware" json:"focal_aware" yaml:"focal_aware"`
	Background string   `mapstructure:"background" json:"background" yaml:"background" default:"#FFFFFF" validate:"rgbhex"`
	Platforms  []string `mapstructure:"platforms" json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

// MattingConfig points at the background-removal server
type MattingConfig struct {
	URL            string        `mapstructure:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Model          string        `mapstructure:"model" json:"model" yaml:"model"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" default:"2m" validate:"gt=0"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" json:"requests_per_sec" yaml:"requests_per_sec" default:"2" validate:"gte=0"`
	Burst          int           `mapstructure:"burst" json:"burst" yaml:"burst" default:"1" validate:"gte=0"`
}

// DetectionConfig selects the optional region detectors
type DetectionConfig struct {
	Backend       string  `mapstructure:"backend" json:"backend" yaml:"backend" default:"none" validate:"oneof=none ollama llamacpp"`
	URL           string  `mapstructure:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Model         string  `mapstructure:"model" json:"model" yaml:"model" default:"minicpm-v"`
	MaxDimension  int     `mapstructure:"max_dimension" json:"max_dimension" yaml:"max_dimension" default:"768" validate:"gte=0"`
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence" yaml:"min_confidence" default:"0.3" validate:"gte=0,lte=1"`
	FaceCascade   string  `mapstructure:"face_cascade" json:"face_cascade" yaml:"face_cascade"`
	Saliency      bool    `mapstructure:"saliency" json:"saliency" yaml:"saliency"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir     string `mapstructure:"dir" json:"dir" yaml:"dir" default:"./output" validate:"required"`
	Format  string `mapstructure:"format" json:"format" yaml:"format" default:"jpeg" validate:"oneof=jpeg jpg png webp"`
	Quality int    `mapstructure:"quality" json:"quality" yaml:"quality" default:"90" validate:"gte=1,lte=100"`
	Report  bool   `mapstructure:"report" json:"report" yaml:"report" default:"true"`
}

// Default returns a configuration with default values
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads configuration from the defaults, then the optional file at
// path (YAML or JSON by extension), then COMPOSER_* environment variables.
// The result is validated.
func Load(path string) (*Config, error) {
	base, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType(fileType(path))
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveToFile saves configuration as YAML or JSON depending on the extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if fileType(filename) == "json" {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

// newValidator adds "rgbhex": a color the engine can paint, six hex digits
// with no alpha.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rgbhex", func(fl validator.FieldLevel) bool {
		_, err := presets.ParseHex(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(fe.Namespace()), validationMessage(fe)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// EngineOptions converts the configuration into composer engine options.
// Matting and region detectors are wired by the caller.
func (c *Config) EngineOptions() (composer.Options, error) {
	opts := composer.DefaultOptions()

	opts.Crop.SafetyMargin = c.Cropper.SafetyMargin
	opts.Crop.UpwardBias = c.Cropper.UpwardBias

	opts.Vision.GridCols = c.Vision.GridCols
	opts.Vision.GridRows = c.Vision.GridRows
	opts.Vision.PositionBias = c.Vision.PositionBias
	opts.Vision.NoiseFloor = c.Vision.NoiseFloor
	opts.Vision.MaxRadius = c.Vision.MaxRadius

	opts.Frame.Padding = c.Frame.Padding
	opts.Frame.MatColor = c.Frame.MatColor

	opts.Collage.Brand = c.Collage.Brand
	opts.Collage.CaptionSize = c.Collage.CaptionSize

	swapBg, err := presets.ParseHex(c.Swap.Background)
	if err != nil {
		return opts, fmt.Errorf("swap.background: %w", err)
	}
	if c.Swap.Workers > 0 {
		opts.Swap.Workers = c.Swap.Workers
	}
	opts.Swap.HeightRatio = c.Swap.HeightRatio
	opts.Swap.TrimAlpha = c.Swap.TrimAlpha
	opts.Swap.Background = swapBg

	exportBg, err := presets.ParseHex(c.Export.Background)
	if err != nil {
		return opts, fmt.Errorf("export.background: %w", err)
	}
	if c.Export.Workers > 0 {
		opts.Export.Workers = c.Export.Workers
	}
	opts.Export.FocalAware = c.Export.FocalAware
	opts.Export.Background = exportBg

	return opts, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "photo-composer", "config.yaml")
}

func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// fieldPath turns "Config.Output.Quality" into "output.quality".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "rgbhex":
		return "must be a #RRGGBB color"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}
