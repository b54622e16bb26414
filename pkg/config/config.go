package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

// Config represents the main configuration
type Config struct {
	Window   WindowConfig   `yaml:"window" toml:"window"`
	Renderer RendererConfig `yaml:"renderer" toml:"renderer"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// WindowConfig contains window and presentation configuration
type WindowConfig struct {
	Width     int    `yaml:"width" toml:"width"`
	Height    int    `yaml:"height" toml:"height"`
	Title     string `yaml:"title" toml:"title"`
	VSync     bool   `yaml:"vsync" toml:"vsync"`
	FrameRate int    `yaml:"framerate" toml:"framerate"` // 0 disables the cap
}

// RendererConfig contains frame renderer configuration
type RendererConfig struct {
	AmbientColor       RGB           `yaml:"ambient_color" toml:"ambient_color"`
	MaxAnisotropy      float32       `yaml:"max_anisotropy" toml:"max_anisotropy"`
	CheckBackendErrors bool          `yaml:"check_backend_errors" toml:"check_backend_errors"`
	SoftParticles      SoftParticles `yaml:"soft_particles" toml:"soft_particles"`
}

// SoftParticles tunes the depth-aware particle fade
type SoftParticles struct {
	// MaxSharpnessFactor is the factor at which the fade collapses into a
	// hard depth test.
	MaxSharpnessFactor float32 `yaml:"max_sharpness_factor" toml:"max_sharpness_factor"`
	// MaxFadeWidth is the fade width in view-space units at factor 0.
	MaxFadeWidth float32 `yaml:"max_fade_width" toml:"max_fade_width"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"` // empty logs to stdout only
}

// RGB is an opaque 8-bit color
type RGB struct {
	R uint8 `yaml:"r" toml:"r"`
	G uint8 `yaml:"g" toml:"g"`
	B uint8 `yaml:"b" toml:"b"`
}

// NRGBA converts to an opaque color.NRGBA
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:     800,
			Height:    600,
			Title:     "lumen",
			VSync:     true,
			FrameRate: 0,
		},
		Renderer: RendererConfig{
			AmbientColor:       RGB{R: 100, G: 100, B: 100},
			MaxAnisotropy:      16,
			CheckBackendErrors: true,
			SoftParticles: SoftParticles{
				MaxSharpnessFactor: 100,
				MaxFadeWidth:       1,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports settings the renderer cannot start with
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.FrameRate < 0 {
		return fmt.Errorf("framerate must not be negative, got %d", c.Window.FrameRate)
	}
	if c.Renderer.SoftParticles.MaxSharpnessFactor <= 0 {
		return fmt.Errorf("soft_particles.max_sharpness_factor must be positive, got %v", c.Renderer.SoftParticles.MaxSharpnessFactor)
	}
	if c.Renderer.SoftParticles.MaxFadeWidth < 0 {
		return fmt.Errorf("soft_particles.max_fade_width must not be negative, got %v", c.Renderer.SoftParticles.MaxFadeWidth)
	}
	return nil
}

// LoadConfig loads the configuration from a file. The decoder is picked by
// extension: .toml uses TOML, anything else YAML. On error the defaults are
// returned alongside it.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %w", err)
	}

	if err := unmarshal(filePath, data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("error parsing config %s: %w", filePath, err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", filePath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := marshal(filePath, config)
	if err != nil {
		return fmt.Errorf("error serializing config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func isTOML(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".toml")
}

func unmarshal(filePath string, data []byte, config *Config) error {
	if isTOML(filePath) {
		return toml.Unmarshal(data, config)
	}
	return yaml.Unmarshal(data, config)
}

func marshal(filePath string, config *Config) ([]byte, error) {
	if isTOML(filePath) {
		return toml.Marshal(config)
	}
	return yaml.Marshal(config)
}
