// Package config holds the viewer's persisted settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the viewer looks for its config when --config is not given.
const DefaultPath = "~/.config/oxy-viewer/config.toml"

var (
	errUnsupportedFormat = errors.New("unsupported config format")
	errInvalidConfig     = errors.New("invalid config")
)

// Backend names accepted by RendererConfig.Backend.
const (
	BackendGL   = "gl"
	BackendWGPU = "wgpu"
)

// Present modes accepted by RendererConfig.PresentMode.
const (
	PresentVSync    = "vsync"
	PresentUncapped = "uncapped"
)

// Config is the viewer configuration.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Camera   CameraConfig   `toml:"camera" yaml:"camera"`
	Scenes   ScenesConfig   `toml:"scenes" yaml:"scenes"`

	// Watch reloads the current mesh when its file changes.
	Watch bool `toml:"watch" yaml:"watch"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// Profile logs frame and memory stats every second.
	Profile bool `toml:"profile" yaml:"profile"`
}

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

type RendererConfig struct {
	Backend     string     `toml:"backend" yaml:"backend"`
	PresentMode string     `toml:"present_mode" yaml:"present_mode"`
	MSAA        int        `toml:"msaa" yaml:"msaa"`
	ClearColor  [4]float64 `toml:"clear_color" yaml:"clear_color"`

	// Software forces a CPU fallback adapter on the WebGPU backend.
	Software bool `toml:"software" yaml:"software"`
}

type CameraConfig struct {
	Position [3]float32 `toml:"position" yaml:"position"`
	Target   [3]float32 `toml:"target" yaml:"target"`
	Fov      float32    `toml:"fov" yaml:"fov"`
}

type ScenesConfig struct {
	// ModelsDir is scanned for .glb/.gltf files that are not yet in the catalog.
	ModelsDir string `toml:"models_dir" yaml:"models_dir"`

	// Catalog is the scene catalog file (.toml or .yaml).
	Catalog string `toml:"catalog" yaml:"catalog"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "oxy-viewer",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:     BackendGL,
			PresentMode: PresentVSync,
			MSAA:        4,
			ClearColor:  [4]float64{0.1, 0.1, 0.1, 1.0},
		},
		Camera: CameraConfig{
			Position: [3]float32{0, 0, 3},
			Fov:      45,
		},
		Scenes: ScenesConfig{
			ModelsDir: "assets/models",
			Catalog:   "~/.config/oxy-viewer/scenes.toml",
		},
		LogLevel: "info",
	}
}

type fileFormat int

const (
	formatTOML fileFormat = iota
	formatYAML
)

func formatFor(path string) (fileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the config at path over Default(). Keys absent from the file keep their
// defaults. A missing file is not an error.
//
// Parameters:
//   - path: the config file (.toml, .yaml or .yml); a leading ~ is expanded
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file cannot be read, parsed, or fails validation
func Load(path string) (Config, error) {
	cfg := Default()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to expand config path: %w", err)
	}
	format, err := formatFor(path)
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch format {
	case formatTOML:
		err = toml.Unmarshal(data, &cfg)
	case formatYAML:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Save writes cfg to path, creating parent directories.
//
// Parameters:
//   - path: the config file (.toml, .yaml or .yml); a leading ~ is expanded
//   - cfg: the configuration to write
//
// Returns:
//   - error: an error if encoding or writing fails
func Save(path string, cfg Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand config path: %w", err)
	}
	format, err := formatFor(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Merge copies every non-zero field of overrides onto cfg. Booleans can only be switched on
// this way; callers that need to switch one off assign it directly.
//
// Parameters:
//   - cfg: the configuration to update
//   - overrides: a sparse Config holding only the values to change
//
// Returns:
//   - error: an error if the copy fails
func Merge(cfg *Config, overrides Config) error {
	if err := copier.CopyWithOption(cfg, &overrides, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return fmt.Errorf("failed to merge config overrides: %w", err)
	}
	return nil
}

// Validate reports the first setting the viewer cannot honor.
func (c Config) Validate() error {
	if !slices.Contains([]string{BackendGL, BackendWGPU}, c.Renderer.Backend) {
		return fmt.Errorf("%w: renderer.backend %q (want %q or %q)", errInvalidConfig, c.Renderer.Backend, BackendGL, BackendWGPU)
	}
	if !slices.Contains([]string{PresentVSync, PresentUncapped}, c.Renderer.PresentMode) {
		return fmt.Errorf("%w: renderer.present_mode %q", errInvalidConfig, c.Renderer.PresentMode)
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		return fmt.Errorf("%w: renderer.msaa %d (want 1 or 4)", errInvalidConfig, c.Renderer.MSAA)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", errInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		return fmt.Errorf("%w: camera.fov %g", errInvalidConfig, c.Camera.Fov)
	}
	return nil
}
