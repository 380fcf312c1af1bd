package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/menta2k/image-layout/pkg/colors"
	"github.com/menta2k/image-layout/pkg/focus"
)

// Config holds the application configuration
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Decoder  DecoderConfig  `toml:"decoder"`
	Output   OutputConfig   `toml:"output"`
	Focus    FocusConfig    `toml:"focus"`
	Server   ServerConfig   `toml:"server"`
}

// DefaultsConfig holds query parameters applied when a request omits them
type DefaultsConfig struct {
	Mode       string `toml:"mode"`
	Scale      string `toml:"scale"`
	BGColor    string `toml:"bgcolor"`
	AutoRotate bool   `toml:"autorotate"`
}

// DecoderConfig controls how much of a plan the decoder takes on
type DecoderConfig struct {
	BlockSize   uint32 `toml:"block_size"`
	Crop        bool   `toml:"crop"`
	Orientation bool   `toml:"orientation"`
	Prescale    bool   `toml:"prescale"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `toml:"format"`
	Quality  int    `toml:"quality"`
	Lossless bool   `toml:"lossless"`
	Dir      string `toml:"dir"`
	Suffix   string `toml:"suffix"`
}

// FocusConfig selects the subject finder used for automatic gravity
type FocusConfig struct {
	Backend  string               `toml:"backend"`
	URL      string               `toml:"url"`
	Model    string               `toml:"model"`
	Saliency focus.SaliencyConfig `toml:"saliency"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Addr      string `toml:"addr"`
	SourceDir string `toml:"source_dir"`
}

// Focus backends
const (
	FocusNone     = "none"
	FocusSaliency = "saliency"
	FocusOllama   = "ollama"
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Mode:       "pad",
			Scale:      "down",
			BGColor:    "transparent",
			AutoRotate: true,
		},
		Decoder: DecoderConfig{
			BlockSize:   8,
			Crop:        true,
			Orientation: true,
			Prescale:    true,
		},
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 85,
			Dir:     "./output",
			Suffix:  "_layout",
		},
		Focus: FocusConfig{
			Backend:  FocusNone,
			URL:      "http://localhost:11434",
			Model:    "llava",
			Saliency: focus.DefaultSaliencyConfig(),
		},
		Server: ServerConfig{
			Addr:      ":8080",
			SourceDir: ".",
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return config, nil
}

// LoadOrDefault loads filename when it exists and returns the defaults otherwise
func LoadOrDefault(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Defaults.Mode) {
	case "", "max", "pad", "crop", "stretch", "aspectcrop":
	default:
		return fmt.Errorf("defaults.mode %q is not one of max, pad, crop, stretch, aspectcrop", c.Defaults.Mode)
	}
	switch strings.ToLower(c.Defaults.Scale) {
	case "", "down", "both", "up", "canvas":
	default:
		return fmt.Errorf("defaults.scale %q is not one of down, both, up, canvas", c.Defaults.Scale)
	}
	if c.Defaults.BGColor != "" {
		if _, err := colors.Parse(c.Defaults.BGColor); err != nil {
			return fmt.Errorf("defaults.bgcolor: %w", err)
		}
	}

	if c.Decoder.BlockSize > 64 {
		return fmt.Errorf("decoder.block_size must be at most 64")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format %q is not one of jpg, png, webp", c.Output.Format)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch c.Focus.Backend {
	case "", FocusNone, FocusSaliency:
	case FocusOllama:
		if c.Focus.URL == "" || c.Focus.Model == "" {
			return fmt.Errorf("focus.url and focus.model are required for the ollama backend")
		}
	default:
		return fmt.Errorf("focus.backend %q is not one of none, saliency, ollama", c.Focus.Backend)
	}
	if s := c.Focus.Saliency; s.MinSubjectRatio < 0 || s.MinSubjectRatio > 1 {
		return fmt.Errorf("focus.saliency.min_subject_ratio must be between 0 and 1")
	}
	if s := c.Focus.Saliency; s.EdgeThreshold < 0 || s.EdgeThreshold > 1 {
		return fmt.Errorf("focus.saliency.edge_threshold must be between 0 and 1")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	return nil
}

// ApplyDefaults fills query parameters the request left out. The default
// mode is skipped when only maxwidth or maxheight is given, so those keep
// their max-mode meaning.
func (c *Config) ApplyDefaults(values url.Values) {
	has := func(keys ...string) bool {
		for k := range values {
			for _, want := range keys {
				if strings.EqualFold(k, want) {
					return true
				}
			}
		}
		return false
	}
	set := func(key, value string) {
		if value != "" && !has(key) {
			values.Set(key, value)
		}
	}

	if has("w", "width", "h", "height") || !has("maxwidth", "maxheight") {
		set("mode", c.Defaults.Mode)
	}
	set("scale", c.Defaults.Scale)
	set("bgcolor", c.Defaults.BGColor)
	if !c.Defaults.AutoRotate {
		set("autorotate", "false")
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "image-layout", "config.toml")
}
