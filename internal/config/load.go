package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file extension. Anything but .toml is YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadFile reads, defaults and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data, FormatFor(path))
}

// Load parses data, applies defaults and secrets from the environment, and
// validates the result.
func Load(data []byte, format Format) (*Config, error) {
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults(LoadTimeouts())
	cfg.ApplySecrets(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes data without defaulting or validating. Unknown keys are
// rejected.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown configuration keys: %v", undecoded)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}
	return &cfg, nil
}

// ApplySecrets fills secrets from the environment.
func (c *Config) ApplySecrets(getenv func(string) string) {
	if pw := getenv(EnvManagerPassword); pw != "" {
		c.Manager.Password = pw
	}
	if c.Manager.Password == "" {
		c.Manager.Password = DefaultPassword
	}
}
