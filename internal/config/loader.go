package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a config file encoding.
type Format string

// Supported config formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from the file extension.
// Anything other than .toml is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseFormat converts a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Load reads and parses a configuration file from the given path.
// Environment variables in the format ${VAR_NAME} are expanded before parsing.
func Load(path string) (cfg *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	return LoadFromReader(file, FormatFromPath(path))
}

// LoadFromReader reads and parses configuration in the given format.
// Environment variables in the format ${VAR_NAME} are expanded before parsing.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(content)))

	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return &cfg, nil
}

// LoadValidated loads the file and rejects it if Validate reports problems.
func LoadValidated(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg in the given format.
func Marshal(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	case FormatYAML:
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
