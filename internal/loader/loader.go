// Package loader provides functions for loading inventory source
// configurations from YAML files.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/libvirt-inventory/internal/config"
)

// EnvConfigPath names the environment variable holding the default
// configuration file path.
const EnvConfigPath = "LIBVIRT_INVENTORY_CONFIG"

// Overrides are command line values that take precedence over the file.
type Overrides struct {
	URI    string
	Filter string
}

// Load resolves the configuration used by the CLI. When path is empty the
// defaults are used. Overrides are applied before defaults and validation.
func Load(path string, o Overrides) (*config.Config, error) {
	if path == "" {
		return finish(config.Default(), o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return parse(data, o)
}

// SaveToFile writes a configuration to a YAML file.
func SaveToFile(cfg *config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// parse decodes YAML bytes and finishes the configuration. Unknown fields
// are rejected.
func parse(data []byte, o Overrides) (*config.Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	return finish(cfg, o)
}

func finish(cfg *config.Config, o Overrides) (*config.Config, error) {
	if o.URI != "" {
		cfg.URI = o.URI
	}
	if o.Filter != "" {
		cfg.Filter = o.Filter
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return cfg, nil
}

func decode(data []byte) (*config.Config, error) {
	var cfg config.Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if cfg.Plugin == "" {
		return nil, fmt.Errorf("missing required field: plugin")
	}

	return &cfg, nil
}
