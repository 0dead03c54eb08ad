package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadFile loads configuration from a YAML file
func LoadFile(filePath string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := setDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(logger); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) error {
	edition, err := ParseEdition(string(cfg.Edition))
	if err != nil {
		return err
	}
	cfg.Edition = edition
	return nil
}

// UnmarshalYAML fills port and timeouts with their defaults when the
// document omits them. Values written explicitly, zero included, are kept.
func (e *Endpoint) UnmarshalYAML(node *yaml.Node) error {
	type plain Endpoint
	ep := plain{
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
	}
	if err := node.Decode(&ep); err != nil {
		return err
	}
	*e = Endpoint(ep)
	return nil
}
