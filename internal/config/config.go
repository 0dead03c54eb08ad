package config

import (
	"fmt"
	"strings"

	"github.com/devrev/aerolink/internal/model"
	"go.uber.org/zap"
)

// Cluster pairs an endpoint with the credentials used to reach it
type Cluster struct {
	Endpoint    Endpoint    `yaml:"endpoint"`
	Credentials Credentials `yaml:"credentials"`
}

// Validate validates both halves of the pair
func (c Cluster) Validate(logger *zap.Logger) error {
	if err := c.Endpoint.Validate(logger); err != nil {
		return err
	}
	return c.Credentials.Validate(logger)
}

// Config represents the complete client configuration.
// Passive and Schema are nil when not configured.
type Config struct {
	Edition Edition  `yaml:"edition"`
	Active  Cluster  `yaml:"active"`
	Passive *Cluster `yaml:"passive,omitempty"`
	Schema  *Schema  `yaml:"schema,omitempty"`
}

// Cluster returns the descriptor for role, or nil when it is not configured
func (c *Config) Cluster(role model.Role) *Cluster {
	switch role {
	case model.RoleActive:
		return &c.Active
	case model.RolePassive:
		return c.Passive
	default:
		return nil
	}
}

// Clone returns a deep copy of the configuration
func (c Config) Clone() Config {
	out := c
	out.Active = c.Active.clone()
	if c.Passive != nil {
		passive := c.Passive.clone()
		out.Passive = &passive
	}
	if c.Schema != nil {
		schema := *c.Schema
		schema.AllowedBins = cloneStrings(c.Schema.AllowedBins)
		schema.SecondaryIndexes = cloneStrings(c.Schema.SecondaryIndexes)
		if c.Schema.DefaultTTL != nil {
			ttl := *c.Schema.DefaultTTL
			schema.DefaultTTL = &ttl
		}
		out.Schema = &schema
	}
	return out
}

func (c Cluster) clone() Cluster {
	out := c
	out.Endpoint.Hosts = cloneStrings(c.Endpoint.Hosts)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Validate re-checks every configured descriptor
func (c *Config) Validate(logger *zap.Logger) error {
	if _, err := ParseEdition(string(c.Edition)); err != nil {
		return err
	}
	if err := c.Active.Validate(logger); err != nil {
		return fmt.Errorf("active cluster: %w", err)
	}
	if c.Passive != nil {
		if err := c.Passive.Validate(logger); err != nil {
			return fmt.Errorf("passive cluster: %w", err)
		}
	}
	if c.Schema != nil {
		if err := c.Schema.Validate(logger); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// EnvPrefix returns the environment prefix for a cluster role,
// e.g. AEROSPIKE_ACTIVE_.
func EnvPrefix(role model.Role) string {
	return "AEROSPIKE_" + strings.ToUpper(string(role)) + "_"
}

// SecretsPrefix returns the secrets file key prefix for a cluster role,
// e.g. ACTIVE_.
func SecretsPrefix(role model.Role) string {
	return strings.ToUpper(string(role)) + "_"
}

type credentialsLoader func(role model.Role) (Credentials, error)

// BuildDefault assembles the configuration from the process environment
func BuildDefault(logger *zap.Logger) (*Config, error) {
	return Build(NewEnvSource(), logger)
}

// Build assembles the configuration from src. Active and passive failures
// are returned; a schema failure leaves Schema nil.
func Build(src Source, logger *zap.Logger) (*Config, error) {
	return build(src, func(role model.Role) (Credentials, error) {
		return credentialsFromSource(src, EnvPrefix(role), logger)
	}, logger)
}

// BuildFromSecretsFile reads credentials for both clusters from a secrets
// file keyed ACTIVE_* and PASSIVE_*; everything else comes from the
// environment.
func BuildFromSecretsFile(path string, logger *zap.Logger) (*Config, error) {
	return build(NewEnvSource(), func(role model.Role) (Credentials, error) {
		return CredentialsFromSecretsFile(path, SecretsPrefix(role), logger)
	}, logger)
}

func build(src Source, loadCredentials credentialsLoader, logger *zap.Logger) (*Config, error) {
	log := named(logger)

	edition, err := ResolveEdition(src, EditionEnvKey)
	if err != nil {
		log.Error("Failed to resolve edition", zap.Error(err))
		return nil, err
	}

	active, err := buildCluster(src, model.RoleActive, loadCredentials, logger)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Edition: edition,
		Active:  active,
	}

	if _, ok := src.Lookup(EnvPrefix(model.RolePassive) + keyHosts); ok {
		passive, err := buildCluster(src, model.RolePassive, loadCredentials, logger)
		if err != nil {
			return nil, err
		}
		cfg.Passive = &passive
	}

	if _, ok := src.Lookup(keyNamespace); ok {
		schema, err := schemaFromSource(src, logger)
		if err != nil {
			log.Warn("Ignoring invalid schema descriptor", zap.Error(err))
		} else {
			cfg.Schema = &schema
		}
	}

	log.Info("Configuration loaded",
		zap.String("edition", string(cfg.Edition)),
		zap.Strings("active_hosts", cfg.Active.Endpoint.Hosts),
		zap.Bool("passive", cfg.Passive != nil),
		zap.Bool("schema", cfg.Schema != nil))

	return cfg, nil
}

func buildCluster(src Source, role model.Role, loadCredentials credentialsLoader, logger *zap.Logger) (Cluster, error) {
	endpoint, err := endpointFromSource(src, EnvPrefix(role), logger)
	if err != nil {
		return Cluster{}, fmt.Errorf("%s endpoint: %w", role, err)
	}
	creds, err := loadCredentials(role)
	if err != nil {
		return Cluster{}, fmt.Errorf("%s credentials: %w", role, err)
	}
	return Cluster{Endpoint: endpoint, Credentials: creds}, nil
}
