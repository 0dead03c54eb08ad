package config

import (
	"fmt"
	"strconv"

	clienterrors "github.com/devrev/aerolink/internal/errors"
	"go.uber.org/zap"
)

const (
	keyNamespace        = "AEROSPIKE_NAMESPACE"
	keySet              = "AEROSPIKE_SET"
	keyDefaultTTL       = "AEROSPIKE_DEFAULT_TTL_SECONDS"
	keyAllowedBins      = "AEROSPIKE_ALLOWED_BINS"
	keySecondaryIndexes = "AEROSPIKE_SECONDARY_INDEXES"
)

// Schema describes the namespace layout the caller expects.
// It is carried through configuration but not interpreted by the client.
type Schema struct {
	Namespace        string   `yaml:"namespace"`
	Set              string   `yaml:"set"`
	DefaultTTL       *int     `yaml:"default_ttl_seconds,omitempty"`
	AllowedBins      []string `yaml:"allowed_bins"`
	SecondaryIndexes []string `yaml:"secondary_indexes"`
}

// SchemaFromEnv loads a schema descriptor. The namespace is required.
func SchemaFromEnv(logger *zap.Logger) (Schema, error) {
	return schemaFromSource(NewEnvSource(), logger)
}

func schemaFromSource(src Source, logger *zap.Logger) (Schema, error) {
	namespace, ok := src.Lookup(keyNamespace)
	if !ok {
		named(logger).Error("Schema requires a namespace", zap.String("key", keyNamespace))
		return Schema{}, clienterrors.MissingRequiredConfig(keyNamespace + " is not set")
	}

	schema := Schema{
		Namespace:        namespace,
		Set:              lookupString(src, keySet),
		AllowedBins:      splitList(lookupString(src, keyAllowedBins)),
		SecondaryIndexes: splitList(lookupString(src, keySecondaryIndexes)),
	}
	if raw, ok := src.Lookup(keyDefaultTTL); ok {
		if ttl, err := strconv.Atoi(raw); err == nil {
			schema.DefaultTTL = &ttl
		}
	}

	if err := schema.Validate(logger); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// Validate requires a namespace and non-empty bin names
func (s Schema) Validate(logger *zap.Logger) error {
	if s.Namespace == "" {
		named(logger).Error("Invalid schema: namespace is empty")
		return clienterrors.MissingRequiredConfig("namespace is empty")
	}
	for i, bin := range s.AllowedBins {
		if bin == "" {
			named(logger).Error("Invalid schema: empty bin name", zap.Int("index", i))
			return clienterrors.MissingRequiredConfig(fmt.Sprintf("allowed bin %d is empty", i))
		}
	}
	return nil
}
