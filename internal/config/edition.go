package config

import (
	"strings"

	clienterrors "github.com/devrev/aerolink/internal/errors"
)

// Edition is the deployment tier of the target clusters
type Edition string

const (
	EditionCommunity  Edition = "community"
	EditionEnterprise Edition = "enterprise"
)

// EditionEnvKey is the default environment variable holding the edition
const EditionEnvKey = "AEROSPIKE_EDITION"

// Code returns the numeric edition code: 0 community, 1 enterprise.
func (e Edition) Code() int32 {
	if e == EditionEnterprise {
		return 1
	}
	return 0
}

// ParseEdition matches a raw token case-insensitively.
// The empty string resolves to community.
func ParseEdition(raw string) (Edition, error) {
	if raw == "" {
		return EditionCommunity, nil
	}
	switch Edition(strings.ToLower(raw)) {
	case EditionCommunity:
		return EditionCommunity, nil
	case EditionEnterprise:
		return EditionEnterprise, nil
	default:
		return "", clienterrors.InvalidEdition(raw)
	}
}

// ResolveEdition reads key from src. Absence never fails.
func ResolveEdition(src Source, key string) (Edition, error) {
	raw, ok := src.Lookup(key)
	if !ok {
		return EditionCommunity, nil
	}
	return ParseEdition(raw)
}

// DetectEdition resolves the edition from the process environment.
func DetectEdition(key string) (Edition, error) {
	return ResolveEdition(NewEnvSource(), key)
}
