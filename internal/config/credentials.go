package config

import (
	"fmt"

	clienterrors "github.com/devrev/aerolink/internal/errors"
	"go.uber.org/zap"
)

// Credential field names, appended to a caller-supplied prefix
const (
	keyUser        = "USER"
	keyPassword    = "PASSWORD"
	keyTLSEnable   = "TLS_ENABLE"
	keyTLSCAFile   = "TLS_CA_FILE"
	keyTLSCertFile = "TLS_CERT_FILE"
	keyTLSKeyFile  = "TLS_KEY_FILE"
)

// Credentials holds authentication and TLS material for one cluster.
// Empty strings mean the value is absent.
type Credentials struct {
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	TLSEnabled  bool   `yaml:"tls_enable"`
	TLSCAFile   string `yaml:"tls_ca_file"`
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`
}

// CredentialsFromEnv loads credentials from the environment under prefix
func CredentialsFromEnv(prefix string, logger *zap.Logger) (Credentials, error) {
	return credentialsFromSource(NewEnvSource(), prefix, logger)
}

// CredentialsFromSecretsFile loads credentials from a KEY=VALUE file.
// Only keys starting with prefix are considered.
func CredentialsFromSecretsFile(path, prefix string, logger *zap.Logger) (Credentials, error) {
	values, err := readSecretsFile(path, prefix)
	if err != nil {
		named(logger).Error("Failed to load secrets file",
			zap.String("path", path),
			zap.Error(err))
		return Credentials{}, clienterrors.MissingRequiredCredential("secrets file unavailable", err).
			WithDetail("path", path)
	}
	return credentialsFromSource(MapSource(values), "", logger)
}

func credentialsFromSource(src Source, prefix string, logger *zap.Logger) (Credentials, error) {
	creds := Credentials{
		User:        lookupString(src, prefix+keyUser),
		Password:    lookupString(src, prefix+keyPassword),
		TLSEnabled:  lookupBool(src, prefix+keyTLSEnable),
		TLSCAFile:   lookupString(src, prefix+keyTLSCAFile),
		TLSCertFile: lookupString(src, prefix+keyTLSCertFile),
		TLSKeyFile:  lookupString(src, prefix+keyTLSKeyFile),
	}
	if err := creds.Validate(logger); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// HasAuth reports whether user and password are configured
func (c Credentials) HasAuth() bool {
	return c.User != "" && c.Password != ""
}

// Validate checks the TLS bundle and user/password pairing.
// logger may be nil.
func (c Credentials) Validate(logger *zap.Logger) error {
	if c.TLSEnabled {
		var missing []string
		if c.TLSCAFile == "" {
			missing = append(missing, keyTLSCAFile)
		}
		if c.TLSCertFile == "" {
			missing = append(missing, keyTLSCertFile)
		}
		if c.TLSKeyFile == "" {
			missing = append(missing, keyTLSKeyFile)
		}
		if len(missing) > 0 {
			msg := fmt.Sprintf("TLS enabled but missing %v", missing)
			named(logger).Error("Invalid credentials", zap.String("reason", msg))
			return clienterrors.MissingRequiredCredential(msg, nil).WithDetail("missing", missing)
		}
	}

	if (c.User == "") != (c.Password == "") {
		msg := "user and password must be set together"
		named(logger).Error("Invalid credentials",
			zap.String("reason", msg),
			zap.Bool("user_set", c.User != ""),
			zap.Bool("password_set", c.Password != ""))
		return clienterrors.MissingRequiredCredential(msg, nil)
	}

	return nil
}
