package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Source resolves raw configuration values by key.
// A key that is unset or set to the empty string is reported as absent.
type Source interface {
	Lookup(key string) (string, bool)
}

type envSource struct{}

// NewEnvSource returns a Source backed by the process environment.
// Keys name environment variables exactly, including their case.
func NewEnvSource() Source {
	return envSource{}
}

// Lookup binds key to the variable of the same name on a fresh viper
// instance. viper folds keys to lower case, so a shared instance would let
// svc_USER and SVC_USER resolve to the same binding.
func (envSource) Lookup(key string) (string, bool) {
	v := viper.New()
	v.AllowEmptyEnv(false)
	if err := v.BindEnv(key, key); err != nil {
		return "", false
	}
	value := v.GetString(key)
	return value, value != ""
}

// MapSource is a Source over a fixed set of values.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	value, ok := m[key]
	return value, ok && value != ""
}

// readSecretsFile parses KEY=VALUE lines and keeps those whose key starts
// with prefix. The returned map is keyed by the remainder after the prefix.
// Later lines overwrite earlier ones.
func readSecretsFile(path, prefix string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open secrets file: %w", err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		values[strings.TrimPrefix(key, prefix)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	return values, nil
}

// splitList splits a comma or whitespace separated list, dropping empty
// tokens and keeping order and duplicates.
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func lookupString(src Source, key string) string {
	value, _ := src.Lookup(key)
	return value
}

func lookupPort(src Source, key string, def int) int {
	raw, ok := src.Lookup(key)
	if !ok {
		return def
	}
	p, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return def
	}
	return int(p)
}

func lookupMillis(src Source, key string, def time.Duration) time.Duration {
	raw, ok := src.Lookup(key)
	if !ok {
		return def
	}
	ms, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func lookupBool(src Source, key string) bool {
	raw, ok := src.Lookup(key)
	if !ok {
		return false
	}
	return raw == "1" || strings.EqualFold(raw, "true")
}

func named(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named("config")
}
