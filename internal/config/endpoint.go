package config

import (
	"net"
	"strconv"
	"time"

	clienterrors "github.com/devrev/aerolink/internal/errors"
	"go.uber.org/zap"
)

const (
	keyHosts            = "HOSTS"
	keyPort             = "PORT"
	keyConnectTimeoutMS = "CONNECT_TIMEOUT_MS"
	keyReadTimeoutMS    = "READ_TIMEOUT_MS"
	keyClusterName      = "CLUSTER_NAME"
)

const (
	DefaultPort           = 3000
	DefaultConnectTimeout = 5000 * time.Millisecond
	DefaultReadTimeout    = 5000 * time.Millisecond
)

// Endpoint describes how to reach one cluster
type Endpoint struct {
	Hosts          []string      `yaml:"hosts"`
	Port           int           `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	ClusterName    string        `yaml:"cluster_name"`
}

// EndpointFromEnv loads an endpoint from the environment under prefix.
// Unparseable numeric values fall back to their defaults.
func EndpointFromEnv(prefix string, logger *zap.Logger) (Endpoint, error) {
	return endpointFromSource(NewEnvSource(), prefix, logger)
}

func endpointFromSource(src Source, prefix string, logger *zap.Logger) (Endpoint, error) {
	ep := Endpoint{
		Hosts:          splitList(lookupString(src, prefix+keyHosts)),
		Port:           lookupPort(src, prefix+keyPort, DefaultPort),
		ConnectTimeout: lookupMillis(src, prefix+keyConnectTimeoutMS, DefaultConnectTimeout),
		ReadTimeout:    lookupMillis(src, prefix+keyReadTimeoutMS, DefaultReadTimeout),
		ClusterName:    lookupString(src, prefix+keyClusterName),
	}
	if err := ep.Validate(logger); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// Validate requires at least one host and a non-zero port
func (e Endpoint) Validate(logger *zap.Logger) error {
	if len(e.Hosts) == 0 {
		named(logger).Error("Invalid endpoint: no hosts configured",
			zap.String("cluster_name", e.ClusterName))
		return clienterrors.MissingRequiredConfig("host list is empty")
	}
	if e.Port == 0 {
		named(logger).Error("Invalid endpoint: port is zero",
			zap.Strings("hosts", e.Hosts))
		return clienterrors.MissingRequiredConfig("port must be non-zero")
	}
	return nil
}

// Address returns host:port for one of the endpoint's hosts
func (e Endpoint) Address(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(e.Port))
}
