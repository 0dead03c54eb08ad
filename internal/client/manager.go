package client

import (
	"context"
	"fmt"
	"time"

	"github.com/devrev/aerolink/internal/config"
	clienterrors "github.com/devrev/aerolink/internal/errors"
	"github.com/devrev/aerolink/internal/metrics"
	"github.com/devrev/aerolink/internal/model"
	"github.com/devrev/aerolink/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InfoSender performs one Info request/response exchange with a host
type InfoSender interface {
	Send(ctx context.Context, host string, port int, command string) ([]byte, error)
}

// TransportFactory builds the sender used for one cluster endpoint
type TransportFactory func(endpoint config.Endpoint, logger *zap.Logger) InfoSender

// Session describes the host that answered a Connect
type Session struct {
	ID            string
	Role          model.Role
	Host          string
	Port          int
	ClusterName   string
	EstablishedAt time.Time
	Stats         map[string]string
}

// Address returns host:port of the session's host
func (s *Session) Address() string {
	return config.Endpoint{Port: s.Port}.Address(s.Host)
}

// Option configures a Manager
type Option func(*Manager)

// WithTransportFactory replaces the default Info transport
func WithTransportFactory(f TransportFactory) Option {
	return func(m *Manager) {
		m.newTransport = f
	}
}

// WithMetrics records probe and failover metrics
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// Manager connects to the active cluster and fails over to the passive
// cluster. It holds its own copy of the configuration and keeps no
// connection state between calls. Not safe for concurrent use.
type Manager struct {
	cfg          config.Config
	logger       *zap.Logger
	newTransport TransportFactory
	metrics      *metrics.Metrics
	closed       bool
}

// NewManager validates cfg and creates a new Manager
func NewManager(cfg config.Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(logger); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}

	m := &Manager{
		cfg:          cfg.Clone(),
		logger:       logger.Named("client"),
		newTransport: defaultTransport,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NewDefaultManager builds the configuration from the environment and
// creates a Manager from it
func NewDefaultManager(logger *zap.Logger, opts ...Option) (*Manager, error) {
	cfg, err := config.BuildDefault(logger)
	if err != nil {
		return nil, err
	}
	return NewManager(*cfg, logger, opts...)
}

func defaultTransport(endpoint config.Endpoint, logger *zap.Logger) InfoSender {
	return transport.NewInfo(endpoint.ConnectTimeout, endpoint.ReadTimeout, logger)
}

// Config returns a copy of the manager's configuration
func (m *Manager) Config() config.Config {
	return m.cfg.Clone()
}

// Connect probes the active cluster and, if no host answers, the passive
// cluster. It returns the first host that responded.
func (m *Manager) Connect(ctx context.Context) (*Session, error) {
	m.logger.Info("Connecting to cluster",
		zap.String("edition", string(m.cfg.Edition)),
		zap.Strings("active_hosts", m.cfg.Active.Endpoint.Hosts),
		zap.Bool("passive_configured", m.cfg.Passive != nil))

	result, err := m.probe(ctx, "connect")
	if err != nil {
		return nil, err
	}

	cluster := m.cfg.Cluster(result.Role)
	session := &Session{
		ID:            uuid.NewString(),
		Role:          result.Role,
		Host:          result.Host,
		Port:          result.Port,
		ClusterName:   cluster.Endpoint.ClusterName,
		EstablishedAt: time.Now(),
		Stats:         transport.ParsePairs(result.Response),
	}

	m.logger.Info("Connected",
		zap.String("session_id", session.ID),
		zap.String("role", string(session.Role)),
		zap.String("address", session.Address()))

	return session, nil
}

// Ping reports whether any host answers the statistics probe, trying the
// active cluster before the passive one.
func (m *Manager) Ping(ctx context.Context) (bool, error) {
	if _, err := m.probe(ctx, "ping"); err != nil {
		return false, err
	}
	return true, nil
}

// Close tears the manager down. Later calls to Connect or Ping fail.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("Client closed")
	return nil
}

func (m *Manager) probe(ctx context.Context, operation string) (result model.ProbeResult, err error) {
	defer func() {
		m.metrics.RecordOperation(operation, err)
	}()

	if m.closed {
		return model.ProbeResult{}, clienterrors.ConnectionFailed("client is closed", nil)
	}

	if r, ok := m.tryEndpoint(ctx, model.RoleActive, m.cfg.Active.Endpoint); ok {
		return r, nil
	}

	if m.cfg.Passive == nil {
		m.logger.Error("Active cluster unreachable and no passive cluster configured",
			zap.String("operation", operation))
		return model.ProbeResult{}, clienterrors.ConnectionFailed("active cluster unreachable", nil).
			WithDetail("operation", operation)
	}

	m.logger.Warn("Active cluster unreachable, failing over to passive cluster",
		zap.String("operation", operation),
		zap.Strings("passive_hosts", m.cfg.Passive.Endpoint.Hosts))
	m.metrics.RecordFailover()

	if r, ok := m.tryEndpoint(ctx, model.RolePassive, m.cfg.Passive.Endpoint); ok {
		return r, nil
	}

	m.logger.Error("Active and passive clusters unreachable",
		zap.String("operation", operation))
	return model.ProbeResult{}, clienterrors.ConnectionFailed("active and passive clusters unreachable", nil).
		WithDetail("operation", operation)
}

// tryEndpoint probes hosts in listed order and stops at the first non-empty
// response. Exhausting the list is reported through ok, not as an error.
func (m *Manager) tryEndpoint(ctx context.Context, role model.Role, endpoint config.Endpoint) (model.ProbeResult, bool) {
	sender := m.newTransport(endpoint, m.logger)

	for _, host := range endpoint.Hosts {
		start := time.Now()
		resp, err := sender.Send(ctx, host, endpoint.Port, transport.CommandStatistics)

		result := model.ProbeResult{
			Role:     role,
			Host:     host,
			Port:     endpoint.Port,
			Bytes:    len(resp),
			Duration: time.Since(start),
			Response: resp,
		}
		switch {
		case err != nil:
			result.Outcome = model.ProbeOutcomeError
			m.logger.Warn("Host probe failed",
				zap.String("role", string(role)),
				zap.String("address", endpoint.Address(host)),
				zap.Error(err))
		case len(resp) == 0:
			result.Outcome = model.ProbeOutcomeEmpty
			m.logger.Warn("Host returned empty response",
				zap.String("role", string(role)),
				zap.String("address", endpoint.Address(host)))
		default:
			result.Outcome = model.ProbeOutcomeOK
		}
		m.metrics.RecordProbe(result)

		if result.Reachable() {
			return result, true
		}
	}

	return model.ProbeResult{}, false
}
