package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/devrev/aerolink/internal/config"
	clienterrors "github.com/devrev/aerolink/internal/errors"
	"github.com/devrev/aerolink/internal/metrics"
	"github.com/devrev/aerolink/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type reply struct {
	resp []byte
	err  error
}

// scriptedSender answers per host and records the order of calls.
type scriptedSender struct {
	replies map[string]reply
	calls   []string
}

func (s *scriptedSender) Send(_ context.Context, host string, port int, command string) ([]byte, error) {
	s.calls = append(s.calls, host)
	if command != "statistics" {
		return nil, errors.New("unexpected command " + command)
	}
	r, ok := s.replies[host]
	if !ok {
		return nil, clienterrors.ConnectionFailed("connection refused", nil)
	}
	return r.resp, r.err
}

func (s *scriptedSender) factory() TransportFactory {
	return func(config.Endpoint, *zap.Logger) InfoSender { return s }
}

func testConfig(active []string, passive []string) config.Config {
	cfg := config.Config{
		Edition: config.EditionCommunity,
		Active: config.Cluster{
			Endpoint: config.Endpoint{Hosts: active, Port: 3000, ClusterName: "primary"},
		},
	}
	if passive != nil {
		cfg.Passive = &config.Cluster{
			Endpoint: config.Endpoint{Hosts: passive, Port: 3000, ClusterName: "dr"},
		}
	}
	return cfg
}

func newTestManager(t *testing.T, cfg config.Config, sender *scriptedSender, opts ...Option) (*Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithTransportFactory(sender.factory())}, opts...)
	m, err := NewManager(cfg, zap.New(core), opts...)
	require.NoError(t, err)
	return m, logs
}

func TestNewManager_RejectsInvalidConfig(t *testing.T) {
	_, err := NewManager(testConfig(nil, nil), nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsMissingRequiredConfig(err))

	cfg := testConfig([]string{"a"}, []string{"b"})
	cfg.Passive.Credentials.User = "only-user"
	_, err = NewManager(cfg, nil)
	assert.True(t, clienterrors.IsMissingRequiredCredential(err))
}

func TestNewManager_CopiesConfiguration(t *testing.T) {
	hosts := []string{"a", "b"}
	cfg := testConfig(hosts, nil)
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)

	hosts[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, m.Config().Active.Endpoint.Hosts)

	copied := m.Config()
	copied.Active.Endpoint.Hosts[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, m.Config().Active.Endpoint.Hosts)
}

func TestConnect_FirstActiveHost(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{
		"a1": {resp: []byte("cluster_size=2;uptime=10")},
		"a2": {resp: []byte("cluster_size=2")},
	}}
	m, _ := newTestManager(t, testConfig([]string{"a1", "a2"}, []string{"p1"}), sender)

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RoleActive, session.Role)
	assert.Equal(t, "a1", session.Host)
	assert.Equal(t, "primary", session.ClusterName)
	assert.Equal(t, "a1:3000", session.Address())
	assert.Equal(t, "2", session.Stats["cluster_size"])
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, []string{"a1"}, sender.calls)
}

func TestConnect_SkipsFailingAndEmptyHostsInOrder(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{
		"a1": {err: errors.New("refused")},
		"a2": {resp: []byte{}},
		"a3": {resp: []byte("ok")},
		"a4": {resp: []byte("ok")},
	}}
	m, _ := newTestManager(t, testConfig([]string{"a1", "a2", "a3", "a4"}, nil), sender)

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a3", session.Host)
	assert.Equal(t, []string{"a1", "a2", "a3"}, sender.calls)
}

func TestConnect_FailsOverToPassive(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{
		"p2": {resp: []byte("cluster_size=1")},
	}}
	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)
	m, logs := newTestManager(t, testConfig([]string{"a1", "a2"}, []string{"p1", "p2"}), sender, WithMetrics(mt))

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RolePassive, session.Role)
	assert.Equal(t, "p2", session.Host)
	assert.Equal(t, "dr", session.ClusterName)
	assert.Equal(t, []string{"a1", "a2", "p1", "p2"}, sender.calls)

	var warned bool
	for _, entry := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		if strings.Contains(entry.Message, "passive") {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning mentioning the passive cluster")

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.FailoversTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(mt.ProbesTotal.WithLabelValues("active", "error"))+
		testutil.ToFloat64(mt.ProbesTotal.WithLabelValues("passive", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ProbesTotal.WithLabelValues("passive", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.OperationsTotal.WithLabelValues("connect", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(mt.ResponseBytes))
}

func TestConnect_NoPassiveConfigured(t *testing.T) {
	sender := &scriptedSender{}
	m, logs := newTestManager(t, testConfig([]string{"a1"}, nil), sender)

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, clienterrors.IsConnectionFailed(err))
	assert.Equal(t, []string{"a1"}, sender.calls)
	assert.Zero(t, logs.FilterMessageSnippet("failing over").Len())
}

func TestConnect_BothClustersUnreachable(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{
		"p1": {resp: nil},
	}}
	m, _ := newTestManager(t, testConfig([]string{"a1"}, []string{"p1"}), sender)

	_, err := m.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, clienterrors.IsConnectionFailed(err))
	assert.Equal(t, []string{"a1", "p1"}, sender.calls)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		active  []string
		passive []string
		replies map[string]reply
		want    bool
		calls   []string
	}{
		{
			name:    "active responds",
			active:  []string{"a1"},
			passive: []string{"p1"},
			replies: map[string]reply{"a1": {resp: []byte("x")}},
			want:    true,
			calls:   []string{"a1"},
		},
		{
			name:    "passive responds",
			active:  []string{"a1", "a2"},
			passive: []string{"p1"},
			replies: map[string]reply{"a2": {resp: []byte{}}, "p1": {resp: []byte("x")}},
			want:    true,
			calls:   []string{"a1", "a2", "p1"},
		},
		{
			name:    "nothing responds",
			active:  []string{"a1"},
			passive: []string{"p1", "p2"},
			replies: map[string]reply{"p2": {resp: []byte{}}},
			want:    false,
			calls:   []string{"a1", "p1", "p2"},
		},
		{
			name:   "nothing responds without passive",
			active: []string{"a1", "a1"},
			want:   false,
			calls:  []string{"a1", "a1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &scriptedSender{replies: tt.replies}
			m, _ := newTestManager(t, testConfig(tt.active, tt.passive), sender)

			ok, err := m.Ping(context.Background())
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, clienterrors.IsConnectionFailed(err))
			}
			assert.Equal(t, tt.calls, sender.calls)
		})
	}
}

func TestPing_IsStatelessBetweenCalls(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{"p1": {resp: []byte("x")}}}
	m, _ := newTestManager(t, testConfig([]string{"a1"}, []string{"p1"}), sender)

	for i := 0; i < 2; i++ {
		ok, err := m.Ping(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, []string{"a1", "p1", "a1", "p1"}, sender.calls)
}

func TestClose(t *testing.T) {
	sender := &scriptedSender{replies: map[string]reply{"a1": {resp: []byte("x")}}}
	m, _ := newTestManager(t, testConfig([]string{"a1"}, nil), sender)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Connect(context.Background())
	assert.True(t, clienterrors.IsConnectionFailed(err))
	ok, err := m.Ping(context.Background())
	assert.False(t, ok)
	assert.True(t, clienterrors.IsConnectionFailed(err))
	assert.Empty(t, sender.calls)
}

// statisticsServer answers every statistics request with body.
func statisticsServer(t *testing.T, body string) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
					return
				}
				conn.Write([]byte(body))
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestConnect_OverTCP(t *testing.T) {
	port := statisticsServer(t, "cluster_size=1;uptime=5\n")
	deadPort := closedPort(t)

	cfg := config.Config{
		Edition: config.EditionEnterprise,
		Active: config.Cluster{Endpoint: config.Endpoint{
			Hosts:          []string{"127.0.0.1"},
			Port:           deadPort,
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
		}},
		Passive: &config.Cluster{Endpoint: config.Endpoint{
			Hosts:          []string{"127.0.0.1"},
			Port:           port,
			ConnectTimeout: time.Second,
			ReadTimeout:    time.Second,
		}},
	}

	m, err := NewManager(cfg, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RolePassive, session.Role)
	assert.Equal(t, port, session.Port)
	assert.Equal(t, "5", session.Stats["uptime"])

	ok, err := m.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewDefaultManager(t *testing.T) {
	t.Setenv("AEROSPIKE_ACTIVE_HOSTS", "127.0.0.1")
	t.Setenv("AEROSPIKE_ACTIVE_PORT", "3000")

	m, err := NewDefaultManager(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, m.Config().Active.Endpoint.Hosts)

	t.Setenv("AEROSPIKE_ACTIVE_HOSTS", "")
	_, err = NewDefaultManager(zap.NewNop())
	assert.True(t, clienterrors.IsMissingRequiredConfig(err))
}
