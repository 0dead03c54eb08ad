// Package transport implements the line-oriented Info status exchange.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	clienterrors "github.com/devrev/aerolink/internal/errors"
	"go.uber.org/zap"
)

const (
	// CommandStatistics is the Info command used as a liveness probe
	CommandStatistics = "statistics"

	// MaxResponseSize caps the single read performed per exchange
	MaxResponseSize = 32 * 1024
)

// Info performs single request/response Info exchanges.
// A zero timeout disables the corresponding deadline.
type Info struct {
	readTimeout time.Duration
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
	logger      *zap.Logger
}

// NewInfo creates a new Info transport
func NewInfo(connectTimeout, readTimeout time.Duration, logger *zap.Logger) *Info {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Info{
		readTimeout: readTimeout,
		dial:        dialer.DialContext,
		logger:      logger.Named("transport"),
	}
}

// Send writes command followed by a newline and returns whatever the peer
// sends back in one read of at most MaxResponseSize bytes. A peer that closes
// without sending anything yields an empty response, not an error.
func (t *Info) Send(ctx context.Context, host string, port int, command string) ([]byte, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := t.dial(ctx, "tcp", addr)
	if err != nil {
		t.logger.Error("Failed to connect",
			zap.String("address", addr),
			zap.Error(err))
		return nil, clienterrors.ConnectionFailed(fmt.Sprintf("connect to %s", addr), err).
			WithDetail("address", addr)
	}
	defer conn.Close()

	if t.readTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(t.readTimeout)); err != nil {
			t.logger.Error("Failed to set connection deadline",
				zap.String("address", addr),
				zap.Error(err))
			return nil, clienterrors.ConnectionFailed(fmt.Sprintf("set deadline on %s", addr), err).
				WithDetail("address", addr)
		}
	}

	if _, err := io.WriteString(conn, command+"\n"); err != nil {
		t.logger.Error("Failed to write command",
			zap.String("address", addr),
			zap.String("command", command),
			zap.Error(err))
		return nil, clienterrors.ConnectionFailed(fmt.Sprintf("write to %s", addr), err).
			WithDetail("address", addr)
	}

	buf := make([]byte, MaxResponseSize)
	n, err := conn.Read(buf)
	if err != nil && !stderrors.Is(err, io.EOF) {
		t.logger.Error("Failed to read response",
			zap.String("address", addr),
			zap.Error(err))
		return nil, clienterrors.ConnectionFailed(fmt.Sprintf("read from %s", addr), err).
			WithDetail("address", addr)
	}

	return buf[:n], nil
}

// ParsePairs splits a name=value;name=value Info response.
// Entries without '=' are kept with an empty value.
func ParsePairs(resp []byte) map[string]string {
	body := strings.TrimSpace(string(resp))
	if i := strings.IndexByte(body, '\t'); i >= 0 {
		body = body[i+1:]
	}

	pairs := make(map[string]string)
	for _, item := range strings.Split(body, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, value, _ := strings.Cut(item, "=")
		pairs[name] = value
	}
	return pairs
}
