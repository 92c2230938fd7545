// FILE: logmonitor/src/internal/sink/tcp_client.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/wire"

	"github.com/lixenwraith/log"
)

// ErrNotConnected is returned by Send before Connect or after Close
var ErrNotConnected = errors.New("not connected")

// TCPClient is a wire protocol producer: it performs the handshake and
// sends messages split into frames
type TCPClient struct {
	config TCPClientConfig
	conn   net.Conn
	connMu sync.Mutex
	logger *log.Logger

	// Statistics
	totalSent   atomic.Uint64
	totalFrames atomic.Uint64
	totalFailed atomic.Uint64
}

// TCPClientConfig holds producer identity and connection settings
type TCPClientConfig struct {
	Address      string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    time.Duration

	// Identity announced in the CONNECTION frame
	Version uint32
	Pid     uint64
	Machine string
	ExePath string
}

// NewTCPClient fills unset identity fields from the current process
func NewTCPClient(cfg TCPClientConfig, logger *log.Logger) (*TCPClient, error) {
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, fmt.Errorf("invalid address format (expected host:port): %w", err)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 30 * time.Second
	}
	if cfg.Version == 0 {
		cfg.Version = wire.ProtocolVersion
	}
	if cfg.Pid == 0 {
		cfg.Pid = uint64(os.Getpid())
	}
	if cfg.Machine == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Machine = host
		}
	}
	if cfg.ExePath == "" {
		if exe, err := os.Executable(); err == nil {
			cfg.ExePath = exe
		}
	}

	return &TCPClient{config: cfg, logger: logger}, nil
}

// Connect dials the server and sends the CONNECTION frame
func (t *TCPClient) Connect(ctx context.Context) error {
	dialer := &net.Dialer{
		Timeout:   t.config.DialTimeout,
		KeepAlive: t.config.KeepAlive,
	}

	conn, err := dialer.DialContext(ctx, "tcp", t.config.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.config.Address, err)
	}

	handshake, err := wire.Encode(wire.Frame{
		Type: wire.TypeConnection,
		Connection: &wire.ConnectionBody{
			Version: t.config.Version,
			Pid:     t.config.Pid,
			Machine: t.config.Machine,
			ExePath: t.config.ExePath,
		},
	})
	if err != nil {
		conn.Close()
		return err
	}
	if err := t.write(conn, handshake); err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()

	t.logger.Info("msg", "Connected to log server",
		"component", "tcp_client",
		"address", t.config.Address,
		"local_addr", conn.LocalAddr(),
		"version", t.config.Version)
	return nil
}

// Send splits msg into frames and writes them in one call. Timestamp is in
// milliseconds and is converted to seconds for version 1 connections.
func (t *TCPClient) Send(msg core.LogMessage) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return ErrNotConnected
	}

	ts := uint64(msg.Timestamp)
	if t.config.Version == 1 {
		ts /= 1000
	}
	hdr := wire.TextBody{
		Timestamp: ts,
		Severity:  uint32(msg.Severity),
		Module:    msg.Module,
		Channel:   msg.Channel,
	}
	data, err := wire.EncodeMessage(hdr, []byte(msg.Message))
	if err != nil {
		t.totalFailed.Add(1)
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := t.write(t.conn, data); err != nil {
		t.totalFailed.Add(1)
		return err
	}

	t.totalSent.Add(1)
	t.totalFrames.Add(uint64(len(data) / wire.FrameSize))
	return nil
}

// SendRaw writes pre-encoded bytes, for producers that frame themselves
func (t *TCPClient) SendRaw(data []byte) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	return t.write(t.conn, data)
}

func (t *TCPClient) write(conn net.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	n, err := conn.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial write: %d/%d bytes", n, len(data))
	}
	return nil
}

// Close ends the connection; an in-progress message on the server is discarded
func (t *TCPClient) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil

	t.logger.Info("msg", "TCP client closed",
		"component", "tcp_client",
		"total_sent", t.totalSent.Load(),
		"total_frames", t.totalFrames.Load(),
		"total_failed", t.totalFailed.Load())
	return err
}

func (t *TCPClient) GetStats() SinkStats {
	t.connMu.Lock()
	connected := t.conn != nil
	t.connMu.Unlock()

	activeConns := int64(0)
	if connected {
		activeConns = 1
	}

	return SinkStats{
		Type:              "tcp_client",
		TotalProcessed:    t.totalSent.Load(),
		ActiveConnections: activeConns,
		Details: map[string]any{
			"address":      t.config.Address,
			"connected":    connected,
			"total_frames": t.totalFrames.Load(),
			"total_failed": t.totalFailed.Load(),
		},
	}
}
