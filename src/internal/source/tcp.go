// FILE: logmonitor/src/internal/source/tcp.go
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"logmonitor/src/internal/config"
	"logmonitor/src/internal/core"
	"logmonitor/src/internal/limit"
	"logmonitor/src/internal/store"
	"logmonitor/src/internal/wire"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

// TCPSource accepts producer connections and feeds completed messages into
// its store. All connection events and ticks run on one gnet event loop.
type TCPSource struct {
	*store.Store

	host       string
	port       int64
	server     *tcpSourceServer
	engine     *gnet.Engine
	engineMu   sync.Mutex
	booted     chan struct{}
	wg         sync.WaitGroup
	netLimiter *limit.NetLimiter
	logger     *log.Logger

	// Statistics
	totalMessages   atomic.Uint64
	totalFrames     atomic.Uint64
	abortedConns    atomic.Uint64
	discardedChunks atomic.Uint64
	activeConns     atomic.Int64
	startTime       time.Time
	lastMessageTime atomic.Value // time.Time
}

// NewTCPSource creates the live model around st
func NewTCPSource(cfg *config.ServerConfig, st *store.Store, logger *log.Logger) (*TCPSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tcp source requires server config")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("tcp source requires valid port, got %d", cfg.Port)
	}
	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}

	t := &TCPSource{
		Store:      st,
		host:       host,
		port:       cfg.Port,
		booted:     make(chan struct{}),
		netLimiter: limit.NewNetLimiter(cfg.NetLimit, logger),
		startTime:  time.Now(),
		logger:     logger,
	}
	t.lastMessageTime.Store(time.Time{})
	return t, nil
}

// IsLive is true for the network backed model
func (t *TCPSource) IsLive() bool {
	return true
}

// Start runs the event loop and returns once it is listening
func (t *TCPSource) Start() error {
	t.server = &tcpSourceServer{
		source:  t,
		clients: make(map[gnet.Conn]*session),
	}

	addr := fmt.Sprintf("tcp://%s:%d", t.host, t.port)
	gnetLogger := compat.NewGnetAdapter(t.logger)

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logger.Info("msg", "TCP source server starting",
			"component", "tcp_source",
			"port", t.port)

		err := gnet.Run(t.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(false),
			gnet.WithTicker(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP source server failed",
				"component", "tcp_source",
				"port", t.port,
				"error", err)
		}
		errChan <- err
	}()

	select {
	case err := <-errChan:
		t.wg.Wait()
		if err == nil {
			err = errors.New("tcp source stopped during startup")
		}
		return err
	case <-t.booted:
		t.logger.Info("msg", "TCP source started",
			"component", "tcp_source",
			"address", addr)
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("tcp source did not start within 5s")
	}
}

// Stop closes the listener and every connection
func (t *TCPSource) Stop() {
	t.logger.Info("msg", "Stopping TCP source", "component", "tcp_source")

	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := (*engine).Stop(ctx); err != nil {
			t.logger.Warn("msg", "TCP engine stop error",
				"component", "tcp_source",
				"error", err)
		}
	}

	t.wg.Wait()
	t.logger.Info("msg", "TCP source stopped", "component", "tcp_source")
}

// Clients returns the connected producers that completed the handshake
func (t *TCPSource) Clients() []core.Client {
	if t.server == nil {
		return nil
	}
	t.server.mu.RLock()
	defer t.server.mu.RUnlock()

	clients := make([]core.Client, 0, len(t.server.clients))
	for _, sess := range t.server.clients {
		if sess.active() {
			clients = append(clients, sess.client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ConnectedAt.Before(clients[j].ConnectedAt)
	})
	return clients
}

// ClientFromMessage finds the connected producer that sent msg
func (t *TCPSource) ClientFromMessage(msg core.LogMessage) (core.Client, bool) {
	for _, c := range t.Clients() {
		if c.Pid == msg.Pid && c.Machine == msg.Machine && c.ExePath == msg.ExePath {
			return c, true
		}
	}
	return core.Client{}, false
}

// Disconnect closes the connection of the producer with the given handle
func (t *TCPSource) Disconnect(id string) error {
	if t.server == nil {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	t.server.mu.RLock()
	var target gnet.Conn
	for c, sess := range t.server.clients {
		if sess.client.ID == id {
			target = c
			break
		}
	}
	t.server.mu.RUnlock()

	if target == nil {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	t.logger.Info("msg", "Disconnecting client",
		"component", "tcp_source",
		"client_id", id)
	return target.CloseWithCallback(nil)
}

// DisconnectAll closes every producer connection
func (t *TCPSource) DisconnectAll() {
	if t.server == nil {
		return
	}
	t.server.mu.RLock()
	conns := make([]gnet.Conn, 0, len(t.server.clients))
	for c := range t.server.clients {
		conns = append(conns, c)
	}
	t.server.mu.RUnlock()

	for _, c := range conns {
		if err := c.CloseWithCallback(nil); err != nil {
			t.logger.Debug("msg", "Close failed",
				"component", "tcp_source",
				"error", err)
		}
	}
	t.logger.Info("msg", "Disconnected all clients",
		"component", "tcp_source",
		"count", len(conns))
}

// GetStats returns source statistics
func (t *TCPSource) GetStats() SourceStats {
	lastMessage, _ := t.lastMessageTime.Load().(time.Time)

	return SourceStats{
		Type:            "tcp",
		TotalMessages:   t.totalMessages.Load(),
		TotalFrames:     t.totalFrames.Load(),
		AbortedConns:    t.abortedConns.Load(),
		DiscardedChunks: t.discardedChunks.Load(),
		StartTime:       t.startTime,
		LastMessageTime: lastMessage,
		Details: map[string]any{
			"port":               t.port,
			"active_connections": t.activeConns.Load(),
			"net_limit":          t.netLimiter.GetStats(),
			"store":              t.Store.GetStats(),
		},
	}
}

// Handles gnet events
type tcpSourceServer struct {
	gnet.BuiltinEventEngine
	source  *TCPSource
	clients map[gnet.Conn]*session
	mu      sync.RWMutex
}

func (s *tcpSourceServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.source.engineMu.Lock()
	s.source.engine = &eng
	s.source.engineMu.Unlock()
	close(s.source.booted)

	s.source.logger.Debug("msg", "TCP source server booted",
		"component", "tcp_source",
		"port", s.source.port)
	return gnet.None
}

func (s *tcpSourceServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	remoteAddr := c.RemoteAddr().String()

	if reason := s.source.netLimiter.Check(remoteAddr); reason != limit.ReasonAllowed {
		s.source.logger.Warn("msg", "TCP connection net limited",
			"component", "tcp_source",
			"remote_addr", remoteAddr,
			"reason", reason)
		return nil, gnet.Close
	}
	s.source.netLimiter.AddConnection(remoteAddr)

	s.mu.Lock()
	s.clients[c] = newSession(remoteAddr)
	s.mu.Unlock()

	newCount := s.source.activeConns.Add(1)
	s.source.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_source",
		"remote_addr", remoteAddr,
		"active_connections", newCount)
	return nil, gnet.None
}

func (s *tcpSourceServer) OnClose(c gnet.Conn, err error) gnet.Action {
	remoteAddr := c.RemoteAddr().String()

	s.mu.Lock()
	sess, exists := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if !exists {
		// rejected in OnOpen
		return gnet.None
	}

	s.source.netLimiter.RemoveConnection(remoteAddr)
	if sess.chunks > 0 {
		s.source.discardedChunks.Add(uint64(sess.chunks))
	}
	if sess.active() {
		s.source.Store.ClientDisconnected(sess.client)
	}

	newCount := s.source.activeConns.Add(-1)
	s.source.logger.Info("msg", "TCP connection closed",
		"component", "tcp_source",
		"remote_addr", remoteAddr,
		"client_id", sess.client.ID,
		"pid", sess.client.Pid,
		"machine", sess.client.Machine,
		"discarded_chunks", sess.chunks,
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *tcpSourceServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	sess, exists := s.clients[c]
	s.mu.RUnlock()

	if !exists {
		return gnet.Close
	}

	for c.InboundBuffered() >= wire.FrameSize {
		buf, err := c.Next(wire.FrameSize)
		if err != nil {
			s.source.logger.Error("msg", "Error reading from connection",
				"component", "tcp_source",
				"error", err)
			return gnet.Close
		}
		s.source.totalFrames.Add(1)

		frame, err := wire.Decode(buf)
		if err != nil {
			return s.abort(c, sess, err)
		}

		// Readers of Clients() share the session
		s.mu.Lock()
		wasActive := sess.active()
		msg, err := sess.handle(frame)
		handshake := !wasActive && sess.active()
		client := sess.client
		s.mu.Unlock()

		if err != nil {
			return s.abort(c, sess, err)
		}

		if handshake {
			s.source.Store.ClientConnected(client)
			s.source.logger.Info("msg", "Client connected",
				"component", "tcp_source",
				"client_id", client.ID,
				"remote_addr", client.RemoteAddr,
				"pid", client.Pid,
				"machine", client.Machine,
				"exe_path", client.ExePath,
				"version", client.Version)
		}

		if msg != nil {
			s.source.Store.Add(*msg)
			s.source.totalMessages.Add(1)
			s.source.lastMessageTime.Store(time.Now())
		}
	}

	return gnet.None
}

func (s *tcpSourceServer) abort(c gnet.Conn, sess *session, err error) gnet.Action {
	s.source.abortedConns.Add(1)
	s.source.logger.Warn("msg", "Aborting connection",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"client_id", sess.client.ID,
		"error", err)
	return gnet.Close
}

func (s *tcpSourceServer) OnTick() (time.Duration, gnet.Action) {
	s.source.Store.Tick()
	return store.TickInterval, gnet.None
}
