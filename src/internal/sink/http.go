// FILE: logmonitor/src/internal/sink/http.go
package sink

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logmonitor/src/internal/auth"
	"logmonitor/src/internal/config"
	"logmonitor/src/internal/core"
	"logmonitor/src/internal/filter"
	"logmonitor/src/internal/format"
	"logmonitor/src/internal/limit"
	"logmonitor/src/internal/source"
	"logmonitor/src/internal/store"
	"logmonitor/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

const (
	defaultPageSize = 100
	maxPageSize     = 10000

	clearPath      = "/clear"
	snapshotPath   = "/snapshot"
	filtersPath    = "/filters"
	highlightsPath = "/highlights"
)

// HTTPSink serves the store over HTTP: paged reads, a Server-Sent Events
// change stream and a few control endpoints
type HTTPSink struct {
	// Configuration reference (NOT a copy)
	config *config.HTTPConfig

	store     *store.Store
	clients   ClientManager // nil for file models
	rules     *filter.Repository
	formatter format.Formatter

	// Runtime
	server        *fasthttp.Server
	listener      net.Listener
	activeClients atomic.Int64
	startTime     time.Time
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	logger        *log.Logger

	// Security components
	authenticator *auth.Authenticator
	netLimiter    *limit.NetLimiter

	// Statistics
	totalRequests  atomic.Uint64
	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
	authFailures   atomic.Uint64
	authSuccesses  atomic.Uint64
}

// NewHTTPSink creates the API for st. clients may be nil when the model is not live.
func NewHTTPSink(cfg *config.HTTPConfig, st *store.Store, clients ClientManager, rules *filter.Repository,
	formatter format.Formatter, logger *log.Logger) (*HTTPSink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("HTTP config cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("HTTP sink requires a store")
	}
	if formatter == nil {
		var err error
		if formatter, err = format.New("", format.Options{}, logger); err != nil {
			return nil, err
		}
	}

	h := &HTTPSink{
		config:    cfg,
		store:     st,
		clients:   clients,
		rules:     rules,
		formatter: formatter,
		startTime: time.Now(),
		done:      make(chan struct{}),
		logger:    logger,
	}
	h.lastProcessed.Store(time.Time{})

	h.netLimiter = limit.NewNetLimiter(cfg.NetLimit, logger)

	authenticator, err := auth.New(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}
	if authenticator != nil {
		h.authenticator = authenticator
		logger.Info("msg", "Authentication enabled",
			"component", "http_sink",
			"type", authenticator.Type())
	}

	return h, nil
}

// Start listens on the configured address and serves in the background
func (h *HTTPSink) Start() error {
	addr := net.JoinHostPort(h.config.Host, strconv.FormatInt(h.config.Port, 10))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	h.listener = ln

	h.server = &fasthttp.Server{
		Name:             fmt.Sprintf("logmonitor/%s", version.Short()),
		Handler:          h.requestHandler,
		DisableKeepalive: false,
		Logger:           compat.NewFastHTTPAdapter(h.logger),
		ReadTimeout:      30 * time.Second,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("msg", "HTTP server started",
			"component", "http_sink",
			"address", ln.Addr().String(),
			"status_path", h.config.StatusPath,
			"messages_path", h.config.MessagesPath,
			"stream_path", h.config.StreamPath,
			"clients_path", h.config.ClientsPath)

		if err := h.server.Serve(ln); err != nil {
			h.logger.Error("msg", "HTTP server failed",
				"component", "http_sink",
				"error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address
func (h *HTTPSink) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop ends every stream and shuts the server down
func (h *HTTPSink) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info("msg", "Stopping HTTP sink", "component", "http_sink")

		// Signal all stream writers to stop
		close(h.done)

		if h.server != nil {
			if err := h.server.Shutdown(); err != nil {
				h.logger.Warn("msg", "HTTP shutdown error",
					"component", "http_sink",
					"error", err)
			}
		}
		h.wg.Wait()

		h.logger.Info("msg", "HTTP sink stopped", "component", "http_sink")
	})
}

func (h *HTTPSink) GetStats() SinkStats {
	lastProc, _ := h.lastProcessed.Load().(time.Time)

	var authStats map[string]any
	if h.authenticator != nil {
		authStats = h.authenticator.GetStats()
		authStats["request_failures"] = h.authFailures.Load()
		authStats["request_successes"] = h.authSuccesses.Load()
	}

	return SinkStats{
		Type:              "http",
		TotalProcessed:    h.totalProcessed.Load(),
		ActiveConnections: h.activeClients.Load(),
		StartTime:         h.startTime,
		LastProcessed:     lastProc,
		Details: map[string]any{
			"port":           h.config.Port,
			"buffer_size":    h.config.BufferSize,
			"total_requests": h.totalRequests.Load(),
			"endpoints": map[string]string{
				"status":   h.config.StatusPath,
				"messages": h.config.MessagesPath,
				"stream":   h.config.StreamPath,
				"clients":  h.config.ClientsPath,
			},
			"net_limit": h.netLimiter.GetStats(),
			"auth":      authStats,
		},
	}
}

func (h *HTTPSink) requestHandler(ctx *fasthttp.RequestCtx) {
	h.totalRequests.Add(1)
	remoteAddr := ctx.RemoteAddr().String()

	if allowed, statusCode, message := h.netLimiter.CheckHTTP(remoteAddr); !allowed {
		h.logger.Warn("msg", "Net limited",
			"component", "http_sink",
			"remote_addr", remoteAddr,
			"status_code", statusCode,
			"error", message)
		h.writeError(ctx, statusCode, message)
		return
	}

	path := string(ctx.Path())

	// Status endpoint doesn't require auth
	if path == h.config.StatusPath {
		if !h.requireMethod(ctx, fasthttp.MethodGet) {
			return
		}
		h.handleStatus(ctx)
		return
	}

	session, err := h.authenticator.AuthenticateHTTP(string(ctx.Request.Header.Peek("Authorization")), remoteAddr)
	if err != nil {
		h.authFailures.Add(1)
		h.logger.Warn("msg", "Authentication failed",
			"component", "http_sink",
			"remote_addr", remoteAddr,
			"error", err)

		if errors.Is(err, auth.ErrRateLimited) {
			h.writeError(ctx, fasthttp.StatusTooManyRequests, "Too many failed attempts")
			return
		}
		ctx.Response.Header.Set("WWW-Authenticate", h.authenticator.Challenge())
		h.writeError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
		return
	}
	if h.authenticator != nil {
		h.authSuccesses.Add(1)
	}

	switch {
	case path == h.config.StreamPath:
		if !h.requireMethod(ctx, fasthttp.MethodGet) {
			break
		}
		// The stream writer owns the session from here
		h.handleStream(ctx, session)
		return
	case path == h.config.MessagesPath:
		if h.requireMethod(ctx, fasthttp.MethodGet) {
			h.handleMessages(ctx)
		}
	case path == h.config.ClientsPath:
		if h.requireMethod(ctx, fasthttp.MethodGet) {
			h.handleClients(ctx)
		}
	case strings.HasPrefix(path, h.config.ClientsPath+"/"):
		if h.requireMethod(ctx, fasthttp.MethodDelete) {
			h.handleDisconnect(ctx, strings.TrimPrefix(path, h.config.ClientsPath+"/"))
		}
	case path == clearPath:
		if h.requireMethod(ctx, fasthttp.MethodPost) {
			h.handleClear(ctx, session)
		}
	case path == snapshotPath:
		if h.requireMethod(ctx, fasthttp.MethodPost) {
			h.handleSnapshot(ctx)
		}
	case path == filtersPath:
		if h.requireMethod(ctx, fasthttp.MethodGet) {
			h.handleFilters(ctx)
		}
	case path == highlightsPath:
		if h.requireMethod(ctx, fasthttp.MethodGet) {
			h.handleHighlights(ctx)
		}
	default:
		h.writeError(ctx, fasthttp.StatusNotFound, "Not Found")
	}

	h.authenticator.EndSession(session.ID)
}

func (h *HTTPSink) requireMethod(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	h.writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method Not Allowed")
	return false
}

func (h *HTTPSink) writeJSON(ctx *fasthttp.RequestCtx, statusCode int, v any) {
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		h.logger.Error("msg", "Failed to encode response",
			"component", "http_sink",
			"error", err)
	}
}

func (h *HTTPSink) writeError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	h.writeJSON(ctx, statusCode, map[string]string{"error": message})
}

func (h *HTTPSink) handleStatus(ctx *fasthttp.RequestCtx) {
	opts := h.store.Options()

	var authStats any = map[string]any{"enabled": false}
	if h.authenticator != nil {
		authStats = h.authenticator.GetStats()
	}

	status := map[string]any{
		"service": "logmonitor",
		"version": version.Short(),
		"live":    h.clients != nil,
		"server": map[string]any{
			"type":           "http",
			"port":           h.config.Port,
			"active_streams": h.activeClients.Load(),
			"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		},
		"store": map[string]any{
			"rows":         h.store.Len(),
			"server_mode":  opts.ServerMode,
			"max_messages": opts.MaxMessages,
			"break_lines":  opts.BreakLines,
		},
		"statistics":     h.store.Statistics(),
		"running_counts": h.store.RunningCounts(),
		"features": map[string]any{
			"auth":      authStats,
			"net_limit": h.netLimiter.GetStats(),
		},
	}

	h.writeJSON(ctx, fasthttp.StatusOK, status)
}

// messageRow is one row of a messages response
type messageRow struct {
	Index int `json:"index"`
	core.LogMessage
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
}

func viewOptions(args *fasthttp.Args) filter.ViewOptions {
	opts := filter.ViewOptions{
		Filter:     string(args.Peek("filter")),
		Highlights: string(args.Peek("highlight")),
		Search:     string(args.Peek("search")),
	}
	if sev := string(args.Peek("severity")); sev != "" {
		opts.Severities = strings.Split(sev, ",")
	}
	return opts
}

func queryInt(args *fasthttp.Args, key string, def int) (int, error) {
	raw := string(args.Peek(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

func (h *HTTPSink) buildView(ctx *fasthttp.RequestCtx) (*filter.View, bool) {
	view, err := filter.BuildView(h.rules, viewOptions(ctx.QueryArgs()))
	if err != nil {
		status := fasthttp.StatusBadRequest
		if errors.Is(err, filter.ErrNotFound) {
			status = fasthttp.StatusNotFound
		}
		h.writeError(ctx, status, err.Error())
		return nil, false
	}
	return view, true
}

func (h *HTTPSink) handleMessages(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	offset, err := queryInt(args, "offset", 0)
	if err != nil {
		h.writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(args, "limit", defaultPageSize)
	if err != nil {
		h.writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	view, ok := h.buildView(ctx)
	if !ok {
		return
	}

	messages := h.store.Messages()
	rows := make([]messageRow, 0, min(limit, len(messages)))
	matched := 0
	for i := range messages {
		msg := &messages[i]
		if !view.Accepts(msg) {
			continue
		}
		matched++
		if matched <= offset || len(rows) >= limit {
			continue
		}
		row := messageRow{Index: i, LogMessage: *msg}
		fg, bg := view.Colors(msg)
		if fg != nil {
			row.Foreground = fg.Hex()
		}
		if bg != nil {
			row.Background = bg.Hex()
		}
		rows = append(rows, row)
	}

	h.writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"total":    matched,
		"offset":   offset,
		"limit":    limit,
		"messages": rows,
	})
}

func (h *HTTPSink) handleClients(ctx *fasthttp.RequestCtx) {
	clients := []core.Client{}
	if h.clients != nil {
		clients = append(clients, h.clients.Clients()...)
	}
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]any{
		"live":    h.clients != nil,
		"clients": clients,
	})
}

func (h *HTTPSink) handleDisconnect(ctx *fasthttp.RequestCtx, id string) {
	if h.clients == nil {
		h.writeError(ctx, fasthttp.StatusConflict, "model is not live")
		return
	}
	if err := h.clients.Disconnect(id); err != nil {
		if errors.Is(err, source.ErrClientNotFound) {
			h.writeError(ctx, fasthttp.StatusNotFound, err.Error())
			return
		}
		h.writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"disconnected": id})
}

func (h *HTTPSink) handleClear(ctx *fasthttp.RequestCtx, session *auth.Session) {
	rows := h.store.Len()
	h.store.Clear()
	h.logger.Info("msg", "Store cleared over HTTP",
		"component", "http_sink",
		"username", session.Username,
		"rows", rows)
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]int{"cleared": rows})
}

func (h *HTTPSink) handleSnapshot(ctx *fasthttp.RequestCtx) {
	path, err := h.store.Save()
	if err != nil {
		if errors.Is(err, store.ErrNoAutosaver) {
			h.writeError(ctx, fasthttp.StatusConflict, err.Error())
			return
		}
		h.logger.Error("msg", "Manual snapshot failed",
			"component", "http_sink",
			"error", err)
		h.writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"path": path})
}

func conditionStrings(conditions []filter.Condition) []string {
	out := make([]string, len(conditions))
	for i, c := range conditions {
		out[i] = c.String()
	}
	return out
}

func (h *HTTPSink) handleFilters(ctx *fasthttp.RequestCtx) {
	filters := []map[string]any{}
	if h.rules != nil {
		for _, name := range h.rules.FilterNames() {
			f, ok := h.rules.Filter(name)
			if !ok {
				continue
			}
			filters = append(filters, map[string]any{
				"name":       f.Name,
				"juncture":   f.Juncture.String(),
				"conditions": conditionStrings(f.Conditions),
			})
		}
	}
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]any{"filters": filters})
}

func (h *HTTPSink) handleHighlights(ctx *fasthttp.RequestCtx) {
	sets := []map[string]any{}
	if h.rules != nil {
		for _, name := range h.rules.HighlightSetNames() {
			s, ok := h.rules.HighlightSet(name)
			if !ok {
				continue
			}
			highlights := make([]map[string]any, len(s.Highlights))
			for i, hl := range s.Highlights {
				entry := map[string]any{
					"juncture":   hl.Juncture.String(),
					"conditions": conditionStrings(hl.Conditions),
				}
				if hl.Foreground != nil {
					entry["fg"] = hl.Foreground.Hex()
				}
				if hl.Background != nil {
					entry["bg"] = hl.Background.Hex()
				}
				highlights[i] = entry
			}
			sets = append(sets, map[string]any{"name": s.Name, "highlights": highlights})
		}
	}
	h.writeJSON(ctx, fasthttp.StatusOK, map[string]any{"highlights": sets})
}

func (h *HTTPSink) handleStream(ctx *fasthttp.RequestCtx, session *auth.Session) {
	view, ok := h.buildView(ctx)
	if !ok {
		h.authenticator.EndSession(session.ID)
		return
	}

	select {
	case <-h.done:
		h.authenticator.EndSession(session.ID)
		h.writeError(ctx, fasthttp.StatusServiceUnavailable, "server shutting down")
		return
	default:
	}

	// Track connection for net limiting
	remoteAddr := ctx.RemoteAddr().String()
	h.netLimiter.AddConnection(remoteAddr)

	// Set SSE headers
	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	// Released by the stream writer; fasthttp always invokes it
	h.wg.Add(1)
	streamFunc := func(w *bufio.Writer) {
		events, unsubscribe := h.store.Subscribe(int(h.config.BufferSize))
		connectCount := h.activeClients.Add(1)

		defer func() {
			unsubscribe()
			h.netLimiter.RemoveConnection(remoteAddr)
			h.authenticator.EndSession(session.ID)
			disconnectCount := h.activeClients.Add(-1)
			h.logger.Debug("msg", "HTTP stream client disconnected",
				"component", "http_sink",
				"remote_addr", remoteAddr,
				"username", session.Username,
				"active_clients", disconnectCount)
			h.wg.Done()
		}()

		h.logger.Debug("msg", "HTTP stream client connected",
			"component", "http_sink",
			"remote_addr", remoteAddr,
			"username", session.Username,
			"auth_method", session.Method,
			"active_clients", connectCount)

		writeEvent(w, "connected", map[string]any{
			"session_id":  session.ID,
			"username":    session.Username,
			"auth_method": session.Method,
			"live":        h.clients != nil,
			"rows":        h.store.Len(),
			"formatter":   h.formatter.Name(),
		})
		if err := w.Flush(); err != nil {
			return
		}

		var tickerChan <-chan time.Time
		if hb := h.config.Heartbeat; hb != nil && hb.Enabled && hb.IntervalSeconds > 0 {
			ticker := time.NewTicker(time.Duration(hb.IntervalSeconds) * time.Second)
			tickerChan = ticker.C
			defer ticker.Stop()
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.writeStoreEvent(w, ev, view)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-tickerChan:
				if h.authenticator != nil && !h.authenticator.ValidateSession(session.ID) {
					writeEvent(w, "disconnect", map[string]string{"reason": "session_expired"})
					w.Flush()
					return
				}
				writeEvent(w, "heartbeat", h.heartbeat())
				if err := w.Flush(); err != nil {
					return
				}

			case <-h.done:
				writeEvent(w, "disconnect", map[string]string{"reason": "server_shutdown"})
				w.Flush()
				return
			}
		}
	}

	ctx.SetBodyStreamWriter(streamFunc)
}

// writeStoreEvent renders one store notification. Inserted rows the view
// rejects are skipped.
func (h *HTTPSink) writeStoreEvent(w *bufio.Writer, ev store.Event, view *filter.View) {
	switch ev.Type {
	case store.EventInserted:
		for i := range ev.Messages {
			msg := &ev.Messages[i]
			if !view.Accepts(msg) {
				continue
			}
			if err := h.writeMessage(w, ev.First+i, msg); err != nil {
				h.logger.Error("msg", "Failed to format message",
					"component", "http_sink",
					"error", err)
				continue
			}
			h.totalProcessed.Add(1)
			h.lastProcessed.Store(time.Now())
		}

	case store.EventClientConnected, store.EventClientDisconnected:
		writeEvent(w, ev.Type.String(), ev.Client)

	case store.EventAutosaved:
		writeEvent(w, ev.Type.String(), map[string]string{"path": ev.Path})

	case store.EventRemoved:
		writeEvent(w, ev.Type.String(), map[string]int{"first": ev.First, "last": ev.Last, "rows": h.store.Len()})

	default:
		writeEvent(w, ev.Type.String(), map[string]int{"rows": h.store.Len()})
	}
}

// writeMessage sends a message event; each formatted line becomes a data line
func (h *HTTPSink) writeMessage(w *bufio.Writer, index int, msg *core.LogMessage) error {
	formatted, err := h.formatter.Format(*msg)
	if err != nil {
		return err
	}
	formatted = bytes.TrimSuffix(formatted, []byte{'\n'})

	fmt.Fprintf(w, "id: %d\nevent: message\n", index)
	for _, line := range bytes.Split(formatted, []byte{'\n'}) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
	return nil
}

func writeEvent(w *bufio.Writer, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func (h *HTTPSink) heartbeat() map[string]any {
	hb := map[string]any{
		"time":           time.Now().UTC().Format(time.RFC3339),
		"active_clients": h.activeClients.Load(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}
	if h.config.Heartbeat.IncludeStats {
		hb["statistics"] = h.store.Statistics()
		hb["running_counts"] = h.store.RunningCounts()
	}
	return hb
}
