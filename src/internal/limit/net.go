// FILE: logmonitor/src/internal/limit/net.go
package limit

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logmonitor/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// DenialReason indicates why a connection or request was denied
type DenialReason string

const (
	ReasonAllowed           DenialReason = ""
	ReasonBlacklisted       DenialReason = "IP denied by blacklist"
	ReasonNotWhitelisted    DenialReason = "IP not in whitelist"
	ReasonRateLimited       DenialReason = "Rate limit exceeded"
	ReasonConnectionLimited DenialReason = "Connection limit exceeded"
	ReasonInvalidIP         DenialReason = "Invalid IP address"
)

// Idle per-IP state older than this is dropped
const staleTimeout = 5 * time.Minute

// NetLimiter applies IP access lists, a per-IP accept rate and a per-IP
// connection cap. A nil *NetLimiter allows everything.
type NetLimiter struct {
	config config.NetLimitConfig
	logger *log.Logger
	now    func() time.Time

	ipWhitelist []*net.IPNet
	ipBlacklist []*net.IPNet

	mu          sync.Mutex
	ips         map[string]*ipState
	lastCleanup time.Time

	// Statistics
	totalChecks        atomic.Uint64
	blockedByBlacklist atomic.Uint64
	blockedByWhitelist atomic.Uint64
	blockedByRateLimit atomic.Uint64
	blockedByConnLimit atomic.Uint64
	blockedByInvalidIP atomic.Uint64
}

type ipState struct {
	limiter     *rate.Limiter
	connections int64
	lastSeen    time.Time
}

// NewNetLimiter returns nil when nothing is configured
func NewNetLimiter(cfg *config.NetLimitConfig, logger *log.Logger) *NetLimiter {
	if cfg == nil {
		return nil
	}
	hasACL := len(cfg.IPWhitelist) > 0 || len(cfg.IPBlacklist) > 0
	if !hasACL && !cfg.Enabled {
		return nil
	}

	l := &NetLimiter{
		config:      *cfg,
		logger:      logger,
		now:         time.Now,
		ips:         make(map[string]*ipState),
		lastCleanup: time.Now(),
	}
	l.ipWhitelist = l.parseIPList(cfg.IPWhitelist, "whitelist")
	l.ipBlacklist = l.parseIPList(cfg.IPBlacklist, "blacklist")

	logger.Info("msg", "Net limiter initialized",
		"component", "netlimit",
		"acl_enabled", hasACL,
		"rate_limiting", cfg.Enabled,
		"whitelist_rules", len(l.ipWhitelist),
		"blacklist_rules", len(l.ipBlacklist),
		"requests_per_second", cfg.RequestsPerSecond,
		"burst_size", cfg.BurstSize,
		"max_connections_per_ip", cfg.MaxConnectionsPerIP)
	return l
}

func (l *NetLimiter) parseIPList(entries []string, listType string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if ipNet := parseIPEntry(entry); ipNet != nil {
			nets = append(nets, ipNet)
			continue
		}
		l.logger.Warn("msg", "Skipping invalid IP "+listType+" entry",
			"component", "netlimit",
			"entry", entry)
	}
	return nets
}

func parseIPEntry(entry string) *net.IPNet {
	if strings.Contains(entry, "/") {
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil
		}
		return ipNet
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}

// hostOf extracts the IP part of a host:port string
func hostOf(remoteAddr string) (string, net.IP) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return host, net.ParseIP(host)
}

func (l *NetLimiter) checkIPAccess(ip net.IP) DenialReason {
	for _, ipNet := range l.ipBlacklist {
		if ipNet.Contains(ip) {
			l.blockedByBlacklist.Add(1)
			return ReasonBlacklisted
		}
	}

	if len(l.ipWhitelist) > 0 {
		for _, ipNet := range l.ipWhitelist {
			if ipNet.Contains(ip) {
				return ReasonAllowed
			}
		}
		l.blockedByWhitelist.Add(1)
		return ReasonNotWhitelisted
	}
	return ReasonAllowed
}

// Check decides whether a new connection or request from remoteAddr is admitted.
// It consumes one token of the address's rate budget.
func (l *NetLimiter) Check(remoteAddr string) DenialReason {
	if l == nil {
		return ReasonAllowed
	}
	l.totalChecks.Add(1)

	host, ip := hostOf(remoteAddr)
	if ip == nil {
		l.blockedByInvalidIP.Add(1)
		l.logger.Warn("msg", "Failed to parse remote address",
			"component", "netlimit",
			"remote_addr", remoteAddr)
		return ReasonInvalidIP
	}

	if reason := l.checkIPAccess(ip); reason != ReasonAllowed {
		l.logger.Warn("msg", "IP denied by access list",
			"component", "netlimit",
			"ip", host,
			"reason", reason)
		return reason
	}

	if !l.config.Enabled {
		return ReasonAllowed
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeCleanupLocked()

	state := l.stateLocked(host)
	if l.config.MaxConnectionsPerIP > 0 && state.connections >= l.config.MaxConnectionsPerIP {
		l.blockedByConnLimit.Add(1)
		return ReasonConnectionLimited
	}
	if state.limiter != nil && !state.limiter.AllowN(l.now(), 1) {
		l.blockedByRateLimit.Add(1)
		return ReasonRateLimited
	}
	return ReasonAllowed
}

// CheckHTTP adapts Check to an HTTP status code
func (l *NetLimiter) CheckHTTP(remoteAddr string) (allowed bool, statusCode int, message string) {
	switch reason := l.Check(remoteAddr); reason {
	case ReasonAllowed:
		return true, 0, ""
	case ReasonRateLimited, ReasonConnectionLimited:
		return false, 429, string(reason)
	default:
		return false, 403, string(reason)
	}
}

func (l *NetLimiter) stateLocked(host string) *ipState {
	state, ok := l.ips[host]
	if !ok {
		state = &ipState{}
		if l.config.RequestsPerSecond > 0 {
			burst := int(l.config.BurstSize)
			if burst < 1 {
				burst = 1
			}
			state.limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), burst)
		}
		l.ips[host] = state
	}
	state.lastSeen = l.now()
	return state
}

// AddConnection tracks an admitted connection for the per-IP cap
func (l *NetLimiter) AddConnection(remoteAddr string) {
	if l == nil || !l.config.Enabled {
		return
	}
	host, ip := hostOf(remoteAddr)
	if ip == nil {
		return
	}

	l.mu.Lock()
	state := l.stateLocked(host)
	state.connections++
	count := state.connections
	l.mu.Unlock()

	l.logger.Debug("msg", "Connection added",
		"component", "netlimit",
		"ip", host,
		"connections", count)
}

// RemoveConnection releases a connection tracked by AddConnection
func (l *NetLimiter) RemoveConnection(remoteAddr string) {
	if l == nil || !l.config.Enabled {
		return
	}
	host, _ := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.ips[host]
	if !ok {
		return
	}
	if state.connections > 0 {
		state.connections--
	}
	state.lastSeen = l.now()

	l.logger.Debug("msg", "Connection removed",
		"component", "netlimit",
		"ip", host,
		"connections", state.connections)
}

// Connections returns the tracked connection count for the IP of remoteAddr
func (l *NetLimiter) Connections(remoteAddr string) int64 {
	if l == nil {
		return 0
	}
	host, _ := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()
	if state, ok := l.ips[host]; ok {
		return state.connections
	}
	return 0
}

// Removes idle per-IP state, at most every 30 seconds
func (l *NetLimiter) maybeCleanupLocked() {
	now := l.now()
	if now.Sub(l.lastCleanup) < 30*time.Second {
		return
	}
	l.lastCleanup = now

	cleaned := 0
	for host, state := range l.ips {
		if state.connections <= 0 && now.Sub(state.lastSeen) > staleTimeout {
			delete(l.ips, host)
			cleaned++
		}
	}

	if cleaned > 0 {
		l.logger.Debug("msg", "Cleaned up stale IP limiters",
			"component", "netlimit",
			"cleaned", cleaned,
			"remaining", len(l.ips))
	}
}

// GetStats returns net limiter statistics
func (l *NetLimiter) GetStats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}

	l.mu.Lock()
	activeIPs := len(l.ips)
	var totalConnections int64
	for _, state := range l.ips {
		totalConnections += state.connections
	}
	l.mu.Unlock()

	totalBlocked := l.blockedByBlacklist.Load() +
		l.blockedByWhitelist.Load() +
		l.blockedByRateLimit.Load() +
		l.blockedByConnLimit.Load() +
		l.blockedByInvalidIP.Load()

	return map[string]any{
		"enabled":       true,
		"total_checks":  l.totalChecks.Load(),
		"total_blocked": totalBlocked,
		"blocked_breakdown": map[string]uint64{
			"blacklist":  l.blockedByBlacklist.Load(),
			"whitelist":  l.blockedByWhitelist.Load(),
			"rate_limit": l.blockedByRateLimit.Load(),
			"conn_limit": l.blockedByConnLimit.Load(),
			"invalid_ip": l.blockedByInvalidIP.Load(),
		},
		"active_ips":        activeIPs,
		"total_connections": totalConnections,
	}
}
