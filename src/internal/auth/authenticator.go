// FILE: logmonitor/src/internal/auth/authenticator.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logmonitor/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxAuthTrackedIPs = 10000

// Sessions idle longer than this are dropped
const sessionIdleTimeout = 30 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// Authenticator validates HTTP API credentials
type Authenticator struct {
	config       *config.AuthConfig
	logger       *log.Logger
	basicUsers   map[string]string // username -> bcrypt hash
	bearerTokens [][]byte
	jwtParser    *jwt.Parser
	jwtKeyFunc   jwt.Keyfunc
	failureDelay time.Duration
	now          func() time.Time

	// Session tracking
	sessions  map[string]*Session
	sessionMu sync.Mutex
	lastSweep time.Time

	// Statistics
	failures  atomic.Uint64
	successes atomic.Uint64
	blocked   atomic.Uint64

	// Brute-force protection
	ipAuthAttempts map[string]*ipAuthState
	authMu         sync.Mutex
}

// Per-IP auth attempt tracking
type ipAuthState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Session represents an authenticated client
type Session struct {
	ID           string
	Username     string
	Method       string // none, basic, bearer, jwt
	RemoteAddr   string
	CreatedAt    time.Time
	LastActivity time.Time
	Metadata     map[string]any
}

// New creates an authenticator; it returns nil when auth is disabled
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}

	a := &Authenticator{
		config:         cfg,
		logger:         logger,
		basicUsers:     make(map[string]string),
		failureDelay:   500 * time.Millisecond,
		now:            time.Now,
		sessions:       make(map[string]*Session),
		ipAuthAttempts: make(map[string]*ipAuthState),
	}

	switch cfg.Type {
	case "basic":
		if cfg.Basic == nil {
			return nil, fmt.Errorf("basic auth type specified but config missing")
		}
		for _, user := range cfg.Basic.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}

	case "bearer":
		if cfg.Bearer == nil {
			return nil, fmt.Errorf("bearer auth type specified but config missing")
		}
		for _, token := range cfg.Bearer.Tokens {
			a.bearerTokens = append(a.bearerTokens, []byte(token))
		}

		if jwtCfg := cfg.Bearer.JWT; jwtCfg != nil && jwtCfg.SigningKey != "" {
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
				jwt.WithLeeway(5 * time.Second),
				jwt.WithExpirationRequired(),
			}
			if jwtCfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(jwtCfg.Issuer))
			}
			if jwtCfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(jwtCfg.Audience))
			}
			a.jwtParser = jwt.NewParser(opts...)

			key := []byte(jwtCfg.SigningKey)
			a.jwtKeyFunc = func(token *jwt.Token) (any, error) {
				return key, nil
			}
		}

	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}

	logger.Info("msg", "Authenticator initialized",
		"component", "auth",
		"type", cfg.Type,
		"basic_users", len(a.basicUsers),
		"static_tokens", len(a.bearerTokens),
		"jwt", a.jwtParser != nil)

	return a, nil
}

// Type returns the configured auth type
func (a *Authenticator) Type() string {
	if a == nil {
		return "none"
	}
	return a.config.Type
}

// Challenge returns the WWW-Authenticate header value for 401 responses
func (a *Authenticator) Challenge() string {
	if a == nil {
		return ""
	}
	if a.config.Type == "basic" {
		realm := "Restricted"
		if a.config.Basic != nil && a.config.Basic.Realm != "" {
			realm = a.config.Basic.Realm
		}
		return fmt.Sprintf("Basic realm=%q", realm)
	}
	return "Bearer"
}

func ipOf(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

// Rejects addresses blocked after repeated failures
func (a *Authenticator) checkBlocked(remoteAddr string) error {
	ip := ipOf(remoteAddr)
	now := a.now()

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	if !exists || !now.Before(state.blockedUntil) {
		return nil
	}

	remaining := state.blockedUntil.Sub(now)
	a.logger.Warn("msg", "IP temporarily blocked",
		"component", "auth",
		"ip", ip,
		"remaining", remaining)
	return fmt.Errorf("%w: blocked for %v", ErrRateLimited, remaining.Round(time.Second))
}

// Evicts the oldest of a small sample of tracked IPs
func (a *Authenticator) evictOldestLocked(now time.Time) {
	const sampleSize = 20
	var oldestIP string
	oldestTime := now

	sampled := 0
	for ip, state := range a.ipAuthAttempts {
		if state.lastAttempt.Before(oldestTime) {
			oldestIP = ip
			oldestTime = state.lastAttempt
		}
		sampled++
		if sampled >= sampleSize {
			break
		}
	}

	if oldestIP != "" {
		delete(a.ipAuthAttempts, oldestIP)
	}
}

// recordFailure spends one token of the address's failure budget and blocks
// the address once the budget is exhausted
func (a *Authenticator) recordFailure(remoteAddr string) {
	ip := ipOf(remoteAddr)
	now := a.now()

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	if !exists {
		if len(a.ipAuthAttempts) >= maxAuthTrackedIPs {
			a.evictOldestLocked(now)
		}

		// 5 failures per minute, burst of 3
		state = &ipAuthState{
			limiter: rate.NewLimiter(rate.Every(12*time.Second), 3),
		}
		a.ipAuthAttempts[ip] = state
	}
	state.lastAttempt = now

	if state.limiter.AllowN(now, 1) {
		return
	}

	state.failCount++
	// Progressive blocking: 2^failCount minutes, capped at 64
	blockMinutes := 1 << min(state.failCount, 6)
	state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)
	a.blocked.Add(1)

	a.logger.Warn("msg", "Too many authentication failures, blocking IP",
		"component", "auth",
		"ip", ip,
		"fail_count", state.failCount,
		"block_duration", time.Duration(blockMinutes)*time.Minute)
}

func (a *Authenticator) recordSuccess(remoteAddr string) {
	ip := ipOf(remoteAddr)

	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[ip]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

// AuthenticateHTTP validates an Authorization header value
func (a *Authenticator) AuthenticateHTTP(authHeader, remoteAddr string) (*Session, error) {
	if a == nil {
		return &Session{
			ID:         generateSessionID(),
			Username:   "anonymous",
			Method:     "none",
			RemoteAddr: remoteAddr,
			CreatedAt:  time.Now(),
		}, nil
	}

	if err := a.checkBlocked(remoteAddr); err != nil {
		a.failures.Add(1)
		return nil, err
	}

	var session *Session
	var err error

	switch a.config.Type {
	case "basic":
		session, err = a.authenticateBasic(authHeader, remoteAddr)
	case "bearer":
		session, err = a.authenticateBearer(authHeader, remoteAddr)
	default:
		err = fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		a.failures.Add(1)
		if a.failureDelay > 0 {
			time.Sleep(a.failureDelay)
		}
		return nil, err
	}

	a.recordSuccess(remoteAddr)
	a.successes.Add(1)
	a.storeSession(session)
	return session, nil
}

func (a *Authenticator) authenticateBasic(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, fmt.Errorf("invalid basic auth header")
	}

	payload, err := base64.StdEncoding.DecodeString(authHeader[6:])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding")
	}

	username, password, ok := strings.Cut(string(payload), ":")
	if !ok {
		return nil, fmt.Errorf("invalid credentials format")
	}

	expectedHash, exists := a.basicUsers[username]
	if !exists {
		// Perform bcrypt anyway to keep timing uniform
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy.hash.to.prevent.timing.attacks"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		ID:         generateSessionID(),
		Username:   username,
		Method:     "basic",
		RemoteAddr: remoteAddr,
	}, nil
}

func (a *Authenticator) authenticateBearer(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("invalid bearer auth header")
	}
	token := strings.TrimSpace(authHeader[7:])

	for _, static := range a.bearerTokens {
		if subtle.ConstantTimeCompare(static, []byte(token)) == 1 {
			return &Session{
				ID:         generateSessionID(),
				Method:     "bearer",
				RemoteAddr: remoteAddr,
				Metadata:   map[string]any{"token_type": "static"},
			}, nil
		}
	}

	if a.jwtParser == nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{}
	parsed, err := a.jwtParser.ParseWithClaims(token, claims, a.jwtKeyFunc)
	if err != nil {
		return nil, fmt.Errorf("JWT validation failed: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid JWT token")
	}

	username, _ := claims.GetSubject()
	return &Session{
		ID:         generateSessionID(),
		Username:   username,
		Method:     "jwt",
		RemoteAddr: remoteAddr,
		Metadata:   map[string]any{"claims": claims},
	}, nil
}

func (a *Authenticator) storeSession(session *Session) {
	now := a.now()
	session.CreatedAt = now
	session.LastActivity = now

	a.sessionMu.Lock()
	a.sessions[session.ID] = session
	if now.Sub(a.lastSweep) > 5*time.Minute {
		a.sweepSessionsLocked(now)
	}
	a.sessionMu.Unlock()

	a.logger.Debug("msg", "Session created",
		"component", "auth",
		"session_id", session.ID,
		"username", session.Username,
		"method", session.Method,
		"remote_addr", session.RemoteAddr)
}

func (a *Authenticator) sweepSessionsLocked(now time.Time) {
	a.lastSweep = now
	for id, session := range a.sessions {
		if now.Sub(session.LastActivity) > sessionIdleTimeout {
			delete(a.sessions, id)
		}
	}
}

// ValidateSession reports whether a session is still live and refreshes it
func (a *Authenticator) ValidateSession(sessionID string) bool {
	if a == nil {
		return true
	}

	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	session, exists := a.sessions[sessionID]
	if !exists {
		return false
	}
	now := a.now()
	if now.Sub(session.LastActivity) > sessionIdleTimeout {
		delete(a.sessions, sessionID)
		return false
	}
	session.LastActivity = now
	return true
}

// EndSession forgets a session, typically when its stream closes
func (a *Authenticator) EndSession(sessionID string) {
	if a == nil {
		return
	}
	a.sessionMu.Lock()
	delete(a.sessions, sessionID)
	a.sessionMu.Unlock()
}

func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// GetStats returns authentication statistics
func (a *Authenticator) GetStats() map[string]any {
	if a == nil {
		return map[string]any{"enabled": false}
	}

	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	return map[string]any{
		"enabled":         true,
		"type":            a.config.Type,
		"active_sessions": len(a.sessions),
		"basic_users":     len(a.basicUsers),
		"static_tokens":   len(a.bearerTokens),
		"jwt":             a.jwtParser != nil,
		"failures":        a.failures.Load(),
		"successes":       a.successes.Load(),
		"blocked":         a.blocked.Load(),
	}
}
