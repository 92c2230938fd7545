// FILE: logmonitor/src/internal/config/config.go
package config

// Config is the complete daemon configuration
type Config struct {
	// Disable all log output
	Quiet bool `toml:"quiet"`

	Logging *LogConfig    `toml:"logging"`
	Server  *ServerConfig `toml:"server"`
	Store   *StoreConfig  `toml:"store"`
	Rules   *RulesConfig  `toml:"rules"`
	HTTP    *HTTPConfig   `toml:"http"`
}

// ServerConfig controls the wire protocol listener
type ServerConfig struct {
	Host string `toml:"host"`
	Port int64  `toml:"port"`

	NetLimit *NetLimitConfig `toml:"net_limit"`
}

// NetLimitConfig bounds connections per remote address. Zero values disable a check.
type NetLimitConfig struct {
	Enabled bool `toml:"enabled"`

	IPWhitelist []string `toml:"ip_whitelist"`
	IPBlacklist []string `toml:"ip_blacklist"`

	// Accepted connections per second per IP
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BurstSize         int64   `toml:"burst_size"`

	MaxConnectionsPerIP int64 `toml:"max_connections_per_ip"`
}

// StoreConfig controls message retention
type StoreConfig struct {
	// Bounded capacity with autosave-and-clear on overflow
	ServerMode  bool  `toml:"server_mode"`
	MaxMessages int64 `toml:"max_messages"`

	// Show each line of a multiline message as its own row
	BreakLines bool `toml:"break_lines"`

	AutosaveDir      string `toml:"autosave_dir"`
	CompressAutosave bool   `toml:"compress_autosave"`
}

// RulesConfig locates filter and highlight documents
type RulesConfig struct {
	Directory string `toml:"directory"`

	// Poll the directory and reload documents when they change
	AutoReload       bool  `toml:"auto_reload"`
	ReloadIntervalMS int64 `toml:"reload_interval_ms"`
}

// HTTPConfig controls the read API
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`

	// Endpoint paths
	StatusPath   string `toml:"status_path"`
	MessagesPath string `toml:"messages_path"`
	StreamPath   string `toml:"stream_path"`
	ClientsPath  string `toml:"clients_path"`

	// Events buffered per stream client
	BufferSize int64 `toml:"buffer_size"`

	Heartbeat *HeartbeatConfig `toml:"heartbeat"`
	NetLimit  *NetLimitConfig  `toml:"net_limit"`
	Auth      *AuthConfig      `toml:"auth"`
}

type HeartbeatConfig struct {
	Enabled         bool  `toml:"enabled"`
	IntervalSeconds int64 `toml:"interval_seconds"`
	IncludeStats    bool  `toml:"include_stats"`
}

type AuthConfig struct {
	// Authentication type: "none", "basic", "bearer"
	Type string `toml:"type"`

	Basic  *BasicAuthConfig  `toml:"basic"`
	Bearer *BearerAuthConfig `toml:"bearer"`
}

type BasicAuthConfig struct {
	Users []BasicAuthUser `toml:"users"`

	// Realm for WWW-Authenticate header
	Realm string `toml:"realm"`
}

type BasicAuthUser struct {
	Username string `toml:"username"`
	// Password hash (bcrypt)
	PasswordHash string `toml:"password_hash"`
}

type BearerAuthConfig struct {
	// Static tokens
	Tokens []string `toml:"tokens"`

	// JWT validation
	JWT *JWTConfig `toml:"jwt"`
}

type JWTConfig struct {
	// HMAC signing key
	SigningKey string `toml:"signing_key"`

	// Expected issuer
	Issuer string `toml:"issuer"`

	// Expected audience
	Audience string `toml:"audience"`
}
