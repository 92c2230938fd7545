// FILE: logmonitor/src/internal/config/validation.go
package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidateConfig checks every section and fills omitted sections with defaults
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	def := defaults()
	if cfg.Logging == nil {
		cfg.Logging = def.Logging
	}
	if cfg.Server == nil {
		cfg.Server = def.Server
	}
	if cfg.Store == nil {
		cfg.Store = def.Store
	}
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}
	if cfg.HTTP == nil {
		cfg.HTTP = def.HTTP
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := validateServer(cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateStore(cfg.Store); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if strings.TrimSpace(cfg.Rules.Directory) == "" {
		return fmt.Errorf("rules config: directory cannot be empty")
	}
	if cfg.Rules.AutoReload && cfg.Rules.ReloadIntervalMS < 100 {
		return fmt.Errorf("rules config: reload_interval_ms must be at least 100, got %d", cfg.Rules.ReloadIntervalMS)
	}
	if err := validateHTTP(cfg.HTTP); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Port == cfg.Server.Port {
		return fmt.Errorf("http port %d conflicts with server port", cfg.HTTP.Port)
	}
	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	validOutputs := map[string]bool{
		"file": true, "stdout": true, "stderr": true,
		"both": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[cfg.Console.Target] {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}

		validFormats := map[string]bool{
			"txt": true, "json": true, "": true,
		}
		if !validFormats[cfg.Console.Format] {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	return nil
}

func validatePort(port int64) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}

func validateHost(host string) error {
	if host == "" || host == "0.0.0.0" || host == "localhost" {
		return nil
	}
	if net.ParseIP(host) == nil {
		return fmt.Errorf("invalid host address: %s", host)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if err := validateHost(cfg.Host); err != nil {
		return err
	}
	return validateNetLimit(cfg.NetLimit)
}

func validateNetLimit(cfg *NetLimitConfig) error {
	if cfg == nil {
		return nil
	}

	for _, entry := range append(append([]string{}, cfg.IPWhitelist...), cfg.IPBlacklist...) {
		cidr := entry
		if !strings.Contains(cidr, "/") {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid IP list entry: %s", entry)
			}
			continue
		}
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid IP list entry: %s", entry)
		}
	}

	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}
	if cfg.BurstSize < 0 {
		return fmt.Errorf("burst_size cannot be negative")
	}
	if cfg.MaxConnectionsPerIP < 0 {
		return fmt.Errorf("max_connections_per_ip cannot be negative")
	}
	if cfg.Enabled && cfg.RequestsPerSecond > 0 && cfg.BurstSize == 0 {
		cfg.BurstSize = int64(cfg.RequestsPerSecond)
		if cfg.BurstSize < 1 {
			cfg.BurstSize = 1
		}
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	if cfg.MaxMessages < 0 {
		return fmt.Errorf("max_messages cannot be negative: %d", cfg.MaxMessages)
	}
	if cfg.MaxMessages == 0 {
		cfg.MaxMessages = 10000
	}
	if cfg.ServerMode && strings.TrimSpace(cfg.AutosaveDir) == "" {
		return fmt.Errorf("server_mode requires autosave_dir")
	}
	return nil
}

func validateHTTP(cfg *HTTPConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if err := validateHost(cfg.Host); err != nil {
		return err
	}

	paths := map[string]string{
		"status_path":   cfg.StatusPath,
		"messages_path": cfg.MessagesPath,
		"stream_path":   cfg.StreamPath,
		"clients_path":  cfg.ClientsPath,
	}
	seen := make(map[string]string, len(paths))
	for name, path := range paths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /: %q", name, path)
		}
		if other, ok := seen[path]; ok {
			return fmt.Errorf("%s and %s share path %s", name, other, path)
		}
		seen[path] = name
	}

	if cfg.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive: %d", cfg.BufferSize)
	}

	if cfg.Heartbeat != nil && cfg.Heartbeat.Enabled && cfg.Heartbeat.IntervalSeconds < 1 {
		return fmt.Errorf("heartbeat interval must be positive: %d", cfg.Heartbeat.IntervalSeconds)
	}

	if err := validateNetLimit(cfg.NetLimit); err != nil {
		return err
	}
	return validateAuth(cfg.Auth)
}

func validateAuth(auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	switch auth.Type {
	case "", "none":
		return nil
	case "basic":
		if auth.Basic == nil || len(auth.Basic.Users) == 0 {
			return fmt.Errorf("basic auth requires at least one user")
		}
		for i, user := range auth.Basic.Users {
			if user.Username == "" {
				return fmt.Errorf("basic auth user %d: missing username", i)
			}
			if !strings.HasPrefix(user.PasswordHash, "$2") {
				return fmt.Errorf("basic auth user %s: password_hash must be a bcrypt hash", user.Username)
			}
		}
	case "bearer":
		if auth.Bearer == nil {
			return fmt.Errorf("bearer auth type specified but config missing")
		}
		hasJWT := auth.Bearer.JWT != nil && auth.Bearer.JWT.SigningKey != ""
		if len(auth.Bearer.Tokens) == 0 && !hasJWT {
			return fmt.Errorf("bearer auth requires tokens or a jwt signing_key")
		}
	default:
		return fmt.Errorf("invalid auth type: %s", auth.Type)
	}
	return nil
}
