// FILE: logmonitor/src/internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := defaults()
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, int64(DefaultPort), cfg.Server.Port)
	assert.Equal(t, int64(10000), cfg.Store.MaxMessages)
	assert.False(t, cfg.Store.ServerMode)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, "none", cfg.HTTP.Auth.Type)
}

func TestValidateConfig_FillsSections(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ValidateConfig(cfg))
	assert.NotNil(t, cfg.Logging)
	assert.NotNil(t, cfg.Server)
	assert.NotNil(t, cfg.Store)
	assert.NotNil(t, cfg.Rules)
	assert.NotNil(t, cfg.HTTP)
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ServerPortZero", func(c *Config) { c.Server.Port = 0 }},
		{"ServerPortHigh", func(c *Config) { c.Server.Port = 70000 }},
		{"BadHost", func(c *Config) { c.Server.Host = "not-an-ip" }},
		{"NegativeCapacity", func(c *Config) { c.Store.MaxMessages = -1 }},
		{"ServerModeWithoutDir", func(c *Config) { c.Store.ServerMode = true; c.Store.AutosaveDir = "" }},
		{"EmptyRulesDir", func(c *Config) { c.Rules.Directory = " " }},
		{"FastRulesReload", func(c *Config) { c.Rules.AutoReload = true; c.Rules.ReloadIntervalMS = 10 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogOutput", func(c *Config) { c.Logging.Output = "syslog" }},
		{"BadCIDR", func(c *Config) { c.Server.NetLimit.IPBlacklist = []string{"10.0.0.0/99"} }},
		{"NegativeRate", func(c *Config) { c.Server.NetLimit.RequestsPerSecond = -1 }},
		{"HTTPPortClash", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Port = c.Server.Port }},
		{"HTTPRelativePath", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.StatusPath = "status" }},
		{"HTTPDuplicatePath", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.StreamPath = c.HTTP.StatusPath }},
		{"UnknownAuth", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Auth.Type = "mtls" }},
		{"BasicWithoutUsers", func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Auth.Type = "basic" }},
		{"BasicPlainPassword", func(c *Config) {
			c.HTTP.Enabled = true
			c.HTTP.Auth = &AuthConfig{Type: "basic", Basic: &BasicAuthConfig{
				Users: []BasicAuthUser{{Username: "u", PasswordHash: "secret"}},
			}}
		}},
		{"BearerEmpty", func(c *Config) {
			c.HTTP.Enabled = true
			c.HTTP.Auth = &AuthConfig{Type: "bearer", Bearer: &BearerAuthConfig{}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestValidateConfig_NetLimitBurstDefault(t *testing.T) {
	cfg := defaults()
	cfg.Server.NetLimit = &NetLimitConfig{Enabled: true, RequestsPerSecond: 5}
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, int64(5), cfg.Server.NetLimit.BurstSize)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("LOGMONITOR_CONFIG_FILE", "/etc/logmonitor/custom.toml")
	assert.Equal(t, "/etc/logmonitor/custom.toml", GetConfigPath())

	t.Setenv("LOGMONITOR_CONFIG_FILE", "custom.toml")
	t.Setenv("LOGMONITOR_CONFIG_DIR", "/opt/conf")
	assert.Equal(t, "/opt/conf/custom.toml", GetConfigPath())

	t.Setenv("LOGMONITOR_CONFIG_FILE", "")
	assert.Equal(t, "/opt/conf/logmonitor.toml", GetConfigPath())
}

func TestCustomEnvTransform(t *testing.T) {
	assert.Equal(t, "LOGMONITOR_STORE_MAX_MESSAGES", customEnvTransform("store.max_messages"))
	assert.Equal(t, "LOGMONITOR_HTTP_AUTH_TYPE", customEnvTransform("http.auth.type"))
}
