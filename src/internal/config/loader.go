// FILE: logmonitor/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "LOGMONITOR_"

// DefaultPort is the wire protocol port (0xCC9)
const DefaultPort = 3273

func defaults() *Config {
	return &Config{
		Quiet:   false,
		Logging: DefaultLogConfig(),
		Server: &ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
			NetLimit: &NetLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
		},
		Store: &StoreConfig{
			ServerMode:       false,
			MaxMessages:      10000,
			BreakLines:       false,
			AutosaveDir:      DefaultDataDir("autosave"),
			CompressAutosave: false,
		},
		Rules: &RulesConfig{
			Directory:        DefaultDataDir("rules"),
			AutoReload:       false,
			ReloadIntervalMS: 2000,
		},
		HTTP: &HTTPConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         3274,
			StatusPath:   "/status",
			MessagesPath: "/messages",
			StreamPath:   "/stream",
			ClientsPath:  "/clients",
			BufferSize:   1000,
			Heartbeat: &HeartbeatConfig{
				Enabled:         true,
				IntervalSeconds: 30,
				IncludeStats:    false,
			},
			NetLimit: &NetLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
			Auth: &AuthConfig{
				Type: "none",
			},
		},
	}
}

// DefaultDataDir places state under the user config directory when one exists
func DefaultDataDir(name string) string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "logmonitor", name)
	}
	return filepath.Join(".", name)
}

// Load builds the configuration from defaults, the TOML file, environment and CLI args
func Load(args []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(args).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		// A missing config file is not an error
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	if err := ValidateConfig(finalConfig); err != nil {
		return nil, err
	}
	return finalConfig, nil
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config file from the environment or the user config directory
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logmonitor.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logmonitor.toml")
	}

	return "logmonitor.toml"
}
