// FILE: logmonitor/src/cmd/logmonitor/bootstrap.go
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"logmonitor/src/internal/config"
	"logmonitor/src/internal/filter"
	"logmonitor/src/internal/format"
	"logmonitor/src/internal/sink"
	"logmonitor/src/internal/snapshot"
	"logmonitor/src/internal/source"
	"logmonitor/src/internal/store"
	"logmonitor/src/internal/version"

	"github.com/lixenwraith/log"
)

// server owns the running components of the daemon
type server struct {
	store     *store.Store
	autosaver *snapshot.Autosaver
	source    *source.TCPSource
	http      *sink.HTTPSink
	rules     *filter.Repository

	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
}

// bootstrapServer wires the store, the TCP source and the optional HTTP API
func bootstrapServer(cfg *config.Config) (*server, error) {
	srv := &server{
		autosaver: snapshot.NewAutosaver(cfg.Store.AutosaveDir, cfg.Store.CompressAutosave, logger),
		rules:     filter.NewRepository(cfg.Rules.Directory, logger),
	}

	srv.store = store.New(store.Options{
		ServerMode:  cfg.Store.ServerMode,
		MaxMessages: int(cfg.Store.MaxMessages),
		BreakLines:  cfg.Store.BreakLines,
	}, srv.autosaver, logger)

	// Rule documents are optional; a broken set is reported, not fatal
	if err := srv.rules.Load(); err != nil {
		logger.Warn("msg", "Failed to load rule sets",
			"component", "bootstrap",
			"directory", cfg.Rules.Directory,
			"error", err)
	}

	if cfg.Rules.AutoReload {
		srv.startRulesWatch(time.Duration(cfg.Rules.ReloadIntervalMS) * time.Millisecond)
	}

	tcpSource, err := source.NewTCPSource(cfg.Server, srv.store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP source: %w", err)
	}
	if err := tcpSource.Start(); err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("failed to start TCP source: %w", err)
	}
	srv.source = tcpSource

	if cfg.HTTP.Enabled {
		formatter, err := format.New("txt", format.Options{}, logger)
		if err != nil {
			srv.Shutdown()
			return nil, err
		}
		httpSink, err := sink.NewHTTPSink(cfg.HTTP, srv.store, tcpSource, srv.rules, formatter, logger)
		if err != nil {
			srv.Shutdown()
			return nil, fmt.Errorf("failed to create HTTP API: %w", err)
		}
		if err := httpSink.Start(); err != nil {
			srv.Shutdown()
			return nil, fmt.Errorf("failed to start HTTP API: %w", err)
		}
		srv.http = httpSink
	}

	displayEndpoints(cfg)

	logger.Info("msg", "logmonitor started",
		"version", version.Short(),
		"server_mode", cfg.Store.ServerMode,
		"max_messages", cfg.Store.MaxMessages,
		"http_enabled", cfg.HTTP.Enabled)

	return srv, nil
}

// Shutdown stops the HTTP API before the source so streams end first
func (s *server) Shutdown() {
	if s.http != nil {
		s.http.Stop()
	}
	if s.source != nil {
		s.source.Stop()
	}
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchWg.Wait()
	}
}

func (s *server) startRulesWatch(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	s.watchWg.Add(1)
	go func() {
		defer s.watchWg.Done()
		if err := s.rules.Watch(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("msg", "Rules watcher stopped",
				"component", "bootstrap",
				"error", err)
		}
	}()
	logger.Info("msg", "Watching rule documents",
		"component", "bootstrap",
		"directory", s.rules.Dir(),
		"interval", interval)
}

// ReloadRules rereads the rule documents
func (s *server) ReloadRules() error {
	return s.rules.Load()
}

// Snapshot writes the current contents to the autosave directory
func (s *server) Snapshot() (string, error) {
	return s.store.Save()
}

func displayEndpoints(cfg *config.Config) {
	Print("Accepting producers on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Store.ServerMode {
		Print("Server mode: autosave every %d messages to %s\n", cfg.Store.MaxMessages, cfg.Store.AutosaveDir)
	}
	if cfg.HTTP.Enabled {
		base := fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		Print("HTTP API on %s (status %s, messages %s, stream %s)\n",
			base, cfg.HTTP.StatusPath, cfg.HTTP.MessagesPath, cfg.HTTP.StreamPath)
	}
}

// initializeLogger sets up the logger based on configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	var configArgs []string

	if cfg.Quiet {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")
		return logger.ApplyConfigString(configArgs...)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+cfg.Logging.Output)

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configArgs = append(configArgs, fileLoggingArgs(cfg.Logging.File)...)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configArgs = append(configArgs, fileLoggingArgs(cfg.Logging.File)...)
		configArgs = append(configArgs, consoleTargetArgs(cfg.Logging.Console)...)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, "format="+cfg.Logging.Console.Format)
	}

	return logger.ApplyConfigString(configArgs...)
}

func fileLoggingArgs(file *config.LogFileConfig) []string {
	if file == nil {
		return nil
	}
	args := []string{
		"directory=" + file.Directory,
		"name=" + file.Name,
		fmt.Sprintf("max_size_mb=%d", file.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", file.MaxTotalSizeMB),
	}
	if file.RetentionHours > 0 {
		args = append(args, fmt.Sprintf("retention_period_hrs=%.1f", file.RetentionHours))
	}
	return args
}

func consoleTargetArgs(console *config.LogConsoleConfig) []string {
	target := "stderr"
	if console != nil && console.Target != "" {
		target = console.Target
	}
	if target == "split" {
		return []string{"stdout_split_mode=true", "stdout_target=split"}
	}
	return []string{"stdout_target=" + target}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
