// FILE: logmonitor/src/cmd/logmonitor/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"logmonitor/src/cmd/logmonitor/commands"
	"logmonitor/src/internal/config"
	"logmonitor/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	router := commands.NewCommandRouter(runServer)
	handled, err := router.Route(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}

	// No subcommand: run the daemon
	if err := runServer(os.Args[1:]); err != nil {
		FatalError(1, "Error: %v\n", err)
	}
}

// runServer loads the configuration and serves until a termination signal
func runServer(args []string) error {
	configFile, args := extractConfigFlag(args)
	if configFile != "" {
		os.Setenv("LOGMONITOR_CONFIG_FILE", configFile)
	}

	cfg, err := config.Load(args)
	if err != nil {
		if configFile != "" && strings.Contains(err.Error(), "not found") {
			FatalError(2, "Config file not found: %s\n", configFile)
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	InitOutputHandler(cfg.Quiet)

	if err := initializeLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "logmonitor starting",
		"version", version.String(),
		"config_file", config.GetConfigPath(),
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := bootstrapServer(cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap server", "error", err)
		return err
	}

	if enableStatusReporter() {
		go statusReporter(ctx, srv)
	}

	sigHandler := NewSignalHandler(srv, logger)
	defer sigHandler.Stop()
	sig := sigHandler.Handle(ctx)

	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...",
		"signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}

func enableStatusReporter() bool {
	return os.Getenv("LOGMONITOR_DISABLE_STATUS_REPORTER") != "1"
}
