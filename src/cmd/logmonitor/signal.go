// FILE: logmonitor/src/cmd/logmonitor/signal.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/log"
)

// SignalHandler maps OS signals onto server actions
type SignalHandler struct {
	server  *server
	logger  *log.Logger
	sigChan chan os.Signal
}

func NewSignalHandler(srv *server, logger *log.Logger) *SignalHandler {
	sh := &SignalHandler{
		server:  srv,
		logger:  logger,
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(sh.sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,  // reload rule documents
		syscall.SIGUSR1, // write a snapshot now
	)
	return sh
}

// Handle serves reload and snapshot signals until a termination signal arrives
func (sh *SignalHandler) Handle(ctx context.Context) os.Signal {
	for {
		select {
		case sig := <-sh.sigChan:
			switch sig {
			case syscall.SIGHUP:
				if err := sh.server.ReloadRules(); err != nil {
					sh.logger.Error("msg", "Rule reload failed, keeping previous rules",
						"component", "signal",
						"error", err)
				}
			case syscall.SIGUSR1:
				path, err := sh.server.Snapshot()
				if err != nil {
					sh.logger.Error("msg", "Snapshot failed",
						"component", "signal",
						"error", err)
					continue
				}
				sh.logger.Info("msg", "Snapshot written",
					"component", "signal",
					"path", path)
			default:
				return sig
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
