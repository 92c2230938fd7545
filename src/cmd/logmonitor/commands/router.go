// FILE: logmonitor/src/cmd/logmonitor/commands/router.go
package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/lixenwraith/log"
)

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter handles the routing of CLI arguments to the appropriate subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
}

// NewCommandRouter registers every subcommand. serve runs the daemon.
func NewCommandRouter(serve func(args []string) error) *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
	}

	router.commands["serve"] = NewServeCommand(serve)
	router.commands["replay"] = NewReplayCommand()
	router.commands["send"] = NewSendCommand()
	router.commands["auth"] = NewAuthCommand()
	router.commands["config"] = NewConfigCommand()
	router.commands["version"] = NewVersionCommand()
	router.commands["help"] = NewHelpCommand(router)

	return router
}

// Route checks for and executes a subcommand. It reports false when the
// arguments belong to the default serve mode.
func (r *CommandRouter) Route(args []string) (bool, error) {
	if len(args) < 2 {
		return false, nil
	}

	cmdName := args[1]

	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			if handler, exists := r.commands[cmdName]; exists && cmdName != "help" {
				fmt.Print(handler.Help())
				return true, nil
			}
			return true, r.commands["help"].Execute(nil)
		}
		if arg == "-v" || arg == "--version" {
			return true, r.commands["version"].Execute(nil)
		}
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		if cmdName[0] != '-' {
			return false, fmt.Errorf("unknown command: %s\n\nRun 'logmonitor help' for usage", cmdName)
		}
		// Flags go to the default serve mode
		return false, nil
	}

	return true, handler.Execute(args[2:])
}

// GetCommand returns a specific command handler by its name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommands returns a map of all registered commands.
func (r *CommandRouter) GetCommands() map[string]Handler {
	return r.commands
}

// ShowCommands displays a list of available subcommands to stderr.
func (r *CommandRouter) ShowCommands() {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, r.commands[name].Description())
	}
	fmt.Fprintln(os.Stderr, "\nUse 'logmonitor <command> --help' for command-specific help")
}

// commandLogger is silent unless verbose, then logs to stderr
func commandLogger(verbose bool) *log.Logger {
	logger := log.NewLogger()
	if !verbose {
		return logger
	}
	if err := logger.ApplyConfigString(
		"disable_file=true",
		"enable_stdout=true",
		"stdout_target=stderr",
		fmt.Sprintf("level=%d", log.LevelDebug),
	); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logger init failed: %v\n", err)
	}
	return logger
}
