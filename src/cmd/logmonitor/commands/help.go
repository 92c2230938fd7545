// FILE: logmonitor/src/cmd/logmonitor/commands/help.go
package commands

import (
	"fmt"
	"sort"
	"strings"
)

// generalHelpTemplate is the default help message shown when no specific command is requested.
const generalHelpTemplate = `logmonitor: collects log messages from producers over TCP and retains them.

Usage:
  logmonitor [command] [options]
  logmonitor [options]

Commands:
%s

Application Options:
  -c, --config <path>      Path to configuration file (default: ~/.config/logmonitor.toml)
  -h, --help               Display this help message and exit
  -v, --version            Display version information and exit
  -q, --quiet              Suppress all console output, including errors

For command-specific help:
  logmonitor help <command>
  logmonitor <command> --help

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - --section.key=value flags override all other settings
  - LOGMONITOR_SECTION_KEY environment variables override file settings
  - TOML configuration file is the primary method

Examples:
  # Run the server with a custom config
  logmonitor -c /etc/logmonitor/prod.toml

  # Show errors from an autosaved snapshot
  logmonitor replay --severity error host.2024-03-05_14.07.09.lsw

  # Send a line from a shell script
  echo "backup done" | logmonitor send --module backup
`

// HelpCommand handles the display of general or command-specific help messages.
type HelpCommand struct {
	router *CommandRouter
}

func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

// Execute displays the appropriate help message based on the provided arguments.
func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Print(handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf(generalHelpTemplate, c.formatCommandList())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  logmonitor help              Show general help
  logmonitor help <command>    Show help for a specific command
`
}

// formatCommandList creates a formatted and aligned list of all available commands.
func (c *HelpCommand) formatCommandList() string {
	commands := c.router.GetCommands()

	names := make([]string, 0, len(commands))
	maxLen := 0
	for name := range commands {
		names = append(names, name)
		maxLen = max(maxLen, len(name))
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		padding := strings.Repeat(" ", maxLen-len(name)+2)
		lines = append(lines, fmt.Sprintf("  %s%s%s", name, padding, commands[name].Description()))
	}

	return strings.Join(lines, "\n")
}
