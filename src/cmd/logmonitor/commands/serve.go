// FILE: logmonitor/src/cmd/logmonitor/commands/serve.go
package commands

import "fmt"

// ServeCommand runs the daemon; it is also the default without a command
type ServeCommand struct {
	run func(args []string) error
}

func NewServeCommand(run func(args []string) error) *ServeCommand {
	return &ServeCommand{run: run}
}

func (c *ServeCommand) Execute(args []string) error {
	if c.run == nil {
		return fmt.Errorf("serve is not available")
	}
	return c.run(args)
}

func (c *ServeCommand) Description() string {
	return "Accept producers and retain their messages (default)"
}

func (c *ServeCommand) Help() string {
	return `Serve Command - Run the log server

Usage:
  logmonitor serve [options]
  logmonitor [options]

Options:
  -c, --config <path>        Configuration file
  -q, --quiet                Suppress all console output
  --<section>.<key>=<value>  Override any configuration value

Examples:
  # Listen on a different port with bounded capacity
  logmonitor --server.port=4000 --store.server_mode=true --store.max_messages=50000

  # Enable the HTTP API
  logmonitor --http.enabled=true --http.port=3274

Signals:
  SIGHUP   Reload filter and highlight documents
  SIGUSR1  Write a snapshot to the autosave directory
`
}
