// FILE: logmonitor/src/cmd/logmonitor/commands/version.go
package commands

import (
	"fmt"

	"logmonitor/src/internal/version"
)

// VersionCommand handles version display
type VersionCommand struct{}

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Println(version.String())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show logmonitor version information

Usage:
  logmonitor version
  logmonitor -v
  logmonitor --version
`
}
