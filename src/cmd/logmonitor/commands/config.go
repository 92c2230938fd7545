// FILE: logmonitor/src/cmd/logmonitor/commands/config.go
package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"logmonitor/src/internal/config"
)

// ConfigCommand writes the effective configuration to a TOML file
type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{stdout: os.Stdout, stderr: os.Stderr}
}

func (c *ConfigCommand) Execute(args []string) error {
	var (
		output     string
		configFile string
		force      bool
	)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&output, "o", "", "Output file (required)")
	fs.StringVar(&configFile, "c", "", "Config file to start from")
	fs.BoolVar(&force, "force", false, "Overwrite an existing output file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s exists, use --force to overwrite", output)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if configFile != "" {
		os.Setenv("LOGMONITOR_CONFIG_FILE", configFile)
	}

	// Remaining arguments are the same overrides serve accepts
	cfg, err := config.Load(fs.Args())
	if err != nil {
		return err
	}
	if err := cfg.SaveToFile(output); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Configuration written to %s\n", output)
	return nil
}

func (c *ConfigCommand) Description() string {
	return "Write the effective configuration to a file"
}

func (c *ConfigCommand) Help() string {
	return `Config Command - Write the effective configuration

Resolves defaults, the config file, LOGMONITOR_* environment variables and
the given overrides, validates the result and writes it as TOML.

Usage:
  logmonitor config -o <file> [options] [--section.key=value ...]

Options:
  -o <file>     Output file (required)
  -c <file>     Config file to start from
  --force       Overwrite an existing output file

Examples:
  # Dump the defaults
  logmonitor config -o logmonitor.toml

  # Start from a file and change the capacity
  logmonitor config -c old.toml -o new.toml --store.max_messages=50000
`
}
