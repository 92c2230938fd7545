// FILE: logmonitor/src/cmd/logmonitor/commands/auth.go
package commands

import "logmonitor/src/internal/auth"

// AuthCommand generates HTTP API credentials
type AuthCommand struct {
	gen *auth.GeneratorCommand
}

func NewAuthCommand() *AuthCommand {
	return &AuthCommand{gen: auth.NewGeneratorCommand()}
}

func (c *AuthCommand) Execute(args []string) error {
	return c.gen.Execute(args)
}

func (c *AuthCommand) Description() string {
	return c.gen.Description()
}

func (c *AuthCommand) Help() string {
	return c.gen.Help()
}
