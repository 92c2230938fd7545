// FILE: logmonitor/src/cmd/logmonitor/commands/send.go
package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/sink"
	"logmonitor/src/internal/wire"
)

// maxLineSize bounds a single stdin line
const maxLineSize = 1 << 20

// SendCommand connects as a producer and sends arguments or stdin lines
type SendCommand struct {
	stdin  io.Reader
	stderr io.Writer
}

func NewSendCommand() *SendCommand {
	return &SendCommand{stdin: os.Stdin, stderr: os.Stderr}
}

func (c *SendCommand) Execute(args []string) error {
	var (
		address  string
		severity string
		module   string
		channel  string
		machine  string
		exePath  string
		pid      uint64
		protocol uint
		timeout  time.Duration
		verbose  bool
	)

	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&address, "address", net.JoinHostPort("127.0.0.1", strconv.Itoa(wire.DefaultPort)), "Server address")
	fs.StringVar(&severity, "severity", "info", "Message severity: info, notice, warning, error")
	fs.StringVar(&module, "module", "", "Module field")
	fs.StringVar(&channel, "channel", "", "Channel field")
	fs.StringVar(&machine, "machine", "", "Announced machine name (default: hostname)")
	fs.StringVar(&exePath, "exe", "", "Announced executable path (default: this binary)")
	fs.Uint64Var(&pid, "pid", 0, "Announced process id (default: this process)")
	fs.UintVar(&protocol, "protocol", wire.ProtocolVersion, "Protocol version to announce")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "Connect timeout")
	fs.BoolVar(&verbose, "verbose", false, "Log diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}

	sev, err := core.ParseSeverity(severity)
	if err != nil {
		return err
	}

	logger := commandLogger(verbose)
	defer logger.Shutdown(time.Second)

	client, err := sink.NewTCPClient(sink.TCPClientConfig{
		Address:     address,
		DialTimeout: timeout,
		Version:     uint32(protocol),
		Pid:         pid,
		Machine:     machine,
		ExePath:     exePath,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	send := func(text string) error {
		return client.Send(core.LogMessage{
			Timestamp: time.Now().UnixMilli(),
			Severity:  sev,
			Module:    module,
			Channel:   channel,
			Message:   text,
		})
	}

	// Arguments form a single message
	if fs.NArg() > 0 {
		return send(strings.Join(fs.Args(), " "))
	}

	scanner := bufio.NewScanner(c.stdin)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	sent := 0
	for scanner.Scan() {
		if err := send(scanner.Text()); err != nil {
			return fmt.Errorf("send line %d: %w", sent+1, err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

func (c *SendCommand) Description() string {
	return "Send messages to a server as a producer"
}

func (c *SendCommand) Help() string {
	return `Send Command - Send messages to a logmonitor server

Usage:
  logmonitor send [options] [message...]

Without message arguments every stdin line is sent as one message.

Options:
  --address <host:port>  Server address (default 127.0.0.1:3273)
  --severity <name>      info (default), notice, warning, error
  --module <name>        Module field
  --channel <name>       Channel field
  --machine <name>       Announced machine name
  --exe <path>           Announced executable path
  --pid <n>              Announced process id
  --protocol <n>         Protocol version to announce (1 sends second resolution timestamps)
  --timeout <duration>   Connect timeout (default 10s)
  --verbose              Log diagnostics to stderr
`
}
