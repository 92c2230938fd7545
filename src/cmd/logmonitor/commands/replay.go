// FILE: logmonitor/src/cmd/logmonitor/commands/replay.go
package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"logmonitor/src/internal/config"
	"logmonitor/src/internal/core"
	"logmonitor/src/internal/filter"
	"logmonitor/src/internal/format"
	"logmonitor/src/internal/snapshot"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ReplayCommand prints the rows of a snapshot file through a view
type ReplayCommand struct {
	stdout io.Writer
	stderr io.Writer
	// nil disables colors
	renderer *lipgloss.Renderer
	// reports whether stdout is an interactive terminal
	isTerminal func() bool
}

func NewReplayCommand() *ReplayCommand {
	return &ReplayCommand{
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

type replayOptions struct {
	view       filter.ViewOptions
	rulesDir   string
	formatName string
	breakLines bool
	noColor    bool
	stats      bool
	outputPath string
	verbose    bool
}

func (c *ReplayCommand) parse(args []string) (replayOptions, []string, error) {
	var opts replayOptions
	var severity string

	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&opts.view.Filter, "filter", "", "Named filter from the rules directory")
	fs.StringVar(&opts.view.Highlights, "highlight", "", "Named highlight set from the rules directory")
	fs.StringVar(&severity, "severity", "", "Comma separated severities to show")
	fs.StringVar(&opts.view.Search, "search", "", "Regular expression over channel, module and message")
	fs.StringVar(&opts.rulesDir, "rules", config.DefaultDataDir("rules"), "Rules directory")
	fs.StringVar(&opts.formatName, "format", "txt", "Output format: txt, json, text, raw")
	fs.BoolVar(&opts.breakLines, "break-lines", false, "Print each line of a multiline message as its own row")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable highlight colors")
	fs.BoolVar(&opts.stats, "stats", false, "Print the shown row count and severities to stderr")
	fs.StringVar(&opts.outputPath, "o", "", "Write rows to a file instead of stdout")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if severity != "" {
		opts.view.Severities = strings.Split(severity, ",")
	}
	return opts, fs.Args(), nil
}

func (c *ReplayCommand) Execute(args []string) error {
	opts, files, err := c.parse(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("replay requires at least one snapshot file")
	}

	logger := commandLogger(opts.verbose)
	defer logger.Shutdown(time.Second)

	var rules *filter.Repository
	if opts.view.Filter != "" || opts.view.Highlights != "" {
		rules = filter.NewRepository(opts.rulesDir, logger)
		if err := rules.Load(); err != nil {
			return err
		}
	}

	view, err := filter.BuildView(rules, opts.view)
	if err != nil {
		return err
	}

	formatter, err := format.New(opts.formatName, format.Options{}, logger)
	if err != nil {
		return err
	}

	out := c.stdout
	colors := !opts.noColor && opts.view.Highlights != "" && c.isTerminal()
	var file *os.File
	if opts.outputPath != "" {
		file, err = os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
		colors = false
	}

	w := bufio.NewWriter(out)

	if colors && c.renderer == nil {
		c.renderer = lipgloss.NewRenderer(out)
	}

	for _, path := range files {
		model, err := snapshot.Open(context.Background(), path, opts.breakLines, logger)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}

		shown := 0
		var shownStats core.Statistics
		for i := 0; i < model.Len(); i++ {
			msg, _ := model.Message(i)
			if !view.Accepts(&msg) {
				continue
			}
			line, err := formatter.Format(msg)
			if err != nil {
				return fmt.Errorf("format row %d: %w", i, err)
			}
			if colors {
				line = c.colorize(view, &msg, line)
			}
			if _, err := w.Write(line); err != nil {
				return err
			}
			shown++
			if !msg.Continuation {
				shownStats.Count(msg.Severity)
			}
		}

		if opts.stats {
			c.printStats(path, shownStats, shown, model.Len())
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
	}
	return nil
}

// colorize applies the view's highlight colors to one formatted row
func (c *ReplayCommand) colorize(view *filter.View, msg *core.LogMessage, line []byte) []byte {
	fg, bg := view.Colors(msg)
	if fg == nil && bg == nil {
		return line
	}

	style := c.renderer.NewStyle()
	if fg != nil {
		style = style.Foreground(lipgloss.Color(fg.Hex()))
	}
	if bg != nil {
		style = style.Background(lipgloss.Color(bg.Hex()))
	}

	text := strings.TrimSuffix(string(line), "\n")
	return []byte(style.Render(text) + "\n")
}

func (c *ReplayCommand) printStats(path string, stats core.Statistics, shown, rows int) {
	fmt.Fprintf(c.stderr, "%s: %d of %d rows shown; error %d, warning %d, notice %d, info %d\n",
		path, shown, rows, stats.Error, stats.Warning, stats.Notice, stats.Info)
}

func (c *ReplayCommand) Description() string {
	return "Print the messages of a snapshot file"
}

func (c *ReplayCommand) Help() string {
	return `Replay Command - Print the messages of a snapshot file

Usage:
  logmonitor replay [options] <file.lsw[.zst]>...

Options:
  --filter <name>       Show rows accepted by a named filter
  --highlight <name>    Color rows with a named highlight set (terminals only)
  --severity <list>     Comma separated severities, e.g. warning,error
  --search <regexp>     Match channel, module or message
  --rules <dir>         Rules directory (default: user config dir)
  --format <name>       txt (default), json, text, raw
  --break-lines         One row per line of multiline messages
  --no-color            Disable highlight colors
  --stats               Print the shown row count and severities to stderr
  -o <path>             Write rows to a file (the txt format matches the text export)
  --verbose             Log diagnostics to stderr
`
}
