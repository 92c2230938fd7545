// FILE: logmonitor/src/internal/format/format.go
package format

import (
	"fmt"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultTimestampFormat renders message times with millisecond precision
const DefaultTimestampFormat = "2006-01-02 15:04:05.000"

// Formatter defines the interface for transforming a LogMessage into a byte slice.
type Formatter interface {
	// Format takes a LogMessage and returns the formatted row as a byte slice.
	Format(msg core.LogMessage) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// Options tunes the formatters; zero values select defaults
type Options struct {
	// Go time layout used by txt and text
	TimestampFormat string
	// text/template source for the text formatter
	Template string
	// Indent json output
	Pretty bool
}

func (o Options) withDefaults() Options {
	if o.TimestampFormat == "" {
		o.TimestampFormat = DefaultTimestampFormat
	}
	if o.Template == "" {
		o.Template = DefaultTemplate
	}
	return o
}

// New creates a Formatter by name
func New(name string, opts Options, logger *log.Logger) (Formatter, error) {
	opts = opts.withDefaults()

	// Default to the tab separated export layout
	if name == "" {
		name = "txt"
	}

	switch name {
	case "txt":
		return NewTxtFormatter(opts, logger), nil
	case "json":
		return NewJSONFormatter(opts, logger), nil
	case "text":
		return NewTextFormatter(opts, logger)
	case "raw":
		return NewRawFormatter(logger), nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
