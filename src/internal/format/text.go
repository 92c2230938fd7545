// FILE: logmonitor/src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultTemplate is the single line console layout
const DefaultTemplate = `{{FmtTime .Time}} [{{ToUpper .Severity}}] {{.Machine}}:{{.Pid}} {{.Module}}/{{.Channel}} {{.Message}}`

// Produces human-readable text using templates
type TextFormatter struct {
	timestampFormat string
	template        *template.Template
	logger          *log.Logger
}

// Creates a new text formatter
func NewTextFormatter(opts Options, logger *log.Logger) (*TextFormatter, error) {
	opts = opts.withDefaults()
	f := &TextFormatter{
		timestampFormat: opts.TimestampFormat,
		logger:          logger,
	}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.Format(f.timestampFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("log").Funcs(funcMap).Parse(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	f.template = tmpl
	return f, nil
}

// Formats the message using the template
func (f *TextFormatter) Format(msg core.LogMessage) ([]byte, error) {
	data := map[string]any{
		"Time":         msg.Time(),
		"Severity":     msg.Severity.String(),
		"Pid":          msg.Pid,
		"Machine":      msg.Machine,
		"ExePath":      msg.ExePath,
		"Module":       msg.Module,
		"Channel":      msg.Channel,
		"Message":      msg.Message,
		"Continuation": msg.Continuation,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%s] [%s] %s/%s - %s\n",
			msg.Time().Format(f.timestampFormat),
			strings.ToUpper(msg.Severity.String()),
			msg.Module,
			msg.Channel,
			msg.Message)
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return result, nil
}

// Returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}
