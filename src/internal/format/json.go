// FILE: logmonitor/src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"
	"time"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// Reserved keys of the json layout
const (
	fieldTimestamp = "timestamp"
	fieldSeverity  = "severity"
	fieldPid       = "pid"
	fieldMachine   = "machine"
	fieldExePath   = "exe_path"
	fieldModule    = "module"
	fieldChannel   = "channel"
	fieldMessage   = "message"
)

// JSONFormatter produces one JSON object per message.
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

func NewJSONFormatter(opts Options, logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{
		pretty: opts.Pretty,
		logger: logger,
	}
}

// Format transforms a single LogMessage into a JSON byte slice. A message
// that is itself a JSON object is merged; the message metadata takes precedence.
func (f *JSONFormatter) Format(msg core.LogMessage) ([]byte, error) {
	output := map[string]any{
		fieldTimestamp: msg.Time().Format(time.RFC3339Nano),
		fieldSeverity:  msg.Severity.String(),
		fieldPid:       msg.Pid,
		fieldMachine:   msg.Machine,
		fieldExePath:   msg.ExePath,
		fieldModule:    msg.Module,
		fieldChannel:   msg.Channel,
	}

	var msgData map[string]any
	if err := json.Unmarshal([]byte(msg.Message), &msgData); err == nil {
		for k, v := range msgData {
			if _, reserved := output[k]; !reserved {
				output[k] = v
			}
		}
	} else {
		output[fieldMessage] = msg.Message
	}

	var result []byte
	var err error
	if f.pretty {
		result, err = json.MarshalIndent(output, "", "  ")
	} else {
		result, err = json.Marshal(output)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return append(result, '\n'), nil
}

func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch renders messages as a single JSON array
func (f *JSONFormatter) FormatBatch(messages []core.LogMessage) ([]byte, error) {
	batch := make([]json.RawMessage, 0, len(messages))

	for _, msg := range messages {
		formatted, err := f.Format(msg)
		if err != nil {
			f.logger.Warn("msg", "Failed to format message in batch",
				"component", "json_formatter",
				"error", err)
			continue
		}

		// Remove the trailing newline for array elements
		if len(formatted) > 0 && formatted[len(formatted)-1] == '\n' {
			formatted = formatted[:len(formatted)-1]
		}
		batch = append(batch, formatted)
	}

	if f.pretty {
		return json.MarshalIndent(batch, "", "  ")
	}
	return json.Marshal(batch)
}
