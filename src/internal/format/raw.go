// FILE: logmonitor/src/internal/format/raw.go
package format

import (
	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// Outputs the message text as-is with a newline
type RawFormatter struct {
	logger *log.Logger
}

func NewRawFormatter(logger *log.Logger) *RawFormatter {
	return &RawFormatter{
		logger: logger,
	}
}

func (f *RawFormatter) Format(msg core.LogMessage) ([]byte, error) {
	return append([]byte(msg.Message), '\n'), nil
}

func (f *RawFormatter) Name() string {
	return "raw"
}
