// FILE: logmonitor/src/internal/format/txt.go
package format

import (
	"bytes"
	"strconv"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// TxtFormatter writes the tab separated export line: severity name, then
// time, pid, executable, machine, module, channel and message columns
type TxtFormatter struct {
	timestampFormat string
	logger          *log.Logger
}

func NewTxtFormatter(opts Options, logger *log.Logger) *TxtFormatter {
	opts = opts.withDefaults()
	return &TxtFormatter{
		timestampFormat: opts.TimestampFormat,
		logger:          logger,
	}
}

func (f *TxtFormatter) Format(msg core.LogMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(msg.Message) + 128)

	if msg.Severity.Valid() {
		buf.WriteString(msg.Severity.String())
	}
	for _, col := range []string{
		msg.Time().Format(f.timestampFormat),
		strconv.FormatUint(msg.Pid, 10),
		msg.ExePath,
		msg.Machine,
		msg.Module,
		msg.Channel,
		msg.Message,
	} {
		buf.WriteByte('\t')
		buf.WriteString(col)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (f *TxtFormatter) Name() string {
	return "txt"
}
