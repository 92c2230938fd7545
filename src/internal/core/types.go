// FILE: logmonitor/src/internal/core/types.go
package core

import (
	"fmt"
	"strings"
	"time"
)

// Severity is the level a producer attaches to a log message
type Severity uint32

const (
	SeverityInfo Severity = iota
	SeverityNotice
	SeverityWarning
	SeverityError
)

// SeverityCount is the number of known severities
const SeverityCount = 4

var severityNames = [SeverityCount]string{"info", "notice", "warning", "error"}

func (s Severity) String() string {
	if s < SeverityCount {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint32(s))
}

// Valid reports whether s is one of the four known severities
func (s Severity) Valid() bool {
	return s < SeverityCount
}

// ParseSeverity accepts a severity name or its numeric value
func ParseSeverity(name string) (Severity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	switch name {
	case "0", "1", "2", "3":
		return Severity(name[0] - '0'), nil
	case "warn":
		return SeverityWarning, nil
	}
	return 0, fmt.Errorf("unknown severity: %s", name)
}

// LogMessage is one retained row of the message store
type LogMessage struct {
	Timestamp       int64    `json:"timestamp"` // milliseconds since epoch
	Severity        Severity `json:"severity"`
	Pid             uint64   `json:"pid"`
	Machine         string   `json:"machine"`
	ExePath         string   `json:"exe_path"`
	Module          string   `json:"module"`
	Channel         string   `json:"channel"`
	Message         string   `json:"message"`
	OriginalMessage string   `json:"-"`
	Continuation    bool     `json:"continuation,omitempty"`
}

// Time returns the message timestamp in local time
func (m LogMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Original returns the pre-split text, falling back to the row text
func (m LogMessage) Original() string {
	if m.OriginalMessage != "" {
		return m.OriginalMessage
	}
	return m.Message
}

// Client is a connected producer
type Client struct {
	ID          string    `json:"id"`
	Pid         uint64    `json:"pid"`
	Machine     string    `json:"machine"`
	ExePath     string    `json:"exe_path"`
	Version     uint32    `json:"version"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Statistics holds the severity totals of retained primary rows
type Statistics struct {
	Error   uint64 `json:"error"`
	Warning uint64 `json:"warning"`
	Notice  uint64 `json:"notice"`
	Info    uint64 `json:"info"`
	Clients int    `json:"clients"`
}

// Count adds one message of the given severity; unknown severities are ignored
func (s *Statistics) Count(sev Severity) {
	switch sev {
	case SeverityError:
		s.Error++
	case SeverityWarning:
		s.Warning++
	case SeverityNotice:
		s.Notice++
	case SeverityInfo:
		s.Info++
	}
}

// Reset zeroes the severity counters and keeps the client count
func (s *Statistics) Reset() {
	s.Error, s.Warning, s.Notice, s.Info = 0, 0, 0, 0
}

// Total returns the number of counted messages
func (s Statistics) Total() uint64 {
	return s.Error + s.Warning + s.Notice + s.Info
}

// Model is the read surface shared by the live and file backed stores
type Model interface {
	Len() int
	Message(i int) (LogMessage, bool)
	Statistics() Statistics
	IsLive() bool
}
