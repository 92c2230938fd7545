// FILE: logmonitor/src/internal/sink/sink.go
package sink

import (
	"time"

	"logmonitor/src/internal/core"
)

// ClientManager is the connection surface of a live model
type ClientManager interface {
	Clients() []core.Client
	Disconnect(id string) error
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type              string
	TotalProcessed    uint64
	ActiveConnections int64
	StartTime         time.Time
	LastProcessed     time.Time
	Details           map[string]any
}
