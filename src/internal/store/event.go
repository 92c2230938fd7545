// FILE: logmonitor/src/internal/store/event.go
package store

import "logmonitor/src/internal/core"

// EventType identifies a store change notification
type EventType int

const (
	EventInserted EventType = iota
	EventRemoved
	EventCleared
	EventReset
	EventClientConnected
	EventClientDisconnected
	EventAutosaved
)

func (t EventType) String() string {
	switch t {
	case EventInserted:
		return "inserted"
	case EventRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	case EventReset:
		return "reset"
	case EventClientConnected:
		return "client_connected"
	case EventClientDisconnected:
		return "client_disconnected"
	case EventAutosaved:
		return "autosaved"
	default:
		return "unknown"
	}
}

// Event describes one change. First and Last are inclusive row indices
// for inserted and removed rows.
type Event struct {
	Type     EventType
	First    int
	Last     int
	Messages []core.LogMessage
	Client   *core.Client
	Path     string
}
