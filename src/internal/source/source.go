// FILE: logmonitor/src/internal/source/source.go
package source

import (
	"errors"
	"time"
)

var (
	// ErrProtocol marks a frame that is not valid in the connection's state
	ErrProtocol = errors.New("protocol violation")
	// ErrUnsupportedVersion rejects producers newer than ProtocolVersion
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	// ErrClientNotFound is returned for an unknown connection handle
	ErrClientNotFound = errors.New("client not found")
)

// Contains statistics about a source
type SourceStats struct {
	Type            string
	TotalMessages   uint64
	TotalFrames     uint64
	AbortedConns    uint64
	DiscardedChunks uint64
	StartTime       time.Time
	LastMessageTime time.Time
	Details         map[string]any
}
