// FILE: logmonitor/src/internal/source/session.go
package source

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/wire"

	"github.com/google/uuid"
)

type sessionState int

const (
	stateAwaitingHandshake sessionState = iota
	stateActive
)

// session is the per-connection reassembly state machine
type session struct {
	state   sessionState
	client  core.Client
	pending bytes.Buffer
	chunks  int
}

func newSession(remoteAddr string) *session {
	return &session{
		client: core.Client{
			ID:         uuid.NewString(),
			RemoteAddr: remoteAddr,
		},
	}
}

// handle advances the state machine by one frame. A non-nil message is
// returned when the frame completes one. Any error aborts the connection.
func (s *session) handle(f wire.Frame) (*core.LogMessage, error) {
	switch s.state {
	case stateAwaitingHandshake:
		if f.Type != wire.TypeConnection {
			return nil, fmt.Errorf("%w: %s before handshake", ErrProtocol, f.Type)
		}
		body := f.Connection
		if body.Version > wire.ProtocolVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, body.Version)
		}
		s.client.Version = body.Version
		s.client.Pid = body.Pid
		s.client.Machine = body.Machine
		s.client.ExePath = body.ExePath
		s.client.ConnectedAt = time.Now()
		s.state = stateActive
		return nil, nil

	case stateActive:
		if !f.Type.IsText() {
			return nil, fmt.Errorf("%w: %s while active", ErrProtocol, f.Type)
		}
		body := f.Text
		s.pending.Write(body.Chunk)
		s.chunks++
		if !f.Type.Final() {
			return nil, nil
		}

		ts := int64(body.Timestamp)
		if s.client.Version == 1 {
			ts *= 1000
		}
		msg := &core.LogMessage{
			Timestamp: ts,
			Severity:  core.Severity(body.Severity),
			Pid:       s.client.Pid,
			Machine:   s.client.Machine,
			ExePath:   s.client.ExePath,
			Module:    body.Module,
			Channel:   body.Channel,
			Message:   strings.ToValidUTF8(s.pending.String(), "\uFFFD"),
		}
		s.pending.Reset()
		s.chunks = 0
		return msg, nil
	}
	return nil, fmt.Errorf("%w: unknown state", ErrProtocol)
}

// active reports whether the handshake completed
func (s *session) active() bool {
	return s.state == stateActive
}
