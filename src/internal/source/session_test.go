// FILE: logmonitor/src/internal/source/session_test.go
package source

import (
	"strings"
	"testing"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshake(version uint32) wire.Frame {
	return wire.Frame{Type: wire.TypeConnection, Connection: &wire.ConnectionBody{
		Version: version,
		Pid:     4242,
		Machine: "build-01",
		ExePath: "/usr/bin/app",
	}}
}

func TestSession_Handshake(t *testing.T) {
	t.Run("TextFirst", func(t *testing.T) {
		s := newSession("127.0.0.1:1")
		_, err := s.handle(wire.Frame{Type: wire.TypeSimple, Text: &wire.TextBody{Chunk: []byte("x")}})
		assert.ErrorIs(t, err, ErrProtocol)
		assert.False(t, s.active())
	})

	t.Run("FutureVersion", func(t *testing.T) {
		s := newSession("127.0.0.1:1")
		_, err := s.handle(handshake(wire.ProtocolVersion + 1))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("Accepted", func(t *testing.T) {
		s := newSession("127.0.0.1:1")
		msg, err := s.handle(handshake(2))
		require.NoError(t, err)
		assert.Nil(t, msg)
		require.True(t, s.active())
		assert.Equal(t, uint64(4242), s.client.Pid)
		assert.Equal(t, "build-01", s.client.Machine)
		assert.NotEmpty(t, s.client.ID)
		assert.False(t, s.client.ConnectedAt.IsZero())
	})

	t.Run("SecondHandshake", func(t *testing.T) {
		s := newSession("127.0.0.1:1")
		_, err := s.handle(handshake(2))
		require.NoError(t, err)
		_, err = s.handle(handshake(2))
		assert.ErrorIs(t, err, ErrProtocol)
	})
}

func TestSession_Reassembly(t *testing.T) {
	s := newSession("127.0.0.1:1")
	_, err := s.handle(handshake(2))
	require.NoError(t, err)

	text := strings.Repeat("abcdefgh", 100)
	frames := wire.Split(wire.TextBody{
		Timestamp: 1700000000123,
		Severity:  uint32(core.SeverityError),
		Module:    "net",
		Channel:   "socket",
	}, []byte(text))
	require.Greater(t, len(frames), 1)

	var got *core.LogMessage
	for i, f := range frames {
		msg, err := s.handle(f)
		require.NoError(t, err)
		if i < len(frames)-1 {
			assert.Nil(t, msg)
			assert.Equal(t, i+1, s.chunks)
		} else {
			got = msg
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, text, got.Message)
	assert.Equal(t, int64(1700000000123), got.Timestamp)
	assert.Equal(t, core.SeverityError, got.Severity)
	assert.Equal(t, uint64(4242), got.Pid)
	assert.Equal(t, "/usr/bin/app", got.ExePath)
	assert.Equal(t, 0, s.chunks)

	// Buffer is reset for the next message
	msg, err := s.handle(wire.Frame{Type: wire.TypeSimple, Text: &wire.TextBody{Chunk: []byte("next")}})
	require.NoError(t, err)
	assert.Equal(t, "next", msg.Message)
}

func TestSession_LargeFirstFrame(t *testing.T) {
	s := newSession("127.0.0.1:1")
	_, err := s.handle(handshake(2))
	require.NoError(t, err)

	first := strings.Repeat("a", 255)
	msg, err := s.handle(wire.Frame{Type: wire.TypeLarge, Text: &wire.TextBody{Chunk: []byte(first)}})
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 1, s.chunks)

	msg, err = s.handle(wire.Frame{Type: wire.TypeContinuationEnd, Text: &wire.TextBody{Module: "py", Chunk: []byte("b")}})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, first+"b", msg.Message)
	assert.Len(t, msg.Message, 256)
	assert.Equal(t, "py", msg.Module)
}

func TestSession_VersionOneSeconds(t *testing.T) {
	s := newSession("127.0.0.1:1")
	_, err := s.handle(handshake(1))
	require.NoError(t, err)

	msg, err := s.handle(wire.Frame{Type: wire.TypeSimple, Text: &wire.TextBody{Timestamp: 1700000000, Chunk: []byte("v1")}})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), msg.Timestamp)
}

func TestSession_InvalidUTF8(t *testing.T) {
	s := newSession("127.0.0.1:1")
	_, err := s.handle(handshake(2))
	require.NoError(t, err)

	msg, err := s.handle(wire.Frame{Type: wire.TypeSimple, Text: &wire.TextBody{Chunk: []byte{'o', 'k', 0xff}}})
	require.NoError(t, err)
	assert.Equal(t, "ok�", msg.Message)
}
