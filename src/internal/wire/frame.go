// FILE: logmonitor/src/internal/wire/frame.go
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultPort is the well-known producer port (0xCC9)
const DefaultPort = 3273

// ProtocolVersion is the highest producer version the server accepts
const ProtocolVersion = 2

// Fixed field widths, each including the terminating NUL
const (
	MachineSize = 32
	PathSize    = 260
	ModuleSize  = 32
	ChannelSize = 32
	ChunkSize   = 256
)

// Frame layout: a u32 discriminator followed by an 8-aligned union of the two bodies
const (
	bodyOffset = 8

	connVersionOffset = bodyOffset
	connPidOffset     = bodyOffset + 8
	connMachineOffset = connPidOffset + 8
	connPathOffset    = connMachineOffset + MachineSize

	textTimestampOffset = bodyOffset
	textSeverityOffset  = textTimestampOffset + 8
	textModuleOffset    = textSeverityOffset + 4
	textChannelOffset   = textModuleOffset + ModuleSize
	textChunkOffset     = textChannelOffset + ChannelSize

	connBodyEnd = connPathOffset + PathSize   // 316
	textBodyEnd = textChunkOffset + ChunkSize // 340

	// FrameSize is constant so the stream needs no length prefix
	FrameSize = bodyOffset + 336
)

// MessageType is the frame discriminator
type MessageType uint32

const (
	TypeConnection MessageType = iota
	TypeSimple
	TypeLarge
	TypeContinuation
	TypeContinuationEnd
)

func (t MessageType) String() string {
	switch t {
	case TypeConnection:
		return "CONNECTION"
	case TypeSimple:
		return "SIMPLE"
	case TypeLarge:
		return "LARGE"
	case TypeContinuation:
		return "CONTINUATION"
	case TypeContinuationEnd:
		return "CONTINUATION_END"
	default:
		return fmt.Sprintf("TYPE(%d)", uint32(t))
	}
}

// IsText reports whether the frame carries a text body
func (t MessageType) IsText() bool {
	return t >= TypeSimple && t <= TypeContinuationEnd
}

// Final reports whether a text frame completes the in-progress message
func (t MessageType) Final() bool {
	return t == TypeSimple || t == TypeContinuationEnd
}

var (
	ErrShortFrame  = errors.New("wire: incomplete frame")
	ErrUnknownType = errors.New("wire: unknown message type")
	ErrBodyMissing = errors.New("wire: frame body missing")
)

// ConnectionBody is the handshake sent once per connection
type ConnectionBody struct {
	Version uint32
	Pid     uint64
	Machine string
	ExePath string
}

// TextBody carries one chunk of a message
type TextBody struct {
	Timestamp uint64
	Severity  uint32
	Module    string
	Channel   string
	Chunk     []byte
}

// Frame is one decoded wire unit; exactly one body is set
type Frame struct {
	Type       MessageType
	Connection *ConnectionBody
	Text       *TextBody
}

// Decode reads exactly one frame from the head of buf.
// ErrShortFrame means the caller must wait for more bytes.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < FrameSize {
		return Frame{}, ErrShortFrame
	}
	buf = buf[:FrameSize]

	f := Frame{Type: MessageType(binary.LittleEndian.Uint32(buf))}
	switch {
	case f.Type == TypeConnection:
		f.Connection = &ConnectionBody{
			Version: binary.LittleEndian.Uint32(buf[connVersionOffset:]),
			Pid:     binary.LittleEndian.Uint64(buf[connPidOffset:]),
			Machine: string(cString(buf[connMachineOffset:connPathOffset])),
			ExePath: string(cString(buf[connPathOffset:connBodyEnd])),
		}
	case f.Type.IsText():
		chunk := cString(buf[textChunkOffset:textBodyEnd])
		f.Text = &TextBody{
			Timestamp: binary.LittleEndian.Uint64(buf[textTimestampOffset:]),
			Severity:  binary.LittleEndian.Uint32(buf[textSeverityOffset:]),
			Module:    string(cString(buf[textModuleOffset:textChannelOffset])),
			Channel:   string(cString(buf[textChannelOffset:textChunkOffset])),
			Chunk:     append([]byte(nil), chunk...),
		}
	default:
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownType, uint32(f.Type))
	}
	return f, nil
}

// Encode serializes f into a new FrameSize buffer
func Encode(f Frame) ([]byte, error) {
	return AppendFrame(nil, f)
}

// AppendFrame appends the encoding of f to dst
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, FrameSize)...)
	buf := dst[start:]

	binary.LittleEndian.PutUint32(buf, uint32(f.Type))
	switch {
	case f.Type == TypeConnection:
		if f.Connection == nil {
			return dst[:start], ErrBodyMissing
		}
		c := f.Connection
		binary.LittleEndian.PutUint32(buf[connVersionOffset:], c.Version)
		binary.LittleEndian.PutUint64(buf[connPidOffset:], c.Pid)
		putString(buf[connMachineOffset:connPathOffset], c.Machine)
		putString(buf[connPathOffset:connBodyEnd], c.ExePath)
	case f.Type.IsText():
		if f.Text == nil {
			return dst[:start], ErrBodyMissing
		}
		t := f.Text
		binary.LittleEndian.PutUint64(buf[textTimestampOffset:], t.Timestamp)
		binary.LittleEndian.PutUint32(buf[textSeverityOffset:], t.Severity)
		putString(buf[textModuleOffset:textChannelOffset], t.Module)
		putString(buf[textChannelOffset:textChunkOffset], t.Channel)
		putBytes(buf[textChunkOffset:textBodyEnd], t.Chunk)
	default:
		return dst[:start], fmt.Errorf("%w: %d", ErrUnknownType, uint32(f.Type))
	}
	return dst, nil
}

// cString returns the bytes before the first NUL
func cString(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func putString(dst []byte, s string) {
	n := min(len(s), len(dst)-1)
	copy(dst, s[:n])
}

func putBytes(dst []byte, b []byte) {
	n := min(len(b), len(dst)-1)
	copy(dst, b[:n])
}
