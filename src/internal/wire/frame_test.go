// FILE: logmonitor/src/internal/wire/frame_test.go
package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLayout(t *testing.T) {
	assert.Equal(t, 344, FrameSize)
	assert.Equal(t, 316, connBodyEnd)
	assert.Equal(t, 340, textBodyEnd)
	assert.LessOrEqual(t, textBodyEnd, FrameSize)
}

func TestEncodeDecode(t *testing.T) {
	t.Run("Connection", func(t *testing.T) {
		in := Frame{Type: TypeConnection, Connection: &ConnectionBody{
			Version: 2, Pid: 4242, Machine: "build-01", ExePath: `C:\tools\app.exe`,
		}}
		buf, err := Encode(in)
		require.NoError(t, err)
		require.Len(t, buf, FrameSize)
		assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf))
		assert.Equal(t, uint64(4242), binary.LittleEndian.Uint64(buf[16:]))

		out, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Text", func(t *testing.T) {
		in := Frame{Type: TypeSimple, Text: &TextBody{
			Timestamp: 1700000000123, Severity: 3, Module: "net", Channel: "socket", Chunk: []byte("hello"),
		}}
		buf, err := Encode(in)
		require.NoError(t, err)

		out, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.Equal(t, "hello", string(buf[84:89]))
	})

	t.Run("TruncatesFixedStrings", func(t *testing.T) {
		long := strings.Repeat("m", 100)
		buf, err := Encode(Frame{Type: TypeConnection, Connection: &ConnectionBody{Machine: long}})
		require.NoError(t, err)

		out, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("m", MachineSize-1), out.Connection.Machine)
	})

	t.Run("StopsAtFirstNul", func(t *testing.T) {
		buf, err := Encode(Frame{Type: TypeSimple, Text: &TextBody{Chunk: []byte("abc\x00def")}})
		require.NoError(t, err)

		out, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), out.Text.Chunk)
	})

	t.Run("ShortBuffer", func(t *testing.T) {
		_, err := Decode(make([]byte, FrameSize-1))
		assert.ErrorIs(t, err, ErrShortFrame)
	})

	t.Run("UnknownType", func(t *testing.T) {
		buf := make([]byte, FrameSize)
		binary.LittleEndian.PutUint32(buf, 9)
		_, err := Decode(buf)
		assert.ErrorIs(t, err, ErrUnknownType)

		_, err = Encode(Frame{Type: 9})
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("MissingBody", func(t *testing.T) {
		_, err := Encode(Frame{Type: TypeSimple})
		assert.ErrorIs(t, err, ErrBodyMissing)
	})
}

func TestSplit(t *testing.T) {
	hdr := TextBody{Timestamp: 10, Severity: 1, Module: "mod", Channel: "chan"}

	testCases := []struct {
		name  string
		size  int
		types []MessageType
	}{
		{"Empty", 0, []MessageType{TypeSimple}},
		{"FitsOneChunk", 255, []MessageType{TypeSimple}},
		{"ExactlyChunkSize", 256, []MessageType{TypeContinuation, TypeContinuationEnd}},
		{"TwoFullPieces", 510, []MessageType{TypeContinuation, TypeContinuationEnd}},
		{"ThreePieces", 600, []MessageType{TypeContinuation, TypeContinuation, TypeContinuationEnd}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := bytes.Repeat([]byte("x"), tc.size)
			frames := Split(hdr, text)

			var types []MessageType
			var joined []byte
			for _, f := range frames {
				types = append(types, f.Type)
				require.NotNil(t, f.Text)
				assert.Equal(t, hdr.Module, f.Text.Module)
				assert.Equal(t, hdr.Timestamp, f.Text.Timestamp)
				assert.LessOrEqual(t, len(f.Text.Chunk), maxChunk)
				joined = append(joined, f.Text.Chunk...)
			}
			assert.Equal(t, tc.types, types)
			assert.Equal(t, string(text), string(joined))
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	text := []byte(strings.Repeat("héllo wörld ", 60))
	buf, err := EncodeMessage(TextBody{Severity: 2}, text)
	require.NoError(t, err)
	require.Zero(t, len(buf)%FrameSize)

	var got []byte
	for len(buf) > 0 {
		f, err := Decode(buf)
		require.NoError(t, err)
		got = append(got, f.Text.Chunk...)
		buf = buf[FrameSize:]
	}
	assert.Equal(t, text, got)
}
