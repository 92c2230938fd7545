// FILE: logmonitor/src/internal/wire/split.go
package wire

// maxChunk is the payload a chunk can carry next to its NUL
const maxChunk = ChunkSize - 1

// Split cuts text into the text frames a producer sends for one message.
// Every frame repeats the header fields; only the chunk changes.
func Split(hdr TextBody, text []byte) []Frame {
	if len(text) < ChunkSize {
		body := hdr
		body.Chunk = text
		return []Frame{{Type: TypeSimple, Text: &body}}
	}

	frames := make([]Frame, 0, (len(text)+maxChunk-1)/maxChunk)
	for off := 0; off < len(text); off += maxChunk {
		end := min(off+maxChunk, len(text))
		body := hdr
		body.Chunk = text[off:end]

		typ := TypeContinuation
		if end == len(text) {
			typ = TypeContinuationEnd
		}
		frames = append(frames, Frame{Type: typ, Text: &body})
	}
	return frames
}

// EncodeMessage splits text and encodes every resulting frame into one buffer
func EncodeMessage(hdr TextBody, text []byte) ([]byte, error) {
	frames := Split(hdr, text)
	out := make([]byte, 0, len(frames)*FrameSize)
	var err error
	for _, f := range frames {
		if out, err = AppendFrame(out, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}
