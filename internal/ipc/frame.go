package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single frame payload. A length prefix beyond this
// means the stream is corrupt, not that the peer sent a huge message.
const maxFrameSize = 16 << 20

// ProtocolError reports malformed wire data. For an undecodable payload in
// an intact frame the channel skips and keeps reading; for a corrupt length
// prefix it gives up, since frame alignment is lost.
type ProtocolError struct {
	Reason string
	Cause  error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Cause)
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// EncodeFrame returns the wire form of payload: a 4-byte little-endian
// length prefix followed by the payload itself, as one contiguous buffer so
// the caller can emit it with a single write.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	return frame
}

// ReadFrame reads exactly one frame from r. io.ReadFull reassembles frames
// split across arbitrary read boundaries; frames batched into one OS read
// are consumed one call at a time.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head[:])
	if n > maxFrameSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame length %d exceeds limit", n)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
