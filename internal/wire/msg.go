// Package wire defines the frame-level message type shared by every socket
// in this service and the thin transport abstraction built on top of
// github.com/go-zeromq/zmq4 (socket.go). Keeping Msg decoupled from any
// concrete zmq4 type lets every component (cache, api, proxy, zap) be unit
// tested against in-memory fakes that implement the same Socket interface.
package wire

// Msg is a multi-frame ZeroMQ message: an ordered list of byte frames, plus
// whatever connection metadata (from the CURVE security handshake/ZAP
// reply, e.g. the peer's Name/Type properties) the transport attached.
type Msg struct {
	Frames [][]byte
	Meta   map[string]string
}

// NewMsg builds a Msg from string frames, the common case for this
// service's text-framed protocols.
func NewMsg(frames ...string) Msg {
	m := Msg{Frames: make([][]byte, len(frames))}
	for i, f := range frames {
		m.Frames[i] = []byte(f)
	}
	return m
}

// NewMsgBytes builds a Msg from raw byte frames.
func NewMsgBytes(frames ...[]byte) Msg {
	return Msg{Frames: frames}
}

// String returns frame i decoded as text, or "" if out of range.
func (m Msg) String(i int) string {
	if i < 0 || i >= len(m.Frames) {
		return ""
	}
	return string(m.Frames[i])
}

// Bytes returns frame i, or nil if out of range.
func (m Msg) Bytes(i int) []byte {
	if i < 0 || i >= len(m.Frames) {
		return nil
	}
	return m.Frames[i]
}

// Len reports the number of frames.
func (m Msg) Len() int { return len(m.Frames) }

// Prepend returns a copy of m with frames prepended in front.
func (m Msg) Prepend(frames ...[]byte) Msg {
	out := make([][]byte, 0, len(frames)+len(m.Frames))
	out = append(out, frames...)
	out = append(out, m.Frames...)
	return Msg{Frames: out}
}

// Tail returns the frames of m starting at index i (an empty slice, never
// nil, when i >= len(m.Frames)).
func (m Msg) Tail(i int) [][]byte {
	if i >= len(m.Frames) {
		return [][]byte{}
	}
	return m.Frames[i:]
}
