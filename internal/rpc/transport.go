// Package rpc implements the RPC boundary: a TCP listener keyed by a 5-byte service
// identifier, the three service façades (general, project-selection, project), and the
// transport that multiplexes calls and streaming subscriptions over a single connection.
package rpc

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

type frameKind uint8

const (
	frameCall frameKind = iota
	frameReturn
	frameStreamData
	frameStreamWrite
)

// frame is the one wire envelope every message on a connection uses, whether it's a call,
// a call's return, or a push/write belonging to an open stream. Payload stays raw until
// whichever side expects it for this Method/StreamID decodes it.
type frame struct {
	Kind     frameKind       `json:"kind"`
	CallID   uint64          `json:"callId,omitempty"`
	StreamID uint64          `json:"streamId,omitempty"`
	Method   string          `json:"method,omitempty"`
	Ok       bool            `json:"ok,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// maxFrameSize bounds a single frame well above a full 512-slot universe snapshot, so a
// corrupt length prefix can't make the reader allocate an unbounded buffer.
const maxFrameSize = 4 << 20

// Transport multiplexes calls and stream frames over one TCP connection: exactly one call
// frame is handed to the service bootstrap at a time, while any number of open streams push
// and receive frames independently through the same length-prefixed JSON framing.
// Length-prefixing (rather than newline-delimited framing) is what lets concurrent streams
// interleave safely on one connection without a delimiter collision.
type Transport struct {
	conn    net.Conn
	r       *bufio.Reader
	writeMu sync.Mutex

	calls chan frame

	streamMu sync.Mutex
	streams  map[uint64]chan frame
	nextID   atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport wraps conn; the caller must run ReadLoop in its own goroutine before issuing
// any calls through the returned Transport.
func NewTransport(conn net.Conn) *Transport {
	return &Transport{
		conn:    conn,
		r:       bufio.NewReader(conn),
		calls:   make(chan frame),
		streams: make(map[uint64]chan frame),
		closed:  make(chan struct{}),
	}
}

// Close tears down the connection; safe to call more than once.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
		_ = t.conn.Close()
	})
}

// Done reports when the transport has closed, for bridge goroutines selecting alongside it.
func (t *Transport) Done() <-chan struct{} { return t.closed }

// ReadLoop decodes frames until the connection errors or closes, routing call frames to the
// single-worker dispatch loop (NextCall) and stream-write frames to their registered inbox.
// It returns once the connection is no longer readable.
func (t *Transport) ReadLoop() {
	defer t.Close()

	for {
		f, err := t.readFrame()
		if err != nil {
			return
		}

		switch f.Kind {
		case frameCall:
			select {
			case t.calls <- f:
			case <-t.closed:
				return
			}
		case frameStreamWrite:
			t.streamMu.Lock()
			ch, ok := t.streams[f.StreamID]
			t.streamMu.Unlock()

			if ok {
				select {
				case ch <- f:
				default:
					// Inbox full: dropped, like a slow subscriber on the universe broadcast.
				}
			}
		}
	}
}

func (t *Transport) readFrame() (frame, error) {
	var length uint32
	if err := binary.Read(t.r, binary.BigEndian, &length); err != nil {
		return frame{}, err
	}

	if length > maxFrameSize {
		return frame{}, fmt.Errorf("rpc: frame of %d bytes exceeds maximum", length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return frame{}, err
	}

	var f frame
	if err := json.Unmarshal(buf, &f); err != nil {
		return frame{}, err
	}

	return f, nil
}

func (t *Transport) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := t.conn.Write(length[:]); err != nil {
		return err
	}

	_, err = t.conn.Write(data)

	return err
}

// Call marshals payload to JSON and sends it in a call frame for method. It is the
// caller-side half of the protocol; the server side never calls it, but the test suite uses
// it to exercise a service bootstrap the way a real peer would.
func (t *Transport) Call(callID uint64, method string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return t.writeFrame(frame{Kind: frameCall, CallID: callID, Method: method, Payload: raw})
}

// WriteStream sends a frameStreamWrite frame for an open bidirectional stream, the caller-side
// half of universe_sub's write direction.
func (t *Transport) WriteStream(streamID uint64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return t.writeFrame(frame{Kind: frameStreamWrite, StreamID: streamID, Payload: raw})
}

// NextCall blocks for the next call frame, the single-worker dispatch loop every service
// bootstrap runs to guarantee concurrency 1.
func (t *Transport) NextCall() (frame, bool) {
	select {
	case f := <-t.calls:
		return f, true
	case <-t.closed:
		return frame{}, false
	}
}

// Reply answers a call frame's CallID with ok/payload.
func (t *Transport) Reply(callID uint64, ok bool, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return t.writeFrame(frame{Kind: frameReturn, CallID: callID, Ok: ok, Payload: raw})
}

// OpenStream allocates a new stream id and registers an inbox for frameStreamWrite frames
// addressed to it, for a bidirectional stream such as universe_sub. The returned cancel must
// be called exactly once, when the owning bridge goroutine exits, to release the inbox.
func (t *Transport) OpenStream() (id uint64, inbox <-chan frame, cancel func()) {
	sid := t.nextID.Add(1)
	ch := make(chan frame, 32)

	t.streamMu.Lock()
	t.streams[sid] = ch
	t.streamMu.Unlock()

	return sid, ch, func() {
		t.streamMu.Lock()
		delete(t.streams, sid)
		t.streamMu.Unlock()
	}
}

// NewPushStreamID allocates a stream id for a server-push-only stream (info/status), which
// needs no inbound routing.
func (t *Transport) NewPushStreamID() uint64 {
	return t.nextID.Add(1)
}

// PushStream sends a frameStreamData frame carrying payload on an already-opened stream id.
func (t *Transport) PushStream(id uint64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return t.writeFrame(frame{Kind: frameStreamData, StreamID: id, Payload: raw})
}

// ReadFrame exposes readFrame to the test suite, which plays the role of the RPC peer and
// needs to read raw call returns/stream pushes the same way ReadLoop would.
func (t *Transport) ReadFrame() (kind frameKind, callID, streamID uint64, ok bool, payload json.RawMessage, err error) {
	f, err := t.readFrame()
	if err != nil {
		return 0, 0, 0, false, nil, err
	}

	return f.Kind, f.CallID, f.StreamID, f.Ok, f.Payload, nil
}
