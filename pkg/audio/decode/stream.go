// ABOUTME: Stream window and consumption cursor shared with the input callback
// ABOUTME: Also adapts the window to io.Reader for pull-style decoders
package decode

import (
	"io"

	"github.com/sdplay/sdplay-go/pkg/audio/stage"
)

// Stream is the window of compressed bytes an engine is working on
type Stream struct {
	buf  []byte
	next int
	fed  bool
}

// NewStream creates an empty stream
func NewStream() *Stream {
	return &Stream{}
}

// SetBuffer hands the engine a new window starting at its first unconsumed byte
func (s *Stream) SetBuffer(b []byte) {
	s.buf = b
	s.next = 0
	s.fed = true
}

// Remaining returns the bytes not yet consumed
func (s *Stream) Remaining() []byte {
	return s.buf[s.next:]
}

// Advance marks n more bytes as consumed
func (s *Stream) Advance(n int) {
	s.next += n
	if s.next > len(s.buf) {
		s.next = len(s.buf)
	}
}

// Cursor reports where the next window should start
func (s *Stream) Cursor() stage.Cursor {
	return stage.Cursor{Next: s.next, Valid: s.fed}
}

// streamReader lets reader-based decoders pull from the window.
// Everything copied out counts as consumed.
type streamReader struct {
	s       *Stream
	input   func(*Stream) Flow
	stopped bool
}

func newStreamReader(s *Stream, input func(*Stream) Flow) *streamReader {
	return &streamReader{s: s, input: input}
}

func (r *streamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.s.Remaining()) == 0 {
		if r.stopped || r.input == nil {
			return 0, io.EOF
		}
		if r.input(r.s) != FlowContinue || len(r.s.Remaining()) == 0 {
			r.stopped = true
			return 0, io.EOF
		}
	}
	n := copy(p, r.s.Remaining())
	r.s.Advance(n)
	return n, nil
}
