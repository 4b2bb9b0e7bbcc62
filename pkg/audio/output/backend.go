// ABOUTME: Backend interface and per-track playback session
// ABOUTME: Sessions own the PCM ring and are swapped atomically under the interrupt handler
package output

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sdplay/sdplay-go/pkg/audio"
	"github.com/sdplay/sdplay-go/pkg/audio/ring"
)

// DefaultRingSize holds two MPEG frames of mono samples
const DefaultRingSize = 2 * 1152

var (
	// ErrChannelCount is returned for frames that are neither mono nor stereo
	ErrChannelCount = errors.New("unsupported channel count")

	// ErrBadRate is returned for sample rates the backend cannot produce
	ErrBadRate = errors.New("invalid sample rate")

	// ErrNotOpen is returned when no session is active
	ErrNotOpen = errors.New("no active session")
)

// Backend is an output path from the decode loop to a sample sink.
//
// Enqueue, AdjustRate, Enable, Disable and WaitForDrain are called from the
// decode goroutine only.
type Backend interface {
	// Name identifies the backend in logs and status
	Name() string

	// NewSession starts a fresh session for one track
	NewSession() (*Session, error)

	// Session returns the active session, or nil
	Session() *Session

	// AdjustRate retunes the sink for a new sample rate
	AdjustRate(rate int) error

	// Enqueue pushes a frame through the channel policy, waiting while the ring is full
	Enqueue(f audio.Frame) error

	// Enable starts the interrupt source
	Enable()

	// Disable stops the interrupt source
	Disable()

	// Enabled reports whether the interrupt source is running
	Enabled() bool

	// WaitForDrain waits until every queued sample was emitted, then disables output
	WaitForDrain()

	// Close stops output and releases peripherals
	Close() error
}

// opener is a peripheral that must be brought up before it raises interrupts
type opener interface {
	Open() error
}

// faulter reports a peripheral that failed to come up
type faulter interface {
	Err() error
}

// VolumeControl is implemented by backends with a hardware volume
type VolumeControl interface {
	SetVolume(volume int) error
	SetMuted(muted bool) error
}

// Session is the state of one track's playback
type Session struct {
	ID      string
	Started time.Time

	ring    *ring.Ring
	rate    atomic.Int64
	enabled atomic.Bool
	emitted atomic.Uint64
}

func newSession(ringSize int) *Session {
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	return &Session{
		ID:      uuid.New().String(),
		Started: time.Now(),
		ring:    ring.New(ringSize),
	}
}

// Ring returns the session's PCM ring
func (s *Session) Ring() *ring.Ring {
	return s.ring
}

// CurrentRate returns the rate the sink is tuned to, 0 before the first frame
func (s *Session) CurrentRate() int {
	return int(s.rate.Load())
}

// Enabled reports whether output is running for this session
func (s *Session) Enabled() bool {
	return s.enabled.Load()
}

// Underruns returns how many samples were replaced by silence
func (s *Session) Underruns() uint64 {
	return s.ring.Underruns()
}

// Emitted returns how many interrupts the handler served
func (s *Session) Emitted() uint64 {
	return s.emitted.Load()
}

// sessionHolder is the part shared by both backends
type sessionHolder struct {
	ringSize int
	policy   Policy
	current  atomic.Pointer[Session]
}

func (h *sessionHolder) open() *Session {
	s := newSession(h.ringSize)
	h.current.Store(s)
	return s
}

// Session returns the active session, or nil
func (h *sessionHolder) Session() *Session {
	return h.current.Load()
}

// Enqueue pushes a frame through the backend's channel policy
func (h *sessionHolder) Enqueue(f audio.Frame) error {
	s := h.current.Load()
	if s == nil {
		return ErrNotOpen
	}
	return h.policy(s.ring, f)
}

// Enabled reports whether output is running
func (h *sessionHolder) Enabled() bool {
	s := h.current.Load()
	return s != nil && s.enabled.Load()
}

// drain spins until the ring is empty. It returns at once when output is
// not running since nothing would consume the ring.
func (h *sessionHolder) drain() {
	s := h.current.Load()
	if s == nil {
		return
	}
	for s.enabled.Load() && !s.ring.Empty() {
		runtime.Gosched()
	}
}

func (h *sessionHolder) setEnabled(v bool) {
	if s := h.current.Load(); s != nil {
		s.enabled.Store(v)
	}
}

func (h *sessionHolder) setRate(rate int) {
	if s := h.current.Load(); s != nil {
		s.rate.Store(int64(rate))
	}
}
