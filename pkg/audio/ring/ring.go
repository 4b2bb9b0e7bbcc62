// ABOUTME: Lock-free single-producer single-consumer PCM ring buffer
// ABOUTME: Bridges the decode loop and the interrupt handler that feeds the sink
package ring

import (
	"runtime"
	"sync/atomic"
)

// Silence is returned by Pop when the ring is empty
const Silence int16 = 0

// Ring is a fixed-capacity circular buffer of 16-bit samples.
//
// One slot is always kept free, so a ring created with New(n) holds at most
// n-1 samples: full means (w+1)%n == r and empty means w == r.
//
// The write index is only stored by the producer and the read index only by
// the consumer; each side merely loads the other's index. This split
// ownership is what makes the ring safe without locks. Adding a second
// producer or consumer breaks it.
//
// Thread assignment:
//   - Push, TryPush, Full: producer (decode loop) only
//   - Pop, TryPop, PopPair: consumer (interrupt handler) only
type Ring struct {
	w    atomic.Uint32
	_pad [60]byte
	r    atomic.Uint32

	underruns atomic.Uint64

	buf  []int16
	size uint32
}

// New creates a ring with size storage slots (usable capacity size-1)
func New(size int) *Ring {
	if size < 2 {
		size = 2
	}
	return &Ring{
		buf:  make([]int16, size),
		size: uint32(size),
	}
}

func (rb *Ring) next(i uint32) uint32 {
	i++
	if i == rb.size {
		return 0
	}
	return i
}

// TryPush writes one sample if there is room. Producer only.
func (rb *Ring) TryPush(s int16) bool {
	w := rb.w.Load()
	nw := rb.next(w)
	if nw == rb.r.Load() {
		return false
	}
	rb.buf[w] = s
	rb.w.Store(nw)
	return true
}

// Push writes one sample, spinning while the ring is full. Producer only.
func (rb *Ring) Push(s int16) {
	for !rb.TryPush(s) {
		runtime.Gosched()
	}
}

// TryPop reads one sample if available. Consumer only. Never blocks.
func (rb *Ring) TryPop() (int16, bool) {
	r := rb.r.Load()
	if r == rb.w.Load() {
		return Silence, false
	}
	s := rb.buf[r]
	rb.r.Store(rb.next(r))
	return s, true
}

// Pop reads one sample, returning Silence on underrun. Consumer only.
func (rb *Ring) Pop() int16 {
	s, ok := rb.TryPop()
	if !ok {
		rb.underruns.Add(1)
	}
	return s
}

// PopPair reads two consecutive samples. With fewer than two buffered it
// reads nothing and returns Silence for both, so interleaved channels stay
// aligned across an underrun. Consumer only. Never blocks.
func (rb *Ring) PopPair() (int16, int16) {
	r := rb.r.Load()
	w := rb.w.Load()
	if (w+rb.size-r)%rb.size < 2 {
		rb.underruns.Add(1)
		return Silence, Silence
	}
	a := rb.buf[r]
	r = rb.next(r)
	b := rb.buf[r]
	rb.r.Store(rb.next(r))
	return a, b
}

// Len returns the number of buffered samples
func (rb *Ring) Len() int {
	w := rb.w.Load()
	r := rb.r.Load()
	if w >= r {
		return int(w - r)
	}
	return int(w + rb.size - r)
}

// Cap returns the usable capacity (storage size minus one)
func (rb *Ring) Cap() int {
	return int(rb.size) - 1
}

// Empty reports whether there is nothing to read
func (rb *Ring) Empty() bool {
	return rb.w.Load() == rb.r.Load()
}

// Full reports whether a push would have to wait
func (rb *Ring) Full() bool {
	return rb.next(rb.w.Load()) == rb.r.Load()
}

// Underruns returns how many pops found the ring empty
func (rb *Ring) Underruns() uint64 {
	return rb.underruns.Load()
}

// Reset empties the ring. Only valid while neither side is running.
func (rb *Ring) Reset() {
	rb.w.Store(0)
	rb.r.Store(0)
	rb.underruns.Store(0)
}
