// ABOUTME: Recording taps that write every emitted sample to a WAV file
// ABOUTME: Wrap a Converter or FIFO; the interrupt side only copies into a preallocated block
package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// tapBlockFrames is the number of frames handed to the writer at once
const tapBlockFrames = 4096

// tapBlocks is how many blocks may wait for the writer before samples are dropped
const tapBlocks = 8

// WAVTap records samples to a 16-bit PCM WAV file.
//
// Samples are collected in blocks on the interrupt side and encoded by a
// writer goroutine. When the writer falls behind, whole blocks are dropped
// and counted instead of blocking the handler.
type WAVTap struct {
	enc      *wav.Encoder
	channels int
	rate     int

	free    chan []int
	full    chan []int
	current []int
	dropped atomic.Uint64
	written atomic.Uint64

	wg      sync.WaitGroup
	errMu   sync.Mutex
	err     error
	closeMu sync.Mutex
	closed  bool
}

// NewWAVTap starts a recording of the given format
func NewWAVTap(w io.WriteSeeker, rate, channels int) *WAVTap {
	t := &WAVTap{
		enc:      wav.NewEncoder(w, rate, 16, channels, 1),
		channels: channels,
		rate:     rate,
		free:     make(chan []int, tapBlocks),
		full:     make(chan []int, tapBlocks),
	}
	for i := 0; i < tapBlocks; i++ {
		t.free <- make([]int, 0, tapBlockFrames*channels)
	}
	t.current = <-t.free

	t.wg.Add(1)
	go t.writer()
	return t
}

func (t *WAVTap) writer() {
	defer t.wg.Done()
	format := &goaudio.Format{NumChannels: t.channels, SampleRate: t.rate}
	for block := range t.full {
		buf := &goaudio.IntBuffer{Format: format, Data: block, SourceBitDepth: 16}
		if err := t.enc.Write(buf); err != nil {
			t.errMu.Lock()
			if t.err == nil {
				t.err = fmt.Errorf("failed to write wav samples: %w", err)
			}
			t.errMu.Unlock()
		}
		t.written.Add(uint64(len(block) / t.channels))
		t.free <- block[:0]
	}
}

// record appends one frame; called from interrupt context
func (t *WAVTap) record(samples ...int16) {
	if t.current == nil {
		select {
		case t.current = <-t.free:
		default:
			t.dropped.Add(1)
			return
		}
	}
	for _, s := range samples {
		t.current = append(t.current, int(s))
	}
	if len(t.current) >= tapBlockFrames*t.channels {
		select {
		case t.full <- t.current:
		default:
			t.dropped.Add(uint64(len(t.current) / t.channels))
			t.free <- t.current[:0]
		}
		t.current = nil
	}
}

// Dropped returns how many frames were lost because the writer fell behind
func (t *WAVTap) Dropped() uint64 {
	return t.dropped.Load()
}

// Written returns how many frames reached the encoder
func (t *WAVTap) Written() uint64 {
	return t.written.Load()
}

// Close flushes pending samples and finalizes the WAV header.
// The handler must no longer be running.
func (t *WAVTap) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	if len(t.current) > 0 {
		t.full <- t.current
		t.current = nil
	}
	close(t.full)
	t.wg.Wait()

	if err := t.enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// ConverterTap records converter codes as 16-bit mono samples
type ConverterTap struct {
	*WAVTap
	next   Converter
	shift  uint
	offset int32
}

// NewConverterTap wraps a converter of the given resolution
func NewConverterTap(w io.WriteSeeker, next Converter, rate, bits int) *ConverterTap {
	if bits <= 0 || bits > 16 {
		bits = DefaultConverterBits
	}
	return &ConverterTap{
		WAVTap: NewWAVTap(w, rate, 1),
		next:   next,
		shift:  uint(16 - bits),
		offset: int32(1) << (bits - 1),
	}
}

// Convert records the code and forwards it
func (c *ConverterTap) Convert(code uint16) {
	c.record(int16((int32(code) - c.offset) << c.shift))
	if c.next != nil {
		c.next.Convert(code)
	}
}

// FIFOTap records packed words as 16-bit stereo samples
type FIFOTap struct {
	*WAVTap
	next FIFO
}

// NewFIFOTap wraps a FIFO
func NewFIFOTap(w io.WriteSeeker, next FIFO, rate int) *FIFOTap {
	return &FIFOTap{WAVTap: NewWAVTap(w, rate, 2), next: next}
}

// Attach installs the handler on the wrapped FIFO
func (f *FIFOTap) Attach(handler func()) {
	f.next.Attach(handler)
}

// Open brings up the wrapped FIFO when it needs it
func (f *FIFOTap) Open() error {
	if o, ok := f.next.(opener); ok {
		return o.Open()
	}
	return nil
}

// EnableInterrupt forwards to the wrapped FIFO
func (f *FIFOTap) EnableInterrupt() {
	f.next.EnableInterrupt()
}

// DisableInterrupt forwards to the wrapped FIFO
func (f *FIFOTap) DisableInterrupt() {
	f.next.DisableInterrupt()
}

// Write records the word and forwards it
func (f *FIFOTap) Write(word uint32) {
	f.record(int16(word>>16), int16(word))
	f.next.Write(word)
}
