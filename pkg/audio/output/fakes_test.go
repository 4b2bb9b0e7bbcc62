// ABOUTME: Fake peripherals for backend tests
// ABOUTME: Manual timer, capturing converter, capturing FIFO and a recording codec
package output

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type fakeTimer struct {
	handler func()
	period  atomic.Uint32
	running atomic.Bool
	starts  atomic.Int32
	stops   atomic.Int32
}

func (t *fakeTimer) Attach(handler func()) { t.handler = handler }
func (t *fakeTimer) SetPeriod(period uint32) {
	t.period.Store(period)
}
func (t *fakeTimer) Start() {
	t.starts.Add(1)
	t.running.Store(true)
}
func (t *fakeTimer) Stop() {
	t.stops.Add(1)
	t.running.Store(false)
}

// fire runs the handler n times as if the timer had matched
func (t *fakeTimer) fire(n int) {
	for i := 0; i < n; i++ {
		t.handler()
	}
}

// run fires the handler while the timer is started until quit is closed
func (t *fakeTimer) run(quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}
		if t.running.Load() {
			t.handler()
		} else {
			runtime.Gosched()
		}
	}
}

type captureConverter struct {
	mu    sync.Mutex
	codes []uint16
}

func (c *captureConverter) Convert(code uint16) {
	c.mu.Lock()
	c.codes = append(c.codes, code)
	c.mu.Unlock()
}

func (c *captureConverter) snapshot() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.codes...)
}

type captureFIFO struct {
	handler func()
	enabled atomic.Bool
	mu      sync.Mutex
	words   []uint32
}

func (f *captureFIFO) Attach(handler func()) { f.handler = handler }
func (f *captureFIFO) EnableInterrupt()      { f.enabled.Store(true) }
func (f *captureFIFO) DisableInterrupt()     { f.enabled.Store(false) }
func (f *captureFIFO) Write(word uint32) {
	f.mu.Lock()
	f.words = append(f.words, word)
	f.mu.Unlock()
}

func (f *captureFIFO) fire(n int) {
	for i := 0; i < n; i++ {
		f.handler()
	}
}

func (f *captureFIFO) snapshot() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.words...)
}

type fakeCodec struct {
	inits  int
	err    error
	volume int
	muted  bool
}

func (c *fakeCodec) Init() error {
	c.inits++
	return c.err
}

func (c *fakeCodec) SetVolume(v int) error {
	c.volume = v
	return nil
}

func (c *fakeCodec) SetMuted(m bool) error {
	c.muted = m
	return nil
}

// deadTimer accepts periods but reports that it cannot be clocked
type deadTimer struct {
	fakeTimer
	err error
}

func (t *deadTimer) Err() error { return t.err }

// openingFIFO is a FIFO that must be opened before use
type openingFIFO struct {
	captureFIFO
	err   error
	opens int
}

func (f *openingFIFO) Open() error {
	f.opens++
	return f.err
}
