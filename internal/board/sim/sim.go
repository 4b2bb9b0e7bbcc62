// ABOUTME: Simulated board peripherals for tests and host runs
// ABOUTME: Register-file control bus, manual timer, capturing converter and FIFO
package sim

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrNoAck is returned for transfers to an address with no device
var ErrNoAck = errors.New("no acknowledge")

// Write is one register write seen on the bus
type Write struct {
	Addr  uint16
	Reg   uint8
	Value uint16
}

// Bus is a control bus whose devices are 16-bit register files.
// A 3-byte write sets a register; a 1-byte write followed by a read returns one.
type Bus struct {
	mu      sync.Mutex
	devices map[uint16]map[uint8]uint16
	writes  []Write

	// Fail, when set, is returned by every transfer
	Fail error
}

// NewBus creates a bus with devices at the given addresses
func NewBus(addrs ...uint16) *Bus {
	b := &Bus{devices: make(map[uint16]map[uint8]uint16)}
	for _, a := range addrs {
		b.devices[a] = make(map[uint8]uint16)
	}
	return b
}

// Tx performs one transfer
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Fail != nil {
		return b.Fail
	}
	regs, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("address %#02x: %w", addr, ErrNoAck)
	}

	switch len(w) {
	case 1:
	case 3:
		v := uint16(w[1])<<8 | uint16(w[2])
		regs[w[0]] = v
		b.writes = append(b.writes, Write{Addr: addr, Reg: w[0], Value: v})
	default:
		return fmt.Errorf("unsupported %d-byte write", len(w))
	}

	if len(r) > 0 {
		v := regs[w[0]]
		r[0] = byte(v >> 8)
		if len(r) > 1 {
			r[1] = byte(v)
		}
	}
	return nil
}

// Register returns the current value of a device register
func (b *Bus) Register(addr uint16, reg uint8) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[addr][reg]
}

// SetRegister presets a device register
func (b *Bus) SetRegister(addr uint16, reg uint8, v uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if regs, ok := b.devices[addr]; ok {
		regs[reg] = v
	}
}

// Writes returns every register write in order
func (b *Bus) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// Timer is a timer that only fires when told to
type Timer struct {
	handler func()
	period  atomic.Uint32
	running atomic.Bool
}

// Attach installs the handler
func (t *Timer) Attach(handler func()) { t.handler = handler }

// SetPeriod records the match value
func (t *Timer) SetPeriod(period uint32) { t.period.Store(period) }

// Start starts the timer
func (t *Timer) Start() { t.running.Store(true) }

// Stop stops the timer
func (t *Timer) Stop() { t.running.Store(false) }

// Period returns the last match value
func (t *Timer) Period() uint32 { return t.period.Load() }

// Running reports whether the timer is started
func (t *Timer) Running() bool { return t.running.Load() }

// Fire runs the handler n times if the timer is started and reports how many ran
func (t *Timer) Fire(n int) int {
	fired := 0
	for i := 0; i < n && t.running.Load(); i++ {
		t.handler()
		fired++
	}
	return fired
}

// Run fires the handler continuously while started, until stop is closed
func (t *Timer) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if t.running.Load() && t.handler != nil {
			t.handler()
		} else {
			runtime.Gosched()
		}
	}
}

// Converter records converter codes
type Converter struct {
	// Max bounds how many codes are kept; 0 keeps all
	Max int

	mu    sync.Mutex
	codes []uint16
	count atomic.Uint64
}

// Convert records one code
func (c *Converter) Convert(code uint16) {
	c.count.Add(1)
	c.mu.Lock()
	if c.Max == 0 || len(c.codes) < c.Max {
		c.codes = append(c.codes, code)
	}
	c.mu.Unlock()
}

// Count returns how many codes were converted, kept or not
func (c *Converter) Count() uint64 {
	return c.count.Load()
}

// Codes returns the recorded codes
func (c *Converter) Codes() []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint16(nil), c.codes...)
}

// FIFO records words written to a serial transmit FIFO
type FIFO struct {
	// Max bounds how many words are kept; 0 keeps all
	Max int

	handler func()
	enabled atomic.Bool
	mu      sync.Mutex
	words   []uint32
	count   atomic.Uint64
}

// Attach installs the low-watermark handler
func (f *FIFO) Attach(handler func()) { f.handler = handler }

// EnableInterrupt unmasks the interrupt
func (f *FIFO) EnableInterrupt() { f.enabled.Store(true) }

// DisableInterrupt masks the interrupt
func (f *FIFO) DisableInterrupt() { f.enabled.Store(false) }

// Enabled reports whether the interrupt is unmasked
func (f *FIFO) Enabled() bool { return f.enabled.Load() }

// Write records one word
func (f *FIFO) Write(word uint32) {
	f.count.Add(1)
	f.mu.Lock()
	if f.Max == 0 || len(f.words) < f.Max {
		f.words = append(f.words, word)
	}
	f.mu.Unlock()
}

// Count returns how many words were written, kept or not
func (f *FIFO) Count() uint64 {
	return f.count.Load()
}

// Words returns the recorded words
func (f *FIFO) Words() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.words...)
}

// Fire runs the handler n times while the interrupt is unmasked
func (f *FIFO) Fire(n int) int {
	fired := 0
	for i := 0; i < n && f.enabled.Load(); i++ {
		f.handler()
		fired++
	}
	return fired
}

// Run raises the interrupt continuously while unmasked, until stop is closed
func (f *FIFO) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if f.enabled.Load() && f.handler != nil {
			f.handler()
		} else {
			runtime.Gosched()
		}
	}
}
