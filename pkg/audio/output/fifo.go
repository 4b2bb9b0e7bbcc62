// ABOUTME: Backend B: serial transmit FIFO low-watermark interrupt feeding an external codec
// ABOUTME: Each interrupt pops left and right samples and writes one packed 32-bit word
package output

import (
	"fmt"
	"log"
	"sync"
)

// DefaultFixedRateHz is the rate the serial clock is configured for
const DefaultFixedRateHz = 44100

// FIFO is a serial audio transmit FIFO that interrupts when it runs low
type FIFO interface {
	// Attach installs the low-watermark handler
	Attach(handler func())

	EnableInterrupt()
	DisableInterrupt()

	// Write queues one word: left sample in the upper half, right in the lower
	Write(word uint32)
}

// Codec is the external converter behind the serial link
type Codec interface {
	Init() error
}

// FIFOConfig configures a FIFOBackend
type FIFOConfig struct {
	FixedRateHz int
	RingSize    int
}

// FIFOBackend plays stereo audio through a serial FIFO and codec
type FIFOBackend struct {
	sessionHolder

	fifo      FIFO
	codec     Codec
	fixedRate int

	warnOnce sync.Once
}

// NewFIFO creates a FIFO backend and attaches its interrupt handler
func NewFIFO(fifo FIFO, codec Codec, cfg FIFOConfig) *FIFOBackend {
	if cfg.FixedRateHz <= 0 {
		cfg.FixedRateHz = DefaultFixedRateHz
	}
	b := &FIFOBackend{
		sessionHolder: sessionHolder{ringSize: cfg.RingSize, policy: StereoPolicy},
		fifo:          fifo,
		codec:         codec,
		fixedRate:     cfg.FixedRateHz,
	}
	fifo.Attach(b.interrupt)
	return b
}

// Name identifies the backend
func (b *FIFOBackend) Name() string {
	return "fifo"
}

// NewSession brings up the codec and starts a fresh session
func (b *FIFOBackend) NewSession() (*Session, error) {
	b.Disable()
	if o, ok := b.fifo.(opener); ok {
		if err := o.Open(); err != nil {
			return nil, fmt.Errorf("failed to open serial output: %w", err)
		}
	}
	if b.codec != nil {
		if err := b.codec.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize codec: %w", err)
		}
	}
	s := b.open()
	log.Printf("Session %s started on fifo backend (%d Hz)", s.ID, b.fixedRate)
	return s, nil
}

// AdjustRate records the rate; the serial clock stays at the fixed rate
func (b *FIFOBackend) AdjustRate(rate int) error {
	if rate <= 0 {
		return fmt.Errorf("%w: %d Hz", ErrBadRate, rate)
	}
	if rate != b.fixedRate {
		b.warnOnce.Do(func() {
			log.Printf("Warning: stream rate %d Hz differs from fixed output rate %d Hz, playing at %d Hz",
				rate, b.fixedRate, b.fixedRate)
		})
	}
	b.setRate(rate)
	return nil
}

// FixedRate returns the serial output rate
func (b *FIFOBackend) FixedRate() int {
	return b.fixedRate
}

// PackWord combines left and right samples into one FIFO word
func PackWord(l, r int16) uint32 {
	return uint32(uint16(l))<<16 | uint32(uint16(r))
}

// interrupt runs in interrupt context and must not block
func (b *FIFOBackend) interrupt() {
	var l, r int16
	if sess := b.current.Load(); sess != nil {
		l, r = sess.ring.PopPair()
		sess.emitted.Add(1)
	}
	b.fifo.Write(PackWord(l, r))
}

// Enable unmasks the FIFO interrupt
func (b *FIFOBackend) Enable() {
	b.setEnabled(true)
	b.fifo.EnableInterrupt()
}

// Disable masks the FIFO interrupt
func (b *FIFOBackend) Disable() {
	b.fifo.DisableInterrupt()
	b.setEnabled(false)
}

// WaitForDrain waits for the ring to empty, then masks the interrupt
func (b *FIFOBackend) WaitForDrain() {
	b.drain()
	b.Disable()
}

// SetVolume sets the codec volume (0-100) when the codec supports it
func (b *FIFOBackend) SetVolume(volume int) error {
	vc, ok := b.codec.(interface{ SetVolume(int) error })
	if !ok {
		return fmt.Errorf("codec has no volume control")
	}
	return vc.SetVolume(volume)
}

// SetMuted mutes the codec when it supports it
func (b *FIFOBackend) SetMuted(muted bool) error {
	mc, ok := b.codec.(interface{ SetMuted(bool) error })
	if !ok {
		return fmt.Errorf("codec has no mute control")
	}
	return mc.SetMuted(muted)
}

// Close masks the interrupt
func (b *FIFOBackend) Close() error {
	b.Disable()
	return nil
}
