// ABOUTME: Backend A: periodic timer interrupt feeding a single-channel converter
// ABOUTME: Each tick pops one sample and writes it as an offset-binary converter code
package output

import (
	"fmt"
	"log"
)

const (
	// DefaultPeripheralClockHz is the timer input clock
	DefaultPeripheralClockHz = 60000000

	// DefaultConverterBits is the converter resolution
	DefaultConverterBits = 10
)

// Timer is a periodic interrupt source
type Timer interface {
	// Attach installs the interrupt handler
	Attach(handler func())

	// SetPeriod sets the match value; the timer fires every period+1 clock cycles
	SetPeriod(period uint32)

	Start()
	Stop()
}

// Converter is a single-channel digital-to-analog converter
type Converter interface {
	Convert(code uint16)
}

// TimerConfig configures a TimerBackend
type TimerConfig struct {
	PeripheralClockHz uint32
	ConverterBits     int
	RingSize          int
}

// TimerBackend plays mono audio through a converter clocked by a timer
type TimerBackend struct {
	sessionHolder

	timer     Timer
	converter Converter
	clockHz   uint32
	bits      int
	shift     uint
	offset    int32
}

// NewTimer creates a timer backend and attaches its tick handler
func NewTimer(timer Timer, converter Converter, cfg TimerConfig) *TimerBackend {
	if cfg.PeripheralClockHz == 0 {
		cfg.PeripheralClockHz = DefaultPeripheralClockHz
	}
	if cfg.ConverterBits <= 0 || cfg.ConverterBits > 16 {
		cfg.ConverterBits = DefaultConverterBits
	}

	b := &TimerBackend{
		sessionHolder: sessionHolder{ringSize: cfg.RingSize, policy: MonoPolicy},
		timer:         timer,
		converter:     converter,
		clockHz:       cfg.PeripheralClockHz,
		bits:          cfg.ConverterBits,
		shift:         uint(16 - cfg.ConverterBits),
		offset:        1 << (cfg.ConverterBits - 1),
	}
	timer.Attach(b.tick)
	return b
}

// Name identifies the backend
func (b *TimerBackend) Name() string {
	return "timer"
}

// NewSession stops any running output and starts a fresh session
func (b *TimerBackend) NewSession() (*Session, error) {
	b.Disable()
	s := b.open()
	log.Printf("Session %s started on timer backend (%d-bit converter)", s.ID, b.bits)
	return s, nil
}

// Period returns the timer match value for a sample rate
func (b *TimerBackend) Period(rate int) (uint32, error) {
	if rate <= 0 || uint32(rate) > b.clockHz {
		return 0, fmt.Errorf("%w: %d Hz", ErrBadRate, rate)
	}
	return b.clockHz/uint32(rate) - 1, nil
}

// AdjustRate retunes the timer period. Valid in both enabled and disabled states.
// Fails when the timer reports it could not be clocked at the new period.
func (b *TimerBackend) AdjustRate(rate int) error {
	period, err := b.Period(rate)
	if err != nil {
		return err
	}
	b.timer.SetPeriod(period)
	if f, ok := b.timer.(faulter); ok {
		if err := f.Err(); err != nil {
			return fmt.Errorf("timer not running at %d Hz: %w", rate, err)
		}
	}
	b.setRate(rate)
	return nil
}

// Code converts a signed 16-bit sample to an offset-binary converter code
func (b *TimerBackend) Code(s int16) uint16 {
	return uint16(int32(s)/(1<<b.shift) + b.offset)
}

// tick runs in interrupt context and must not block
func (b *TimerBackend) tick() {
	var s int16
	if sess := b.current.Load(); sess != nil {
		s = sess.ring.Pop()
		sess.emitted.Add(1)
	}
	b.converter.Convert(b.Code(s))
}

// Enable starts the timer
func (b *TimerBackend) Enable() {
	b.setEnabled(true)
	b.timer.Start()
}

// Disable stops the timer
func (b *TimerBackend) Disable() {
	b.timer.Stop()
	b.setEnabled(false)
}

// WaitForDrain waits for the ring to empty, then stops the timer
func (b *TimerBackend) WaitForDrain() {
	b.drain()
	b.Disable()
}

// SetVolume sets the converter volume (0-100) when the converter supports it
func (b *TimerBackend) SetVolume(volume int) error {
	vc, ok := b.converter.(interface{ SetVolume(int) error })
	if !ok {
		return fmt.Errorf("converter has no volume control")
	}
	return vc.SetVolume(volume)
}

// SetMuted mutes the converter when it supports it
func (b *TimerBackend) SetMuted(muted bool) error {
	mc, ok := b.converter.(interface{ SetMuted(bool) error })
	if !ok {
		return fmt.Errorf("converter has no mute control")
	}
	return mc.SetMuted(muted)
}

// Close stops the timer
func (b *TimerBackend) Close() error {
	b.Disable()
	return nil
}
