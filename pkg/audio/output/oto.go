// ABOUTME: Host sound card peripherals built on oto
// ABOUTME: The device's pull callback plays the role of the timer tick or FIFO interrupt
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoMode selects which peripheral set an OtoClock emulates
type OtoMode int

const (
	// OtoMono emulates a Timer and Converter (one channel)
	OtoMono OtoMode = iota

	// OtoStereo emulates a serial FIFO (two channels)
	OtoStereo
)

// OtoOptions configures an OtoClock
type OtoOptions struct {
	// PeripheralClockHz converts timer periods back to a sample rate
	PeripheralClockHz uint32

	// ConverterBits is the width of converter codes
	ConverterBits int

	// SampleRate is used in stereo mode, where no period is ever set
	SampleRate int

	// BufferSize is the device buffer length
	BufferSize time.Duration
}

// oto allows a single context per process
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func otoContext(rate, channels int, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != rate || otoChannels != channels {
			log.Printf("Warning: format change detected (%dHz %dch -> %dHz %dch) but oto doesn't support reinitialization. Continuing with existing context.",
				otoRate, otoChannels, rate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoRate = rate
	otoChannels = channels
	log.Printf("Audio output initialized: %dHz, %d channels", rate, channels)
	return ctx, nil
}

// OtoClock drives a backend from the host sound card.
//
// Every sample frame the device pulls runs the attached handler once, the
// same way a timer match or FIFO watermark would on the board. While
// stopped the device is fed silence.
type OtoClock struct {
	mode     OtoMode
	opts     OtoOptions
	channels int

	handler atomic.Pointer[func()]
	running atomic.Bool
	period  atomic.Uint32

	// Written by the handler during Read, read back by Read
	left, right int16

	mu      sync.Mutex
	player  *oto.Player
	openErr error
	volume  int
	muted   bool
}

// NewOtoClock creates a host clock in the given mode
func NewOtoClock(mode OtoMode, opts OtoOptions) *OtoClock {
	if opts.PeripheralClockHz == 0 {
		opts.PeripheralClockHz = DefaultPeripheralClockHz
	}
	if opts.ConverterBits <= 0 || opts.ConverterBits > 16 {
		opts.ConverterBits = DefaultConverterBits
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultFixedRateHz
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = 50 * time.Millisecond
	}
	channels := 1
	if mode == OtoStereo {
		channels = 2
	}
	return &OtoClock{mode: mode, opts: opts, channels: channels, volume: 100}
}

// Attach installs the interrupt handler (Timer and FIFO)
func (c *OtoClock) Attach(handler func()) {
	c.handler.Store(&handler)
}

// SetPeriod opens the device at the rate implied by the timer period
func (c *OtoClock) SetPeriod(period uint32) {
	c.period.Store(period)
	rate := int(c.opts.PeripheralClockHz / (period + 1))
	if err := c.open(rate); err != nil {
		log.Printf("Failed to open host audio at %d Hz: %v", rate, err)
	}
}

// Open brings up the device at the configured sample rate (FIFO)
func (c *OtoClock) Open() error {
	if err := c.open(c.opts.SampleRate); err != nil {
		return fmt.Errorf("failed to open host audio at %d Hz: %w", c.opts.SampleRate, err)
	}
	return nil
}

// Err returns the last device open failure, nil once the device is running
func (c *OtoClock) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openErr
}

// Start starts ticking (Timer)
func (c *OtoClock) Start() {
	c.running.Store(true)
}

// Stop stops ticking (Timer)
func (c *OtoClock) Stop() {
	c.running.Store(false)
}

// Convert receives one converter code from the handler (Converter)
func (c *OtoClock) Convert(code uint16) {
	shift := uint(16 - c.opts.ConverterBits)
	offset := int32(1) << (c.opts.ConverterBits - 1)
	c.left = int16((int32(code) - offset) << shift)
}

// EnableInterrupt opens the device at the fixed rate and starts pulling (FIFO)
func (c *OtoClock) EnableInterrupt() {
	if err := c.open(c.opts.SampleRate); err != nil {
		log.Printf("Failed to open host audio at %d Hz: %v", c.opts.SampleRate, err)
		return
	}
	c.running.Store(true)
}

// DisableInterrupt stops pulling (FIFO)
func (c *OtoClock) DisableInterrupt() {
	c.running.Store(false)
}

// Write receives one packed word from the handler (FIFO)
func (c *OtoClock) Write(word uint32) {
	c.left = int16(word >> 16)
	c.right = int16(word)
}

func (c *OtoClock) open(rate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := otoContext(rate, c.channels, c.opts.BufferSize)
	if err != nil {
		c.openErr = err
		return err
	}
	c.openErr = nil
	if c.player != nil {
		return nil
	}

	c.player = ctx.NewPlayer(c)
	c.player.SetVolume(c.gain())
	c.player.Play()
	return nil
}

// Read is the device pull callback
func (c *OtoClock) Read(p []byte) (int, error) {
	frameBytes := 2 * c.channels
	n := len(p) / frameBytes * frameBytes

	var handler func()
	if h := c.handler.Load(); h != nil {
		handler = *h
	}

	for i := 0; i < n; i += frameBytes {
		c.left, c.right = 0, 0
		if handler != nil && c.running.Load() {
			handler()
		}
		binary.LittleEndian.PutUint16(p[i:], uint16(c.left))
		if c.channels == 2 {
			binary.LittleEndian.PutUint16(p[i+2:], uint16(c.right))
		}
	}
	return n, nil
}

// Rate returns the device sample rate, 0 before it was opened
func (c *OtoClock) Rate() int {
	otoMu.Lock()
	defer otoMu.Unlock()
	return otoRate
}

// SetVolume sets the device volume (0-100)
func (c *OtoClock) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = volume
	if c.player != nil {
		c.player.SetVolume(c.gain())
	}
	log.Printf("Volume set to %d", volume)
	return nil
}

// SetMuted sets the mute state
func (c *OtoClock) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	if c.player != nil {
		c.player.SetVolume(c.gain())
	}
	log.Printf("Muted: %v", muted)
	return nil
}

func (c *OtoClock) gain() float64 {
	if c.muted {
		return 0
	}
	return float64(c.volume) / 100.0
}

// Close stops the device
func (c *OtoClock) Close() error {
	c.running.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		if err := c.player.Close(); err != nil {
			return fmt.Errorf("failed to close player: %w", err)
		}
		c.player = nil
	}
	return nil
}
