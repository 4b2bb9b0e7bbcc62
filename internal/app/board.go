// ABOUTME: Peripheral wiring for each supported board
// ABOUTME: Builds the configured output backend and owns the devices behind it
package app

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sdplay/sdplay-go/internal/board/host"
	"github.com/sdplay/sdplay-go/internal/board/rpi"
	"github.com/sdplay/sdplay-go/internal/board/sim"
	"github.com/sdplay/sdplay-go/internal/config"
	"github.com/sdplay/sdplay-go/pkg/audio/output"
	"github.com/sdplay/sdplay-go/pkg/codec/uda1380"
)

// simKeep bounds how many samples the simulated sinks hold on to
const simKeep = 1 << 16

// Board is an output backend and the peripherals it drives
type Board struct {
	Name    string
	Backend output.Backend

	// Converter and FIFO are set on the simulated board
	Converter *sim.Converter
	FIFO      *sim.FIFO

	// Tap is the recording, when one was requested
	Tap *output.WAVTap

	closers []func() error
}

// OpenBoard brings up the peripherals named by the configuration
func OpenBoard(cfg *config.Config) (*Board, error) {
	b := &Board{Name: cfg.Board}

	var err error
	switch cfg.Backend {
	case config.BackendTimer:
		err = b.openTimer(cfg)
	case config.BackendFIFO:
		err = b.openFIFO(cfg)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		if cerr := b.Close(); cerr != nil {
			log.Printf("Error releasing board after failed open: %v", cerr)
		}
		return nil, err
	}

	log.Printf("Board %s ready with %s backend", b.Name, b.Backend.Name())
	return b, nil
}

func (b *Board) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

func (b *Board) openTimer(cfg *config.Config) error {
	var timer output.Timer
	var conv output.Converter

	switch cfg.Board {
	case config.BoardHost:
		clock := output.NewOtoClock(output.OtoMono, output.OtoOptions{
			PeripheralClockHz: cfg.PeripheralClockHz,
			ConverterBits:     cfg.ConverterBits,
		})
		b.onClose(clock.Close)
		timer, conv = clock, clock

	case config.BoardSim:
		ticker := b.ticker(cfg.PeripheralClockHz)
		b.Converter = &sim.Converter{Max: simKeep}
		timer, conv = ticker, b.Converter

	case config.BoardRPi:
		if err := rpi.Open(); err != nil {
			return err
		}
		b.onClose(rpi.Close)
		pwm, err := rpi.OpenPWMConverter(cfg.PWM.Pin, cfg.ConverterBits, cfg.PWM.ClockHz)
		if err != nil {
			return err
		}
		b.onClose(pwm.Close)
		timer, conv = b.ticker(cfg.PeripheralClockHz), pwm

	default:
		return fmt.Errorf("unknown board %q", cfg.Board)
	}

	if cfg.Record != "" {
		f, err := b.createRecording(cfg.Record)
		if err != nil {
			return err
		}
		tap := output.NewConverterTap(f, conv, cfg.FixedRateHz, cfg.ConverterBits)
		b.Tap = tap.WAVTap
		b.onClose(tap.Close)
		if vc, ok := conv.(output.VolumeControl); ok {
			conv = tappedConverter{ConverterTap: tap, VolumeControl: vc}
		} else {
			conv = tap
		}
	}

	b.Backend = output.NewTimer(timer, conv, output.TimerConfig{
		PeripheralClockHz: cfg.PeripheralClockHz,
		ConverterBits:     cfg.ConverterBits,
		RingSize:          cfg.RingSamples,
	})
	return nil
}

func (b *Board) openFIFO(cfg *config.Config) error {
	var fifo output.FIFO
	var codec output.Codec

	switch cfg.Board {
	case config.BoardHost:
		clock := output.NewOtoClock(output.OtoStereo, output.OtoOptions{SampleRate: cfg.FixedRateHz})
		b.onClose(clock.Close)
		if err := clock.Open(); err != nil {
			return err
		}
		fifo = clock
		codec = hostCodec{Device: b.codec(cfg, sim.NewBus(cfg.Codec.Address)), clock: clock}

	case config.BoardSim:
		b.FIFO = &sim.FIFO{Max: simKeep}
		ticker := b.ticker(cfg.PeripheralClockHz)
		ticker.Attach(func() { b.FIFO.Fire(1) })
		ticker.SetPeriod(cfg.PeripheralClockHz/uint32(cfg.FixedRateHz) - 1)
		ticker.Start()
		fifo = b.FIFO
		codec = b.codec(cfg, sim.NewBus(cfg.Codec.Address))

	case config.BoardRPi:
		if err := rpi.Open(); err != nil {
			return err
		}
		b.onClose(rpi.Close)
		bus, err := rpi.OpenI2C(cfg.Codec.SDAPin, cfg.Codec.SCLPin, cfg.Codec.BusHz)
		if err != nil {
			return err
		}
		b.onClose(bus.Close)
		// The I2S data path is the kernel's sound device
		clock := output.NewOtoClock(output.OtoStereo, output.OtoOptions{SampleRate: cfg.FixedRateHz})
		b.onClose(clock.Close)
		if err := clock.Open(); err != nil {
			return err
		}
		fifo = clock
		codec = b.codec(cfg, bus)

	default:
		return fmt.Errorf("unknown board %q", cfg.Board)
	}

	if cfg.Record != "" {
		f, err := b.createRecording(cfg.Record)
		if err != nil {
			return err
		}
		tap := output.NewFIFOTap(f, fifo, cfg.FixedRateHz)
		b.Tap = tap.WAVTap
		b.onClose(tap.Close)
		fifo = tap
	}

	b.Backend = output.NewFIFO(fifo, codec, output.FIFOConfig{
		FixedRateHz: cfg.FixedRateHz,
		RingSize:    cfg.RingSamples,
	})
	return nil
}

// ticker creates a host timer that is stopped when the board closes
func (b *Board) ticker(clockHz uint32) *host.TickerTimer {
	t := host.NewTickerTimer(clockHz)
	b.onClose(func() error {
		t.Stop()
		return nil
	})
	return t
}

func (b *Board) codec(cfg *config.Config, bus uda1380.Bus) *uda1380.Device {
	dev := uda1380.New(bus)
	dev.Address = cfg.Codec.Address
	return dev
}

// createRecording opens the WAV file; it is closed after the tap
func (b *Board) createRecording(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	b.onClose(f.Close)
	log.Printf("Recording output to %s", path)
	return f, nil
}

// Close stops output and releases peripherals in reverse order of opening
func (b *Board) Close() error {
	var errs []error
	if b.Backend != nil {
		errs = append(errs, b.Backend.Close())
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// tappedConverter keeps the volume control of a recorded converter
type tappedConverter struct {
	*output.ConverterTap
	output.VolumeControl
}

// hostCodec pairs a simulated codec with the sound card gain
type hostCodec struct {
	*uda1380.Device
	clock *output.OtoClock
}

func (c hostCodec) SetVolume(volume int) error {
	if err := c.Device.SetVolume(volume); err != nil {
		return err
	}
	return c.clock.SetVolume(volume)
}

func (c hostCodec) SetMuted(muted bool) error {
	if err := c.Device.SetMuted(muted); err != nil {
		return err
	}
	return c.clock.SetMuted(muted)
}
