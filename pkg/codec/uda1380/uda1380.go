// ABOUTME: UDA1380 stereo codec driver over a two-wire control bus
// ABOUTME: Register read/write, playback bring-up, volume and mute
package uda1380

import (
	"fmt"
	"log"
)

// Bus is a two-wire control bus.
// Tx writes w then, when r is not empty, reads len(r) bytes after a repeated start.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Device is a UDA1380 on a control bus
type Device struct {
	bus     Bus
	Address uint16
}

// New creates a driver for the codec at the default address
func New(bus Bus) *Device {
	return &Device{bus: bus, Address: Address}
}

// WriteRegister writes a 16-bit register, high byte first
func (d *Device) WriteRegister(reg uint8, value uint16) error {
	buf := []byte{reg, byte(value >> 8), byte(value)}
	if err := d.bus.Tx(d.Address, buf, nil); err != nil {
		return fmt.Errorf("failed to write register %#02x: %w", reg, err)
	}
	return nil
}

// ReadRegister reads a 16-bit register
func (d *Device) ReadRegister(reg uint8) (uint16, error) {
	var r [2]byte
	if err := d.bus.Tx(d.Address, []byte{reg}, r[:]); err != nil {
		return 0, fmt.Errorf("failed to read register %#02x: %w", reg, err)
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

// Init configures the codec for I2S playback through the headphone output
func (d *Device) Init() error {
	steps := []struct {
		reg   uint8
		value uint16
	}{
		{RegL3, 0},
		{RegI2S, 0},
		{RegMstrMute, 0},
		{RegMixSDO, 0},
		{RegEvalClk, playbackClock},
		{RegPwrCtrl, playbackPower},
	}

	for _, s := range steps {
		if err := d.WriteRegister(s.reg, s.value); err != nil {
			return fmt.Errorf("codec init: %w", err)
		}
	}
	log.Printf("UDA1380 at %#02x initialized for playback", d.Address)
	return nil
}

// VolumeToAttenuation maps 0-100 to the master volume attenuation byte
// (0 is full scale, 0xFF is maximum attenuation)
func VolumeToAttenuation(volume int) uint8 {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return uint8((100 - volume) * 0xFF / 100)
}

// SetVolume sets both channels of the master volume (0-100)
func (d *Device) SetVolume(volume int) error {
	att := uint16(VolumeToAttenuation(volume))
	if err := d.WriteRegister(RegMstrVol, att<<8|att); err != nil {
		return err
	}
	log.Printf("Volume set to %d", volume)
	return nil
}

// Volume reads back the master volume as 0-100 (left channel)
func (d *Device) Volume() (int, error) {
	v, err := d.ReadRegister(RegMstrVol)
	if err != nil {
		return 0, err
	}
	att := int(v >> 8)
	return 100 - (att*100+0xFF-1)/0xFF, nil
}

// SetMuted toggles the master mute bit, leaving the channel mutes alone
func (d *Device) SetMuted(muted bool) error {
	v, err := d.ReadRegister(RegMstrMute)
	if err != nil {
		return err
	}
	if muted {
		v |= MuteMaster
	} else {
		v &^= MuteMaster
	}
	if err := d.WriteRegister(RegMstrMute, v); err != nil {
		return err
	}
	log.Printf("Muted: %v", muted)
	return nil
}
