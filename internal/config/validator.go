// ABOUTME: Configuration validation
// ABOUTME: Rejects unusable board settings with descriptive errors
package config

import (
	"fmt"
)

// MinStagingBytes is one card page; smaller buffers cannot hold a frame header
const MinStagingBytes = 512

// Validate checks the configuration and fills derived defaults
func (c *Config) Validate() error {
	switch c.Board {
	case BoardHost, BoardSim, BoardRPi:
	default:
		return fmt.Errorf("board must be one of host, sim, rpi (got %q)", c.Board)
	}

	switch c.Backend {
	case BackendTimer, BackendFIFO:
	default:
		return fmt.Errorf("backend must be timer or fifo (got %q)", c.Backend)
	}

	if c.PeripheralClockHz == 0 {
		return fmt.Errorf("peripheral_clock_hz must be > 0")
	}
	if c.ConverterBits < 1 || c.ConverterBits > 16 {
		return fmt.Errorf("converter_bits must be between 1 and 16 (got %d)", c.ConverterBits)
	}
	if c.StagingBytes < MinStagingBytes {
		return fmt.Errorf("staging_bytes must be at least %d (got %d)", MinStagingBytes, c.StagingBytes)
	}
	if c.RingSamples < 2 {
		return fmt.Errorf("ring_samples must be at least 2 (got %d)", c.RingSamples)
	}
	if c.Backend == BackendFIFO && c.RingSamples%2 != 0 {
		return fmt.Errorf("ring_samples must be even for the fifo backend (got %d)", c.RingSamples)
	}
	if c.FixedRateHz <= 0 {
		return fmt.Errorf("fixed_rate_hz must be > 0")
	}
	if uint64(c.FixedRateHz) > uint64(c.PeripheralClockHz) {
		return fmt.Errorf("fixed_rate_hz (%d) must not exceed peripheral_clock_hz (%d)", c.FixedRateHz, c.PeripheralClockHz)
	}
	if c.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("max_consecutive_errors must be >= 0")
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100 (got %d)", c.Volume)
	}

	if c.Library.Dir == "" && c.Library.Image == "" {
		return fmt.Errorf("library.dir or library.image is required")
	}
	if c.Library.Image != "" && c.Library.Partition < 0 {
		return fmt.Errorf("library.partition must be >= 0")
	}
	if c.Library.Path == "" {
		c.Library.Path = "/"
	}

	if c.Board == BoardRPi {
		if c.Backend == BackendTimer && c.PWM.Pin != 12 && c.PWM.Pin != 13 && c.PWM.Pin != 18 && c.PWM.Pin != 19 {
			return fmt.Errorf("pwm.pin must be a hardware PWM pin (12, 13, 18 or 19), got %d", c.PWM.Pin)
		}
	}
	if c.Board == BoardRPi && c.Backend == BackendFIFO && c.Codec.SDAPin == c.Codec.SCLPin {
		return fmt.Errorf("codec.sda_pin and codec.scl_pin must differ")
	}
	if c.Codec.Address > 0x7f {
		return fmt.Errorf("codec.address must be a 7-bit address (got %#x)", c.Codec.Address)
	}

	return nil
}
