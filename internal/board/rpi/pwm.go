// ABOUTME: Hardware PWM output used as a single-channel converter
// ABOUTME: Converter codes become the PWM duty cycle over a 2^bits period
package rpi

import (
	rpio "github.com/stianeikeland/go-rpio/v4"
)

// DefaultPWMClockHz is the highest PWM clock go-rpio accepts
const DefaultPWMClockHz = 19200000

// PWMConverter drives a PWM-capable pin (GPIO 12, 13, 18 or 19)
type PWMConverter struct {
	pin   rpio.Pin
	cycle uint32
}

// OpenPWMConverter sets up pin for PWM with a duty range of 2^bits
func OpenPWMConverter(pin, bits, clockHz int) (*PWMConverter, error) {
	if err := Open(); err != nil {
		return nil, err
	}
	if clockHz <= 0 {
		clockHz = DefaultPWMClockHz
	}
	c := &PWMConverter{pin: rpio.Pin(pin), cycle: 1 << uint(bits)}
	c.pin.Mode(rpio.Pwm)
	c.pin.Freq(clockHz)
	c.pin.DutyCycle(c.cycle/2, c.cycle)
	rpio.StartPwm()
	return c, nil
}

// Convert sets the duty cycle to the code
func (c *PWMConverter) Convert(code uint16) {
	c.pin.DutyCycle(uint32(code), c.cycle)
}

// Close parks the output at mid-scale and releases GPIO
func (c *PWMConverter) Close() error {
	c.pin.DutyCycle(c.cycle/2, c.cycle)
	rpio.StopPwm()
	return Close()
}
