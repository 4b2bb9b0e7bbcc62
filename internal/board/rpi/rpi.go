// ABOUTME: Raspberry Pi GPIO access for the board peripherals
// ABOUTME: Opens and closes the go-rpio memory mapping shared by I2C and PWM
package rpi

import (
	"fmt"
	"sync"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

var (
	openMu sync.Mutex
	opened int
)

// Open maps the GPIO registers. Calls are reference counted.
func Open() error {
	openMu.Lock()
	defer openMu.Unlock()
	if opened == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("failed to open gpio: %w", err)
		}
	}
	opened++
	return nil
}

// Close unmaps the GPIO registers when the last user is done
func Close() error {
	openMu.Lock()
	defer openMu.Unlock()
	if opened == 0 {
		return nil
	}
	opened--
	if opened == 0 {
		if err := rpio.Close(); err != nil {
			return fmt.Errorf("failed to close gpio: %w", err)
		}
	}
	return nil
}
