// ABOUTME: Bit-banged two-wire control bus on a pair of GPIO pins
// ABOUTME: Open-drain lines are emulated by switching between pulled-up input and driven low
package rpi

import (
	"errors"
	"fmt"
	"time"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// ErrNack is returned when a byte is not acknowledged
var ErrNack = errors.New("i2c: no acknowledge")

// line is one open-drain signal
type line interface {
	// Release lets the pull-up take the line high
	Release()
	// Drive pulls the line low
	Drive()
	// Level reads the line
	Level() bool
}

type gpioLine struct {
	pin rpio.Pin
}

func (l gpioLine) Release() {
	l.pin.Input()
	l.pin.PullUp()
}

func (l gpioLine) Drive() {
	l.pin.Output()
	l.pin.Low()
}

func (l gpioLine) Level() bool {
	return l.pin.Read() == rpio.High
}

// I2C is a software two-wire bus master
type I2C struct {
	sda, scl line
	half     time.Duration
}

// OpenI2C opens the GPIO pins as a bus running at about hz
func OpenI2C(sdaPin, sclPin, hz int) (*I2C, error) {
	if err := Open(); err != nil {
		return nil, err
	}
	return newI2C(gpioLine{rpio.Pin(sdaPin)}, gpioLine{rpio.Pin(sclPin)}, hz), nil
}

func newI2C(sda, scl line, hz int) *I2C {
	if hz <= 0 {
		hz = 100000
	}
	b := &I2C{sda: sda, scl: scl, half: time.Second / time.Duration(2*hz)}
	sda.Release()
	scl.Release()
	return b
}

// Tx writes w and then, if r is not empty, reads len(r) bytes after a repeated start
func (b *I2C) Tx(addr uint16, w, r []byte) error {
	defer b.stop()

	if len(w) > 0 {
		b.start()
		if err := b.writeByte(byte(addr<<1), "address"); err != nil {
			return err
		}
		for i, v := range w {
			if err := b.writeByte(v, fmt.Sprintf("byte %d", i)); err != nil {
				return err
			}
		}
	}

	if len(r) > 0 {
		b.start()
		if err := b.writeByte(byte(addr<<1|1), "read address"); err != nil {
			return err
		}
		for i := range r {
			r[i] = b.readByte(i < len(r)-1)
		}
	}
	return nil
}

// Close releases both lines and the GPIO mapping
func (b *I2C) Close() error {
	b.sda.Release()
	b.scl.Release()
	return Close()
}

func (b *I2C) wait() {
	if b.half > 0 {
		time.Sleep(b.half)
	}
}

func (b *I2C) start() {
	b.sda.Release()
	b.scl.Release()
	b.wait()
	b.sda.Drive()
	b.wait()
	b.scl.Drive()
	b.wait()
}

func (b *I2C) stop() {
	b.sda.Drive()
	b.wait()
	b.scl.Release()
	b.wait()
	b.sda.Release()
	b.wait()
}

func (b *I2C) writeBit(bit bool) {
	if bit {
		b.sda.Release()
	} else {
		b.sda.Drive()
	}
	b.wait()
	b.scl.Release()
	b.wait()
	b.scl.Drive()
}

func (b *I2C) readBit() bool {
	b.sda.Release()
	b.wait()
	b.scl.Release()
	b.wait()
	v := b.sda.Level()
	b.scl.Drive()
	return v
}

func (b *I2C) writeByte(v byte, what string) error {
	for i := 7; i >= 0; i-- {
		b.writeBit(v>>uint(i)&1 == 1)
	}
	if b.readBit() {
		return fmt.Errorf("%s %#02x: %w", what, v, ErrNack)
	}
	return nil
}

func (b *I2C) readByte(ack bool) byte {
	var v byte
	for i := 0; i < 8; i++ {
		v <<= 1
		if b.readBit() {
			v |= 1
		}
	}
	b.writeBit(!ack)
	return v
}
