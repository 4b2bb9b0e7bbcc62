// ABOUTME: Board configuration loaded from a YAML file
// ABOUTME: Selects peripherals, backend, buffer sizes and the track library
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Boards
const (
	BoardHost = "host" // host sound card through oto
	BoardSim  = "sim"  // simulated peripherals paced by a ticker
	BoardRPi  = "rpi"  // Raspberry Pi GPIO: PWM converter, bit-banged I2C codec
)

// Backends
const (
	BackendTimer = "timer"
	BackendFIFO  = "fifo"
)

// Config is the complete player configuration
type Config struct {
	Board                string        `yaml:"board"`
	Backend              string        `yaml:"backend"`
	PeripheralClockHz    uint32        `yaml:"peripheral_clock_hz"`
	ConverterBits        int           `yaml:"converter_bits"`
	StagingBytes         int           `yaml:"staging_bytes"`
	RingSamples          int           `yaml:"ring_samples"`
	FixedRateHz          int           `yaml:"fixed_rate_hz"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"` // 0: never give up on a track
	Volume               int           `yaml:"volume"`
	Record               string        `yaml:"record"` // WAV file receiving every emitted sample
	Codec                CodecConfig   `yaml:"codec"`
	PWM                  PWMConfig     `yaml:"pwm"`
	Library              LibraryConfig `yaml:"library"`
	Remote               RemoteConfig  `yaml:"remote"`
}

// CodecConfig describes the codec control bus
type CodecConfig struct {
	Address uint16 `yaml:"address"`
	SDAPin  int    `yaml:"sda_pin"`
	SCLPin  int    `yaml:"scl_pin"`
	BusHz   int    `yaml:"bus_hz"`
}

// PWMConfig describes the converter on the Pi
type PWMConfig struct {
	Pin     int `yaml:"pin"`
	ClockHz int `yaml:"clock_hz"`
}

// LibraryConfig locates the tracks: a directory, or a disk image
type LibraryConfig struct {
	Dir       string `yaml:"dir"`
	Image     string `yaml:"image"`
	Partition int    `yaml:"partition"`
	Path      string `yaml:"path"` // directory inside the image
}

// RemoteConfig controls the websocket remote
type RemoteConfig struct {
	Listen string `yaml:"listen"` // empty disables the remote
	MDNS   bool   `yaml:"mdns"`
	Name   string `yaml:"name"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Board:             BoardHost,
		Backend:           BackendTimer,
		PeripheralClockHz: 60000000,
		ConverterBits:     10,
		StagingBytes:      512,
		RingSamples:       2 * 1152,
		FixedRateHz:       44100,
		Volume:            100,
		Codec: CodecConfig{
			Address: 0x1A,
			SDAPin:  2,
			SCLPin:  3,
			BusHz:   100000,
		},
		PWM: PWMConfig{
			Pin:     18,
			ClockHz: 19200000,
		},
		Library: LibraryConfig{
			Dir:       ".",
			Partition: 1,
			Path:      "/",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without validating
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
