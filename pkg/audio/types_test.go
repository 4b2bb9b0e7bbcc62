// ABOUTME: Tests for audio types
// ABOUTME: Tests sample narrowing and conversion functions
package audio

import "testing"

func TestNarrow(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		bitDepth int
		expected int16
	}{
		{"16bit identity", 1234, 16, 1234},
		{"16bit negative identity", -1234, 16, -1234},
		{"zero depth is 16bit", 10, 0, 10},
		{"24bit positive", 1000000, 24, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative truncates down", -1000000, 24, -3907},
		{"24bit max", Max24Bit, 24, 32767},
		{"24bit min", Min24Bit, 24, -32768},
		{"32bit", 0x7fff0000, 32, 0x7fff},
		{"8bit widens", 100, 8, 100 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Narrow(tt.input, tt.bitDepth)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
			if back := SampleToInt16(result); back != tt.input {
				t.Errorf("round trip: expected %d, got %d", tt.input, back)
			}
		})
	}
}

func TestSampleFromFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int32
	}{
		{"zero", 0, 0},
		{"half", 0.5, 4194304},
		{"full scale clips", 1.0, Max24Bit},
		{"over range clips", 2.0, Max24Bit},
		{"negative full scale", -1.0, Min24Bit},
		{"negative over range", -3.0, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromFloat(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestFrameDepth(t *testing.T) {
	f := Frame{Channels: 1, Left: []int32{1, 2, 3}}
	if f.Depth() != SinkBitDepth {
		t.Errorf("expected default depth %d, got %d", SinkBitDepth, f.Depth())
	}
	if f.Len() != 3 {
		t.Errorf("expected 3 samples, got %d", f.Len())
	}

	f.BitDepth = 24
	if f.Depth() != 24 {
		t.Errorf("expected depth 24, got %d", f.Depth())
	}
}

func TestFormatString(t *testing.T) {
	f := Format{Codec: "mp3", SampleRate: 44100, Channels: 2, BitDepth: 16}
	expected := "mp3 44100Hz 2ch 16-bit"
	if f.String() != expected {
		t.Errorf("expected %q, got %q", expected, f.String())
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		input    [3]byte
		expected int32
	}{
		{[3]byte{0x00, 0x00, 0x00}, 0},
		{[3]byte{0xff, 0xff, 0x7f}, Max24Bit},
		{[3]byte{0x00, 0x00, 0x80}, Min24Bit},
		{[3]byte{0xff, 0xff, 0xff}, -1},
		{[3]byte{0x34, 0x12, 0x00}, 0x1234},
	}

	for _, tt := range tests {
		result := SampleFrom24Bit(tt.input)
		if result != tt.expected {
			t.Errorf("SampleFrom24Bit(%v): expected %d, got %d", tt.input, tt.expected, result)
		}
	}
}
