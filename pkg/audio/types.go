// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, decoded frames and sample narrowing
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// SinkBitDepth is the width of samples stored in the PCM ring
	SinkBitDepth = 16
)

// Format describes a decoded stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// Frame is one block of decoded PCM delivered by a decode engine.
//
// Left holds the first (or only) channel, Right is nil for mono sources.
// Samples are right-justified signed integers of BitDepth bits; a zero
// BitDepth means SinkBitDepth.
type Frame struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Left       []int32
	Right      []int32
}

// Len returns the number of samples per channel
func (f Frame) Len() int {
	return len(f.Left)
}

// Depth returns the effective bit depth of the frame samples
func (f Frame) Depth() int {
	if f.BitDepth == 0 {
		return SinkBitDepth
	}
	return f.BitDepth
}

// Narrow converts a sample of the given bit depth to the sink width.
// Wider samples are truncated with an arithmetic shift (no rounding, no
// dither); narrower samples are left-justified.
func Narrow(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth > SinkBitDepth:
		return int16(sample >> (bitDepth - SinkBitDepth))
	case bitDepth > 0 && bitDepth < SinkBitDepth:
		return int16(sample << (SinkBitDepth - bitDepth))
	default:
		return int16(sample)
	}
}

// SampleToInt16 converts a 24-bit int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return Narrow(sample, 24)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFrom24Bit converts 3 little-endian bytes to a sign-extended int32
func SampleFrom24Bit(b [3]byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
}

// SampleFromFloat converts a float sample in [-1,1] to a 24-bit int32 with clipping
func SampleFromFloat(sample float32) int32 {
	scaled := int64(sample * (Max24Bit + 1))
	if scaled > Max24Bit {
		scaled = Max24Bit
	} else if scaled < Min24Bit {
		scaled = Min24Bit
	}
	return int32(scaled)
}
