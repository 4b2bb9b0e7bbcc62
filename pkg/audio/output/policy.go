// ABOUTME: Channel policies that map decoded frames onto the PCM ring
// ABOUTME: Mono sinks downmix stereo, stereo sinks duplicate mono
package output

import (
	"fmt"

	"github.com/sdplay/sdplay-go/pkg/audio"
	"github.com/sdplay/sdplay-go/pkg/audio/ring"
)

// Policy pushes one frame into a ring, waiting while the ring is full
type Policy func(rb *ring.Ring, f audio.Frame) error

// MonoPolicy feeds a single-channel sink.
// Stereo frames are downmixed to the truncated mean of left and right.
func MonoPolicy(rb *ring.Ring, f audio.Frame) error {
	bits := f.Depth()
	switch f.Channels {
	case 1:
		for _, s := range f.Left {
			rb.Push(audio.Narrow(s, bits))
		}
	case 2:
		if len(f.Right) < len(f.Left) {
			return fmt.Errorf("%w: stereo frame without right channel", ErrChannelCount)
		}
		for i, l := range f.Left {
			mean := (int64(l) + int64(f.Right[i])) / 2
			rb.Push(audio.Narrow(int32(mean), bits))
		}
	default:
		return fmt.Errorf("%w: %d", ErrChannelCount, f.Channels)
	}
	return nil
}

// StereoPolicy feeds an interleaved left/right sink.
// Mono frames are written to both channels.
func StereoPolicy(rb *ring.Ring, f audio.Frame) error {
	bits := f.Depth()
	switch f.Channels {
	case 1:
		for _, s := range f.Left {
			n := audio.Narrow(s, bits)
			rb.Push(n)
			rb.Push(n)
		}
	case 2:
		if len(f.Right) < len(f.Left) {
			return fmt.Errorf("%w: stereo frame without right channel", ErrChannelCount)
		}
		for i, l := range f.Left {
			rb.Push(audio.Narrow(l, bits))
			rb.Push(audio.Narrow(f.Right[i], bits))
		}
	default:
		return fmt.Errorf("%w: %d", ErrChannelCount, f.Channels)
	}
	return nil
}
