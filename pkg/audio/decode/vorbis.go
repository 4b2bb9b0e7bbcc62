// ABOUTME: Ogg Vorbis decode engine
// ABOUTME: Converts oggvorbis float output to 24-bit frames
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/sdplay/sdplay-go/pkg/audio"
)

// vorbisBlockSamples is the number of samples per channel emitted per frame
const vorbisBlockSamples = 1024

// VorbisEngine decodes Ogg Vorbis streams
type VorbisEngine struct {
	pcm   []float32
	left  []int32
	right []int32
}

// NewVorbis creates a Vorbis engine
func NewVorbis() *VorbisEngine {
	return &VorbisEngine{
		left:  make([]int32, vorbisBlockSamples),
		right: make([]int32, vorbisBlockSamples),
	}
}

// Run decodes until end of input or a stop request
func (e *VorbisEngine) Run(cb Callbacks) error {
	s := NewStream()
	r := newStreamReader(s, cb.Input)

	vr, err := oggvorbis.NewReader(r)
	if err != nil {
		if r.stopped {
			return nil
		}
		reportError(cb, s, fmt.Errorf("vorbis: failed to read stream headers: %w", err))
		return nil
	}

	channels := vr.Channels()
	rate := vr.SampleRate()
	if cap(e.pcm) < vorbisBlockSamples*channels {
		e.pcm = make([]float32, vorbisBlockSamples*channels)
	}
	pcm := e.pcm[:vorbisBlockSamples*channels]

	bad := 0
	for {
		n, err := vr.Read(pcm)
		if frames := n / channels; frames > 0 {
			for i := 0; i < frames; i++ {
				e.left[i] = audio.SampleFromFloat(pcm[i*channels])
				if channels > 1 {
					e.right[i] = audio.SampleFromFloat(pcm[i*channels+1])
				}
			}
			frame := audio.Frame{
				SampleRate: rate,
				Channels:   channels,
				BitDepth:   24,
				Left:       e.left[:frames],
			}
			if channels > 1 {
				frame.Right = e.right[:frames]
			}
			if cb.Output(frame) == FlowStop {
				return nil
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if r.stopped || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			bad++
			if reportError(cb, s, fmt.Errorf("vorbis: %w", err)) == FlowStop || bad >= maxBadFrames {
				return nil
			}
			continue
		}
		bad = 0
	}
}

// Close releases engine resources
func (e *VorbisEngine) Close() error {
	return nil
}
