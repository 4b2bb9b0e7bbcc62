// ABOUTME: MP3 decode engine
// ABOUTME: Pulls the stream window through go-mp3 and emits 1152-sample stereo frames
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/sdplay/sdplay-go/pkg/audio"
)

// MP3FrameSamples is the number of samples per channel in an MPEG-1 Layer III frame
const MP3FrameSamples = 1152

// MP3Engine decodes MPEG audio. go-mp3 always outputs 16-bit stereo.
type MP3Engine struct {
	pcm   []byte
	left  []int32
	right []int32
}

// NewMP3 creates an MP3 engine
func NewMP3() *MP3Engine {
	return &MP3Engine{
		pcm:   make([]byte, MP3FrameSamples*4),
		left:  make([]int32, MP3FrameSamples),
		right: make([]int32, MP3FrameSamples),
	}
}

// Run decodes until end of input or a stop request
func (e *MP3Engine) Run(cb Callbacks) error {
	s := NewStream()
	r := newStreamReader(s, cb.Input)

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		if r.stopped {
			return nil
		}
		reportError(cb, s, fmt.Errorf("mp3: failed to read stream header: %w", err))
		return nil
	}
	rate := dec.SampleRate()

	for {
		n, err := io.ReadFull(dec, e.pcm)
		if frames := n / 4; frames > 0 {
			for i := 0; i < frames; i++ {
				e.left[i] = int32(int16(binary.LittleEndian.Uint16(e.pcm[i*4:])))
				e.right[i] = int32(int16(binary.LittleEndian.Uint16(e.pcm[i*4+2:])))
			}
			frame := audio.Frame{
				SampleRate: rate,
				Channels:   2,
				BitDepth:   16,
				Left:       e.left[:frames],
				Right:      e.right[:frames],
			}
			if cb.Output(frame) == FlowStop {
				return nil
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			if r.stopped {
				return nil
			}
			// go-mp3 cannot resynchronise after a decode error
			reportError(cb, s, fmt.Errorf("mp3: %w", err))
			return nil
		}
	}
}

// Close releases engine resources
func (e *MP3Engine) Close() error {
	return nil
}
