// ABOUTME: FLAC decode engine
// ABOUTME: Parses FLAC frames from the stream window with mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/sdplay/sdplay-go/pkg/audio"
)

// maxBadFrames bounds how many consecutive malformed frames are skipped
// before the engine gives up on a stream
const maxBadFrames = 16

// FLACEngine decodes FLAC streams frame by frame
type FLACEngine struct {
	stream *flac.Stream
}

// NewFLAC creates a FLAC engine
func NewFLAC() *FLACEngine {
	return &FLACEngine{}
}

// Run decodes until end of input or a stop request
func (e *FLACEngine) Run(cb Callbacks) error {
	s := NewStream()
	r := newStreamReader(s, cb.Input)

	stream, err := flac.New(r)
	if err != nil {
		if r.stopped {
			return nil
		}
		reportError(cb, s, fmt.Errorf("flac: failed to read stream info: %w", err))
		return nil
	}
	e.stream = stream

	info := stream.Info
	bad := 0
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if r.stopped || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			bad++
			if reportError(cb, s, fmt.Errorf("flac: %w", err)) == FlowStop || bad >= maxBadFrames {
				return nil
			}
			continue
		}
		bad = 0

		rate := int(f.SampleRate)
		if rate == 0 {
			rate = int(info.SampleRate)
		}
		bits := int(f.BitsPerSample)
		if bits == 0 {
			bits = int(info.BitsPerSample)
		}

		frame := audio.Frame{
			SampleRate: rate,
			Channels:   f.Channels.Count(),
			BitDepth:   bits,
		}
		if len(f.Subframes) > 0 {
			frame.Left = f.Subframes[0].Samples
		}
		if len(f.Subframes) > 1 {
			frame.Right = f.Subframes[1].Samples
		}

		if cb.Output(frame) == FlowStop {
			return nil
		}
	}
}

// Close releases engine resources
func (e *FLACEngine) Close() error {
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	return err
}
