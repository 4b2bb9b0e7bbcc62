// ABOUTME: Ogg Opus decode engine
// ABOUTME: Frames Ogg pages in the stream window and decodes packets with libopus
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sdplay/sdplay-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// OpusSampleRate is the rate libopus decodes at
	OpusSampleRate = 48000

	// 120 ms at 48 kHz, the longest Opus packet
	opusMaxFrameSamples = 5760
)

var (
	opusHeadMagic = []byte("OpusHead")
	opusTagsMagic = []byte("OpusTags")

	errOpusHead     = errors.New("opus: invalid identification header")
	errOpusChannels = errors.New("opus: unsupported channel layout")
	errOpusNoHead   = errors.New("opus: audio packet before identification header")
)

// OpusEngine decodes Ogg Opus streams
type OpusEngine struct {
	decoder  *opus.Decoder
	channels int
	skip     int
	pcm      []int16
	left     []int32
	right    []int32
}

// NewOpus creates an Opus engine
func NewOpus() *OpusEngine {
	return &OpusEngine{
		pcm:   make([]int16, opusMaxFrameSamples*2),
		left:  make([]int32, opusMaxFrameSamples),
		right: make([]int32, opusMaxFrameSamples),
	}
}

// Run decodes until end of input or a stop request
func (e *OpusEngine) Run(cb Callbacks) error {
	s := NewStream()
	pager := newOggPager(func(p []byte, h *oggPageHeader) Flow {
		flow, err := e.packet(p, cb.Output)
		if err != nil {
			if reportError(cb, s, err) == FlowStop || errors.Is(err, errOpusChannels) {
				return FlowStop
			}
			return FlowContinue
		}
		return flow
	})
	return pager.run(s, cb)
}

func (e *OpusEngine) packet(p []byte, output func(audio.Frame) Flow) (Flow, error) {
	switch {
	case bytes.HasPrefix(p, opusHeadMagic):
		return FlowContinue, e.parseHead(p)
	case bytes.HasPrefix(p, opusTagsMagic):
		return FlowContinue, nil
	case e.decoder == nil:
		return FlowContinue, errOpusNoHead
	}

	n, err := e.decoder.Decode(p, e.pcm[:opusMaxFrameSamples*e.channels])
	if err != nil {
		return FlowContinue, fmt.Errorf("opus: %w", err)
	}

	start := 0
	if e.skip > 0 {
		if e.skip >= n {
			e.skip -= n
			return FlowContinue, nil
		}
		start = e.skip
		e.skip = 0
	}

	frames := n - start
	for i := 0; i < frames; i++ {
		j := (start + i) * e.channels
		e.left[i] = int32(e.pcm[j])
		if e.channels == 2 {
			e.right[i] = int32(e.pcm[j+1])
		}
	}

	frame := audio.Frame{
		SampleRate: OpusSampleRate,
		Channels:   e.channels,
		BitDepth:   16,
		Left:       e.left[:frames],
	}
	if e.channels == 2 {
		frame.Right = e.right[:frames]
	}
	return output(frame), nil
}

// parseHead reads the OpusHead packet and (re)creates the decoder
func (e *OpusEngine) parseHead(p []byte) error {
	if len(p) < 19 {
		return fmt.Errorf("%w: %d bytes", errOpusHead, len(p))
	}
	channels := int(p[9])
	family := p[18]
	if family != 0 || channels < 1 || channels > 2 {
		return fmt.Errorf("%w: %d channels, mapping family %d", errOpusChannels, channels, family)
	}

	if e.decoder == nil || channels != e.channels {
		dec, err := opus.NewDecoder(OpusSampleRate, channels)
		if err != nil {
			return fmt.Errorf("opus: failed to create decoder: %w", err)
		}
		e.decoder = dec
		e.channels = channels
	}
	e.skip = int(binary.LittleEndian.Uint16(p[10:12]))
	return nil
}

// Close releases engine resources
func (e *OpusEngine) Close() error {
	e.decoder = nil
	return nil
}
