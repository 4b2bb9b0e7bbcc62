// ABOUTME: WAV (PCM) decode engine
// ABOUTME: Parses RIFF chunks in the stream window and emits 8/16/24/32-bit frames
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sdplay/sdplay-go/pkg/audio"
)

// pcmBlockSamples is the largest number of samples per channel emitted per frame
const pcmBlockSamples = 1152

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xfffe
)

var (
	errWAVHeader = errors.New("wav: not a RIFF/WAVE stream")
	errWAVFormat = errors.New("wav: unsupported format")
	errWAVNoFmt  = errors.New("wav: data chunk before fmt chunk")
)

type wavState int

const (
	wavRIFF wavState = iota
	wavChunk
	wavFmt
	wavSkip
	wavData
	wavDone
)

// PCMEngine decodes uncompressed WAV files
type PCMEngine struct {
	state     wavState
	want      int
	skip      int64
	dataLeft  int64
	channels  int
	rate      int
	bits      int
	frameSize int
	left      []int32
	right     []int32
}

// NewPCM creates a WAV engine
func NewPCM() *PCMEngine {
	return &PCMEngine{
		left:  make([]int32, pcmBlockSamples),
		right: make([]int32, pcmBlockSamples),
	}
}

// Format returns the stream format once the fmt chunk has been read
func (e *PCMEngine) Format() audio.Format {
	return audio.Format{Codec: CodecPCM, SampleRate: e.rate, Channels: e.channels, BitDepth: e.bits}
}

// Run decodes until end of input or a stop request
func (e *PCMEngine) Run(cb Callbacks) error {
	s := NewStream()
	e.state = wavRIFF
	e.frameSize = 0
	for {
		needMore, flow, err := e.step(s, cb.Output)
		if err != nil {
			if reportError(cb, s, err) == FlowStop || e.state == wavDone {
				return nil
			}
		}
		if flow == FlowStop || e.state == wavDone {
			return nil
		}
		if needMore {
			if cb.Input == nil || cb.Input(s) != FlowContinue {
				return nil
			}
			if len(s.Remaining()) == 0 {
				return nil
			}
		}
	}
}

func (e *PCMEngine) step(s *Stream, output func(audio.Frame) Flow) (bool, Flow, error) {
	rem := s.Remaining()

	switch e.state {
	case wavRIFF:
		if len(rem) < 12 {
			return true, FlowContinue, nil
		}
		if string(rem[0:4]) != "RIFF" || string(rem[8:12]) != "WAVE" {
			e.state = wavDone
			return false, FlowContinue, errWAVHeader
		}
		s.Advance(12)
		e.state = wavChunk

	case wavChunk:
		if len(rem) < 8 {
			return true, FlowContinue, nil
		}
		id := string(rem[0:4])
		size := binary.LittleEndian.Uint32(rem[4:8])
		s.Advance(8)

		switch id {
		case "fmt ":
			if size < 16 || size > 64 {
				e.state = wavDone
				return false, FlowContinue, fmt.Errorf("%w: fmt chunk of %d bytes", errWAVFormat, size)
			}
			e.want = int(size + size&1)
			e.state = wavFmt
		case "data":
			if e.frameSize == 0 {
				e.state = wavDone
				return false, FlowContinue, errWAVNoFmt
			}
			e.dataLeft = int64(size)
			if size == 0 || size == 0xffffffff {
				e.dataLeft = -1
			}
			e.state = wavData
		default:
			e.skip = int64(size) + int64(size&1)
			e.state = wavSkip
		}

	case wavFmt:
		if len(rem) < e.want {
			return true, FlowContinue, nil
		}
		err := e.parseFmt(rem[:e.want])
		s.Advance(e.want)
		if err != nil {
			e.state = wavDone
			return false, FlowContinue, err
		}
		e.state = wavChunk

	case wavSkip:
		take := int64(len(rem))
		if take > e.skip {
			take = e.skip
		}
		s.Advance(int(take))
		e.skip -= take
		if e.skip > 0 {
			return true, FlowContinue, nil
		}
		e.state = wavChunk

	case wavData:
		return e.stepData(s, output)
	}

	return false, FlowContinue, nil
}

func (e *PCMEngine) parseFmt(b []byte) error {
	tag := binary.LittleEndian.Uint16(b[0:2])
	channels := int(binary.LittleEndian.Uint16(b[2:4]))
	rate := int(binary.LittleEndian.Uint32(b[4:8]))
	bits := int(binary.LittleEndian.Uint16(b[14:16]))

	if tag == wavFormatExtensible && len(b) >= 26 {
		tag = binary.LittleEndian.Uint16(b[24:26])
	}
	if tag != wavFormatPCM {
		return fmt.Errorf("%w: format tag %#x", errWAVFormat, tag)
	}
	switch bits {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d bits per sample", errWAVFormat, bits)
	}
	if channels < 1 || rate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", errWAVFormat, channels, rate)
	}

	e.channels = channels
	e.rate = rate
	e.bits = bits
	e.frameSize = channels * bits / 8
	return nil
}

func (e *PCMEngine) stepData(s *Stream, output func(audio.Frame) Flow) (bool, Flow, error) {
	if e.dataLeft == 0 || (e.dataLeft > 0 && e.dataLeft < int64(e.frameSize)) {
		e.state = wavDone
		return false, FlowContinue, nil
	}

	rem := s.Remaining()
	frames := len(rem) / e.frameSize
	if e.dataLeft > 0 && int64(frames) > e.dataLeft/int64(e.frameSize) {
		frames = int(e.dataLeft / int64(e.frameSize))
	}
	if frames > pcmBlockSamples {
		frames = pcmBlockSamples
	}
	if frames == 0 {
		return true, FlowContinue, nil
	}

	width := e.bits / 8
	for i := 0; i < frames; i++ {
		off := i * e.frameSize
		e.left[i] = e.sample(rem[off:])
		if e.channels > 1 {
			e.right[i] = e.sample(rem[off+width:])
		}
	}

	n := frames * e.frameSize
	s.Advance(n)
	if e.dataLeft > 0 {
		e.dataLeft -= int64(n)
	}

	frame := audio.Frame{
		SampleRate: e.rate,
		Channels:   e.channels,
		BitDepth:   e.bits,
		Left:       e.left[:frames],
	}
	if e.channels > 1 {
		frame.Right = e.right[:frames]
	}
	return false, output(frame), nil
}

func (e *PCMEngine) sample(b []byte) int32 {
	switch e.bits {
	case 8:
		return int32(b[0]) - 128
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		return audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}

// Close releases engine resources
func (e *PCMEngine) Close() error {
	return nil
}
