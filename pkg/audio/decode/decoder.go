// ABOUTME: Decode engine contract and engine selection
// ABOUTME: Defines the Input/Output/Error callbacks every engine drives
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdplay/sdplay-go/pkg/audio"
)

// ErrUnknownCodec is returned when no engine handles a codec or extension
var ErrUnknownCodec = errors.New("unknown codec")

// Flow tells an engine whether to keep going after a callback
type Flow int

const (
	FlowContinue Flow = iota
	FlowStop
)

func (f Flow) String() string {
	if f == FlowStop {
		return "stop"
	}
	return "continue"
}

// Callbacks connect an engine to its input and output.
//
// Frames passed to Output are only valid for the duration of the call;
// engines reuse their sample buffers.
type Callbacks struct {
	// Input refills the stream window; called when the engine needs bytes
	Input func(s *Stream) Flow

	// Output receives one decoded frame
	Output func(f audio.Frame) Flow

	// Error reports a recoverable stream error
	Error func(s *Stream, err error) Flow
}

// Engine decodes one compressed stream
type Engine interface {
	// Run decodes until the input ends or a callback answers FlowStop
	Run(cb Callbacks) error

	// Close releases engine resources
	Close() error
}

// Codec names understood by New
const (
	CodecMP3    = "mp3"
	CodecFLAC   = "flac"
	CodecVorbis = "vorbis"
	CodecOpus   = "opus"
	CodecPCM    = "pcm"
)

var extensions = map[string]string{
	".mp3":  CodecMP3,
	".flac": CodecFLAC,
	".ogg":  CodecVorbis,
	".oga":  CodecVorbis,
	".opus": CodecOpus,
	".wav":  CodecPCM,
}

// New creates an engine for the named codec
func New(codec string) (Engine, error) {
	switch codec {
	case CodecMP3:
		return NewMP3(), nil
	case CodecFLAC:
		return NewFLAC(), nil
	case CodecVorbis:
		return NewVorbis(), nil
	case CodecOpus:
		return NewOpus(), nil
	case CodecPCM:
		return NewPCM(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
}

// CodecForFile returns the codec name for a file name's extension
func CodecForFile(name string) (string, bool) {
	codec, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return codec, ok
}

// ForExtension creates an engine for a file extension such as ".mp3"
func ForExtension(ext string) (Engine, error) {
	codec, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", ErrUnknownCodec, ext)
	}
	return New(codec)
}

// Supported reports whether a file name has a decodable extension
func Supported(name string) bool {
	_, ok := CodecForFile(name)
	return ok
}

func reportError(cb Callbacks, s *Stream, err error) Flow {
	if cb.Error == nil {
		return FlowStop
	}
	return cb.Error(s, err)
}
