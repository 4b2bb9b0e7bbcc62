// ABOUTME: Tests for engine selection
// ABOUTME: Verifies codec names and file extensions map to the right engines
package decode

import (
	"errors"
	"testing"
)

func TestForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want interface{}
	}{
		{".mp3", &MP3Engine{}},
		{".MP3", &MP3Engine{}},
		{".flac", &FLACEngine{}},
		{".ogg", &VorbisEngine{}},
		{".opus", &OpusEngine{}},
		{".wav", &PCMEngine{}},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			e, err := ForExtension(tt.ext)
			if err != nil {
				t.Fatalf("expected engine for %s, got error %v", tt.ext, err)
			}
			ok := false
			switch tt.want.(type) {
			case *MP3Engine:
				_, ok = e.(*MP3Engine)
			case *FLACEngine:
				_, ok = e.(*FLACEngine)
			case *VorbisEngine:
				_, ok = e.(*VorbisEngine)
			case *OpusEngine:
				_, ok = e.(*OpusEngine)
			case *PCMEngine:
				_, ok = e.(*PCMEngine)
			}
			if !ok {
				t.Fatalf("expected %T for %s, got %T", tt.want, tt.ext, e)
			}
			if err := e.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}
		})
	}
}

func TestForExtensionUnknown(t *testing.T) {
	_, err := ForExtension(".txt")
	if !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}

func TestNewUnknownCodec(t *testing.T) {
	e, err := New("aac")
	if !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
	if e != nil {
		t.Fatal("expected no engine for unknown codec")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"01 - intro.mp3", true},
		{"song.FLAC", true},
		{"voice.opus", true},
		{"take.wav", true},
		{"cover.jpg", false},
		{"README", false},
	}

	for _, tt := range tests {
		if got := Supported(tt.name); got != tt.want {
			t.Errorf("Supported(%q): expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestCodecForFile(t *testing.T) {
	codec, ok := CodecForFile("/music/track.ogg")
	if !ok || codec != CodecVorbis {
		t.Fatalf("expected %s, got %q (ok=%v)", CodecVorbis, codec, ok)
	}
}

func TestFlowString(t *testing.T) {
	if FlowContinue.String() != "continue" || FlowStop.String() != "stop" {
		t.Fatalf("unexpected flow names: %s, %s", FlowContinue, FlowStop)
	}
}
