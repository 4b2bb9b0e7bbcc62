// ABOUTME: Tests for the WAV engine
// ABOUTME: Checks sample decoding across bit depths and carry-over of split frames
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sdplay/sdplay-go/pkg/audio"
)

type wavChunk struct {
	id   string
	data []byte
}

// buildWAV assembles a RIFF/WAVE file; extra chunks go before data
func buildWAV(channels, rate, bits int, data []byte, extra ...wavChunk) []byte {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], wavFormatPCM)
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(rate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(rate*channels*bits/8))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bits))

	chunks := append([]wavChunk{{"fmt ", fmtChunk}}, extra...)
	chunks = append(chunks, wavChunk{"data", data})

	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.data)))
		body.Write(c.data)
		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func int16Data(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestPCMStereo16(t *testing.T) {
	data := buildWAV(2, 44100, 16, int16Data(100, 300, 200, 400, -5, 5))

	c := runStaged(t, NewPCM(), data, 512)

	if len(c.errs) != 0 {
		t.Fatalf("expected no errors, got %v", c.errs)
	}
	if len(c.frames) == 0 {
		t.Fatal("expected frames")
	}
	f := c.frames[0]
	if f.SampleRate != 44100 || f.Channels != 2 || f.BitDepth != 16 {
		t.Fatalf("expected 44100Hz 2ch 16-bit, got %dHz %dch %d-bit", f.SampleRate, f.Channels, f.BitDepth)
	}

	left, right := c.samples()
	wantL := []int32{100, 200, -5}
	wantR := []int32{300, 400, 5}
	if !equalInt32(left, wantL) || !equalInt32(right, wantR) {
		t.Fatalf("expected L=%v R=%v, got L=%v R=%v", wantL, wantR, left, right)
	}
}

func TestPCMBitDepths(t *testing.T) {
	tests := []struct {
		name string
		bits int
		data []byte
		want []int32
	}{
		{"8-bit", 8, []byte{0, 128, 255}, []int32{-128, 0, 127}},
		{"16-bit", 16, int16Data(-32768, 0, 32767), []int32{-32768, 0, 32767}},
		{"24-bit", 24, []byte{0x00, 0x00, 0x80, 0x01, 0x00, 0x00, 0xff, 0xff, 0x7f}, []int32{audio.Min24Bit, 1, audio.Max24Bit}},
		{"32-bit", 32, []byte{0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x01, 0x00}, []int32{-1, 65536}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := runStaged(t, NewPCM(), buildWAV(1, 8000, tt.bits, tt.data), 512)

			left, right := c.samples()
			if !equalInt32(left, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, left)
			}
			if len(right) != 0 {
				t.Fatalf("expected mono frames, got %d right samples", len(right))
			}
			if c.frames[0].BitDepth != tt.bits {
				t.Fatalf("expected bit depth %d, got %d", tt.bits, c.frames[0].BitDepth)
			}
		})
	}
}

func TestPCMCarriesSplitFrames(t *testing.T) {
	const n = 3000
	samples := make([]int16, n*2)
	for i := range samples {
		samples[i] = int16(i*7 - 9000)
	}
	data := buildWAV(2, 22050, 16, int16Data(samples...))

	// 37 is not a multiple of the 4-byte frame, so frames straddle refills
	for _, size := range []int{37, 64, 512} {
		c := runStaged(t, NewPCM(), data, size)

		left, right := c.samples()
		if len(left) != n || len(right) != n {
			t.Fatalf("staging %d: expected %d samples per channel, got %d/%d", size, n, len(left), len(right))
		}
		for i := 0; i < n; i++ {
			if left[i] != int32(samples[i*2]) || right[i] != int32(samples[i*2+1]) {
				t.Fatalf("staging %d: sample %d mismatch", size, i)
			}
		}
		if c.refills < 2 {
			t.Fatalf("staging %d: expected several refills, got %d", size, c.refills)
		}
	}
}

func TestPCMFramesAreBounded(t *testing.T) {
	samples := make([]int16, pcmBlockSamples*3)
	c := runStaged(t, NewPCM(), buildWAV(1, 8000, 16, int16Data(samples...)), 8192)

	for i, f := range c.frames {
		if f.Len() > pcmBlockSamples {
			t.Fatalf("frame %d: expected at most %d samples, got %d", i, pcmBlockSamples, f.Len())
		}
	}
	left, _ := c.samples()
	if len(left) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(left))
	}
}

func TestPCMSkipsUnknownChunks(t *testing.T) {
	list := wavChunk{"LIST", bytes.Repeat([]byte{0xAA}, 301)}
	data := buildWAV(1, 8000, 16, int16Data(1, 2, 3), list)

	c := runStaged(t, NewPCM(), data, 64)

	left, _ := c.samples()
	if !equalInt32(left, []int32{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", left)
	}
}

func TestPCMIgnoresTrailingPartialFrame(t *testing.T) {
	data := buildWAV(2, 8000, 16, append(int16Data(1, 2), 0x7f))

	c := runStaged(t, NewPCM(), data, 512)

	left, right := c.samples()
	if !equalInt32(left, []int32{1}) || !equalInt32(right, []int32{2}) {
		t.Fatalf("expected one frame, got L=%v R=%v", left, right)
	}
}

func TestPCMRejectsNonWAV(t *testing.T) {
	c := runStaged(t, NewPCM(), []byte("ID3\x03\x00\x00\x00\x00\x00\x00garbage garbage"), 512)

	if len(c.errs) != 1 || !errors.Is(c.errs[0], errWAVHeader) {
		t.Fatalf("expected one header error, got %v", c.errs)
	}
	if len(c.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(c.frames))
	}
}

func TestPCMRejectsCompressedFormat(t *testing.T) {
	data := buildWAV(1, 8000, 16, int16Data(1, 2))
	// Patch the format tag to IEEE float
	binary.LittleEndian.PutUint16(data[20:], 3)

	c := runStaged(t, NewPCM(), data, 512)

	if len(c.errs) != 1 || !errors.Is(c.errs[0], errWAVFormat) {
		t.Fatalf("expected format error, got %v", c.errs)
	}
}

func TestPCMEmptyInput(t *testing.T) {
	c := runStaged(t, NewPCM(), nil, 512)

	if len(c.frames) != 0 || len(c.errs) != 0 {
		t.Fatalf("expected nothing from empty input, got %d frames, %v", len(c.frames), c.errs)
	}
}

func TestPCMOutputStop(t *testing.T) {
	samples := make([]int16, pcmBlockSamples*4)
	src := buildWAV(1, 8000, 16, int16Data(samples...))
	fed := false
	outputs := 0

	err := NewPCM().Run(Callbacks{
		Input: func(st *Stream) Flow {
			if fed {
				return FlowStop
			}
			fed = true
			st.SetBuffer(src)
			return FlowContinue
		},
		Output: func(f audio.Frame) Flow {
			outputs++
			return FlowStop
		},
		Error: func(st *Stream, err error) Flow { return FlowContinue },
	})

	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if outputs != 1 {
		t.Fatalf("expected engine to stop after first frame, got %d outputs", outputs)
	}
}

func TestPCMFormat(t *testing.T) {
	e := NewPCM()
	runStaged(t, e, buildWAV(2, 48000, 24, make([]byte, 12)), 512)

	want := audio.Format{Codec: CodecPCM, SampleRate: 48000, Channels: 2, BitDepth: 24}
	if e.Format() != want {
		t.Fatalf("expected %v, got %v", want, e.Format())
	}
}

func equalInt32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
