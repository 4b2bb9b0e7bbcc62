// ABOUTME: Shared fixtures for player tests
// ABOUTME: Writes WAV tracks and runs simulated interrupt sources
package player

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sdplay/sdplay-go/internal/board/sim"
	"github.com/sdplay/sdplay-go/internal/storage"
	"github.com/sdplay/sdplay-go/pkg/audio/output"
)

// writeWAV writes interleaved 16-bit samples as a WAV file
func writeWAV(t *testing.T, dir, name string, channels, rate int, samples []int) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", name, err)
	}
}

// ramp returns n non-zero samples that survive a 10-bit converter
func ramp(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = (i%500 + 1) * 64
	}
	return out
}

func openLibrary(t *testing.T, dir string) storage.Library {
	t.Helper()
	lib, err := storage.OpenDir(dir)
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	return lib
}

type timerRig struct {
	timer     *sim.Timer
	converter *sim.Converter
	backend   *output.TimerBackend
	stop      chan struct{}
	done      chan struct{}
}

// newTimerRig builds backend A on simulated peripherals with a running interrupt source
func newTimerRig(ringSize int) *timerRig {
	r := &timerRig{
		timer:     &sim.Timer{},
		converter: &sim.Converter{},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.backend = output.NewTimer(r.timer, r.converter, output.TimerConfig{RingSize: ringSize})
	go func() {
		defer close(r.done)
		r.timer.Run(r.stop)
	}()
	return r
}

// halt stops the interrupt source and waits for the last handler to return
func (r *timerRig) halt() {
	close(r.stop)
	<-r.done
}

// signal returns the converter codes that were not silence
func (r *timerRig) signal() []uint16 {
	const silence = 1 << (output.DefaultConverterBits - 1)
	var out []uint16
	for _, c := range r.converter.Codes() {
		if c != silence {
			out = append(out, c)
		}
	}
	return out
}

func expectedCodes(samples []int) []uint16 {
	out := make([]uint16, len(samples))
	for i, s := range samples {
		out[i] = uint16(s/64 + 512)
	}
	return out
}
