// ABOUTME: Tests for player application orchestration
// ABOUTME: Runs whole sessions on the simulated board through the remote and recorder
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sdplay/sdplay-go/internal/config"
	"github.com/sdplay/sdplay-go/internal/remote"
	"github.com/sdplay/sdplay-go/internal/storage"
	"github.com/sdplay/sdplay-go/internal/version"
)

func writeWAV(t *testing.T, dir, name string, samples int) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()

	data := make([]int, samples)
	for i := range data {
		data[i] = (i%500 + 1) * 64
	}
	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", name, err)
	}
}

func simConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeWAV(t, dir, "01 tone.wav", 441)

	cfg := config.Default()
	cfg.Board = config.BoardSim
	cfg.Backend = backend
	cfg.Library.Dir = dir
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Board = "breadboard"

	if _, err := New(Config{Board: cfg}); err == nil {
		t.Fatal("expected error for unknown board")
	}
}

func TestNewDefaultsName(t *testing.T) {
	a, err := New(Config{Board: simConfig(t, config.BackendTimer)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Stop()

	if a.config.Name != "sdplay" {
		t.Errorf("expected name sdplay, got %s", a.config.Name)
	}
	if a.Board().Converter == nil {
		t.Error("expected simulated converter on sim board")
	}
	if state := a.Player().Status(); state.State != "idle" || state.Backend != "timer" {
		t.Errorf("expected idle timer player, got %+v", state)
	}
}

func TestTXTRecords(t *testing.T) {
	a, err := New(Config{Board: simConfig(t, config.BackendFIFO)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Stop()

	want := []string{
		"product=" + version.Product,
		"version=" + version.Version,
		"board=sim",
		"backend=fifo",
	}
	got := a.txtRecords()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected record %d to be %q, got %q", i, want[i], got[i])
		}
	}
}

func TestOpenLibrary(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, dir, "01 tone.wav", 10)

	lib, err := OpenLibrary(config.LibraryConfig{Dir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer lib.Close()
	if _, ok := lib.(*storage.Dir); !ok {
		t.Errorf("expected directory library, got %T", lib)
	}

	_, err = OpenLibrary(config.LibraryConfig{Image: filepath.Join(dir, "missing.img"), Partition: 1, Path: "/"})
	if err == nil {
		t.Error("expected error for missing image")
	}
}

func TestOpenBoardUnknown(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		backend string
	}{
		{"board", "breadboard", config.BackendTimer},
		{"backend", config.BoardSim, "spdif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Board = tt.board
			cfg.Backend = tt.backend
			if _, err := OpenBoard(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRemotePlaysTrack(t *testing.T) {
	cfg := simConfig(t, config.BackendTimer)
	cfg.Remote.Listen = "127.0.0.1:0"

	a, err := New(Config{Board: cfg, Name: "bench"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Stop()
	if err := a.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	client, err := remote.Dial(fmt.Sprintf("127.0.0.1:%d", a.Remote().Port()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer client.Close()

	hello := client.Hello()
	if hello.Name != "bench" {
		t.Errorf("expected name bench, got %s", hello.Name)
	}
	if len(hello.Tracks) != 1 || hello.Tracks[0].Codec != "pcm" {
		t.Fatalf("expected one pcm track, got %+v", hello.Tracks)
	}

	if err := client.Play(1); err != nil {
		t.Fatalf("failed to send play: %v", err)
	}

	playing := false
	timeout := time.After(5 * time.Second)
	for {
		select {
		case st := <-client.Statuses:
			if st.State == "playing" {
				playing = true
			}
			if playing && st.State == "idle" {
				a.Wait()
				if got := a.Board().Converter.Count(); got < 441 {
					t.Errorf("expected at least 441 codes, got %d", got)
				}
				return
			}
		case e := <-client.Errors:
			t.Fatalf("unexpected error from player: %s", e.Error)
		case <-timeout:
			t.Fatal("timed out waiting for the track to finish")
		}
	}
}

func TestRemoteUnknownTrack(t *testing.T) {
	a, err := New(Config{Board: simConfig(t, config.BackendTimer)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Stop()

	ctrl := &controller{a: a}
	if err := ctrl.Play(7); !errors.Is(err, storage.ErrNoTrack) {
		t.Fatalf("expected ErrNoTrack, got %v", err)
	}

	tracks, err := ctrl.Tracks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Number != 1 {
		t.Errorf("expected track 1, got %+v", tracks)
	}
}

func TestFIFORecording(t *testing.T) {
	cfg := simConfig(t, config.BackendFIFO)
	cfg.Record = filepath.Join(t.TempDir(), "out.wav")

	a, err := New(Config{Board: cfg, Track: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	a.Wait()

	if err := a.Player().SetVolume(50); err != nil {
		t.Errorf("expected codec volume control, got %v", err)
	}
	words := a.Board().FIFO.Count()
	if err := a.Stop(); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if words < 441 {
		t.Errorf("expected at least 441 words, got %d", words)
	}

	f, err := os.Open(cfg.Record)
	if err != nil {
		t.Fatalf("failed to open recording: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode recording: %v", err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 44100 {
		t.Errorf("expected 44100Hz stereo, got %dHz %dch", buf.Format.SampleRate, buf.Format.NumChannels)
	}
	if buf.NumFrames() == 0 {
		t.Error("expected recorded frames")
	}
}
