// ABOUTME: Tests for the FIFO backend
// ABOUTME: Covers word packing, codec bring-up, fixed-rate handling and drain
package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdplay/sdplay-go/pkg/audio"
)

func newTestFIFO(t *testing.T) (*FIFOBackend, *captureFIFO, *fakeCodec) {
	t.Helper()
	fifo := &captureFIFO{}
	codec := &fakeCodec{}
	b := NewFIFO(fifo, codec, FIFOConfig{})
	if _, err := b.NewSession(); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return b, fifo, codec
}

func TestPackWord(t *testing.T) {
	tests := []struct {
		l, r int16
		want uint32
	}{
		{0, 0, 0},
		{100, 300, 0x0064012c},
		{-1, 1, 0xffff0001},
		{1, -1, 0x0001ffff},
		{-32768, 32767, 0x80007fff},
	}

	for _, tt := range tests {
		if got := PackWord(tt.l, tt.r); got != tt.want {
			t.Errorf("PackWord(%d, %d): expected %#08x, got %#08x", tt.l, tt.r, tt.want, got)
		}
	}
}

func TestFIFOStereoScenario(t *testing.T) {
	b, fifo, _ := newTestFIFO(t)

	frame := audio.Frame{SampleRate: 44100, Channels: 2, BitDepth: 16, Left: []int32{100, 200}, Right: []int32{300, 400}}
	if err := b.AdjustRate(frame.SampleRate); err != nil {
		t.Fatalf("AdjustRate failed: %v", err)
	}
	b.Enable()
	if err := b.Enqueue(frame); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if b.Session().Ring().Len() != 4 {
		t.Fatalf("expected 4 queued samples, got %d", b.Session().Ring().Len())
	}

	fifo.fire(3)

	want := []uint32{0x0064012c, 0x00c80190, 0}
	got := fifo.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d: expected %#08x, got %#08x", i, want[i], got[i])
		}
	}
	if b.Session().Underruns() != 1 {
		t.Fatalf("expected 1 underrun for the empty pair, got %d", b.Session().Underruns())
	}
}

func TestFIFOMonoDuplicated(t *testing.T) {
	b, fifo, _ := newTestFIFO(t)
	b.Enable()

	if err := b.Enqueue(audio.Frame{Channels: 1, Left: []int32{-2}}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	fifo.fire(1)

	if got := fifo.snapshot(); len(got) != 1 || got[0] != PackWord(-2, -2) {
		t.Fatalf("expected duplicated word, got %v", got)
	}
}

func TestFIFOCodecInitPerSession(t *testing.T) {
	b, _, codec := newTestFIFO(t)
	if codec.inits != 1 {
		t.Fatalf("expected codec initialized once, got %d", codec.inits)
	}

	if _, err := b.NewSession(); err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if codec.inits != 2 {
		t.Fatalf("expected codec initialized per session, got %d", codec.inits)
	}
}

func TestFIFOCodecInitFailure(t *testing.T) {
	boom := errors.New("no ack")
	b := NewFIFO(&captureFIFO{}, &fakeCodec{err: boom}, FIFOConfig{})

	s, err := b.NewSession()
	if !errors.Is(err, boom) {
		t.Fatalf("expected codec error, got %v", err)
	}
	if s != nil || b.Session() != nil {
		t.Fatal("expected no session after codec failure")
	}
}

func TestFIFONewSessionOpensOutput(t *testing.T) {
	fifo := &openingFIFO{}
	codec := &fakeCodec{}
	b := NewFIFO(fifo, codec, FIFOConfig{})

	if _, err := b.NewSession(); err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if fifo.opens != 1 {
		t.Fatalf("expected output opened once, got %d", fifo.opens)
	}

	noDevice := errors.New("no sound card")
	fifo.err = noDevice
	s, err := b.NewSession()
	if !errors.Is(err, noDevice) {
		t.Fatalf("expected open error, got %v", err)
	}
	if s != nil {
		t.Fatal("expected no session when the output cannot open")
	}
	if codec.inits != 1 {
		t.Fatalf("expected codec left alone after open failure, got %d inits", codec.inits)
	}
}

func TestFIFOTapForwardsOpen(t *testing.T) {
	noDevice := errors.New("no sound card")
	fifo := &openingFIFO{err: noDevice}
	f, err := os.Create(filepath.Join(t.TempDir(), "tap.wav"))
	if err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}
	defer f.Close()
	tap := NewFIFOTap(f, fifo, 44100)
	defer tap.Close()

	b := NewFIFO(tap, nil, FIFOConfig{})
	if _, err := b.NewSession(); !errors.Is(err, noDevice) {
		t.Fatalf("expected open error through the tap, got %v", err)
	}
}

func TestFIFOKeepsChannelsPairedOnUnderrun(t *testing.T) {
	b, fifo, _ := newTestFIFO(t)
	rb := b.Session().Ring()

	// Producer has queued only the left half of a pair
	rb.Push(100)
	fifo.fire(1)
	if rb.Len() != 1 {
		t.Fatalf("expected the lone sample kept, ring holds %d", rb.Len())
	}

	rb.Push(300)
	rb.Push(200)
	rb.Push(400)
	fifo.fire(2)

	want := []uint32{0, PackWord(100, 300), PackWord(200, 400)}
	got := fifo.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d: expected %#08x, got %#08x", i, want[i], got[i])
		}
	}
	if u := b.Session().Underruns(); u != 1 {
		t.Fatalf("expected one underrun, got %d", u)
	}
}

func TestFIFOAdjustRateIsNoOp(t *testing.T) {
	b, fifo, _ := newTestFIFO(t)

	for _, rate := range []int{44100, 48000, 22050} {
		if err := b.AdjustRate(rate); err != nil {
			t.Fatalf("AdjustRate(%d) failed: %v", rate, err)
		}
		if b.Session().CurrentRate() != rate {
			t.Fatalf("expected recorded rate %d, got %d", rate, b.Session().CurrentRate())
		}
	}
	if b.FixedRate() != DefaultFixedRateHz {
		t.Fatalf("expected fixed rate %d, got %d", DefaultFixedRateHz, b.FixedRate())
	}
	if fifo.enabled.Load() {
		t.Fatal("expected AdjustRate not to touch the interrupt")
	}
	if err := b.AdjustRate(0); !errors.Is(err, ErrBadRate) {
		t.Fatalf("expected ErrBadRate, got %v", err)
	}
}

func TestFIFOWaitForDrain(t *testing.T) {
	b, fifo, _ := newTestFIFO(t)

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-quit:
				return
			default:
			}
			if fifo.enabled.Load() {
				fifo.handler()
			}
		}
	}()
	defer func() {
		close(quit)
		<-done
	}()

	left := make([]int32, 3000)
	right := make([]int32, 3000)
	for i := range left {
		left[i] = int32(i)
		right[i] = int32(-i)
	}

	b.Enable()
	if err := b.Enqueue(audio.Frame{Channels: 2, Left: left, Right: right}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	finished := make(chan struct{})
	go func() {
		b.WaitForDrain()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForDrain did not return")
	}

	if fifo.enabled.Load() || b.Enabled() {
		t.Fatal("expected interrupt masked after drain")
	}
	// Underruns emit silent words; every other word must follow the frame in order
	var played []uint32
	for _, w := range fifo.snapshot() {
		if w != 0 {
			played = append(played, w)
		}
	}
	if len(played) != len(left)-1 {
		t.Fatalf("expected %d non-silent words, got %d", len(left)-1, len(played))
	}
	for i, w := range played {
		if w != PackWord(int16(i+1), int16(-i-1)) {
			t.Fatalf("word %d out of order", i+1)
		}
	}
}

func TestFIFOVolume(t *testing.T) {
	b, _, codec := newTestFIFO(t)

	var vc VolumeControl = b
	if err := vc.SetVolume(40); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if err := vc.SetMuted(true); err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}
	if codec.volume != 40 || !codec.muted {
		t.Fatalf("expected codec volume 40 muted, got %d muted=%v", codec.volume, codec.muted)
	}
}

func TestTimerVolumeUnsupported(t *testing.T) {
	b := NewTimer(&fakeTimer{}, &captureConverter{}, TimerConfig{})
	if err := b.SetVolume(10); err == nil {
		t.Fatal("expected error for converter without volume control")
	}
}

func TestBackendsImplementInterfaces(t *testing.T) {
	var _ Backend = (*TimerBackend)(nil)
	var _ Backend = (*FIFOBackend)(nil)
	var _ VolumeControl = (*TimerBackend)(nil)
	var _ VolumeControl = (*FIFOBackend)(nil)
	var _ Timer = (*OtoClock)(nil)
	var _ Converter = (*OtoClock)(nil)
	var _ FIFO = (*OtoClock)(nil)
	var _ Converter = (*ConverterTap)(nil)
	var _ FIFO = (*FIFOTap)(nil)
}
