// ABOUTME: Track player running one playback session per track
// ABOUTME: Opens tracks from a library, drives the decode loop and reports state
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sdplay/sdplay-go/internal/storage"
	"github.com/sdplay/sdplay-go/pkg/audio"
	"github.com/sdplay/sdplay-go/pkg/audio/decode"
	"github.com/sdplay/sdplay-go/pkg/audio/output"
	"github.com/sdplay/sdplay-go/pkg/audio/stage"
)

// ErrNoVolumeControl is returned when the backend has no hardware volume
var ErrNoVolumeControl = errors.New("backend has no volume control")

// Config holds player configuration
type Config struct {
	// Backend is the output path; required
	Backend output.Backend

	// Library provides the tracks; required
	Library storage.Library

	// StagingSize is the compressed input buffer size in bytes (default: 512)
	StagingSize int

	// MaxConsecutiveErrors stops a track after this many bad frames in a row (0: never)
	MaxConsecutiveErrors int

	// Volume is the initial volume (0-100, default: 100)
	Volume int

	// OnStateChange is called when playback state changes
	OnStateChange func(State)

	// OnError is called for decode errors and failed tracks
	OnError func(error)
}

// State describes what the player is doing
type State struct {
	State      string // "idle", "playing"
	Track      storage.Track
	SessionID  string
	Backend    string
	SampleRate int
	Channels   int
	BitDepth   int
	Volume     int
	Muted      bool
}

// Stats contains playback statistics for the current or last session
type Stats struct {
	Frames       uint64
	Samples      uint64
	DecodeErrors uint64
	Refills      uint64
	Underruns    uint64
	Emitted      uint64
	Elapsed      time.Duration
}

// Player plays tracks from a library through one backend
type Player struct {
	config Config
	stager *stage.Buffer

	// run serialises sessions; mu guards the fields below
	run     sync.Mutex
	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	stops   uint64
	session *output.Session
	stats   *counters
}

// New creates a player with the given configuration
func New(config Config) (*Player, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("player needs an output backend")
	}
	if config.Library == nil {
		return nil, fmt.Errorf("player needs a track library")
	}
	if config.StagingSize == 0 {
		config.StagingSize = stage.DefaultSize
	}
	if config.Volume == 0 {
		config.Volume = 100
	}

	return &Player{
		config: config,
		stager: stage.New(config.StagingSize),
		stats:  &counters{},
		state: State{
			State:   "idle",
			Backend: config.Backend.Name(),
			Volume:  config.Volume,
		},
	}, nil
}

// Tracks lists the library
func (p *Player) Tracks() ([]storage.Track, error) {
	return p.config.Library.Tracks()
}

// Play stops any current session and plays one track, returning when it
// ends, fails or is stopped. A stopped track is not an error.
func (p *Player) Play(ctx context.Context, number int) error {
	gen := p.stop()
	p.run.Lock()
	defer p.run.Unlock()

	tracks, err := p.config.Library.Tracks()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	track, err := storage.Lookup(tracks, number)
	if err != nil {
		return err
	}

	ctx = p.begin(ctx, gen)
	defer p.end()

	return p.playTrack(ctx, track)
}

// PlayAll plays the library in order until it ends or is stopped.
// Failed tracks are reported through OnError and skipped.
func (p *Player) PlayAll(ctx context.Context) error {
	gen := p.stop()
	p.run.Lock()
	defer p.run.Unlock()

	tracks, err := p.config.Library.Tracks()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	ctx = p.begin(ctx, gen)
	defer p.end()

	for _, track := range tracks {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.playTrack(ctx, track); err != nil {
			p.notifyError(fmt.Errorf("track %s: %w", track, err))
		}
	}
	return nil
}

// Stop cancels the current session; queued audio is drained first
func (p *Player) Stop() {
	p.stop()
}

// stop cancels the current session and returns the new stop generation
func (p *Player) stop() uint64 {
	p.mu.Lock()
	p.stops++
	gen := p.stops
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return gen
}

// begin starts a session context; it is already cancelled when a stop
// arrived after generation gen was taken
func (p *Player) begin(parent context.Context, gen uint64) context.Context {
	ctx, cancel := context.WithCancel(parent)
	p.mu.Lock()
	p.cancel = cancel
	stopped := p.stops != gen
	p.mu.Unlock()

	if stopped {
		cancel()
	}
	return ctx
}

func (p *Player) end() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// playTrack runs one PlaybackSession in the calling goroutine
func (p *Player) playTrack(ctx context.Context, track storage.Track) error {
	engine, err := decode.New(track.Codec)
	if err != nil {
		return err
	}
	defer engine.Close()

	src, err := p.config.Library.Open(track)
	if err != nil {
		return err
	}
	defer src.Close()

	backend := p.config.Backend
	session, err := backend.NewSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	p.applyVolume()

	p.stager.Reset()
	stats := &counters{}
	a := &adapter{
		ctx:       ctx,
		src:       src,
		stager:    p.stager,
		backend:   backend,
		maxErrors: p.config.MaxConsecutiveErrors,
		stats:     stats,
		onFormat:  p.setFormat,
		onError:   p.config.OnError,
	}

	p.mu.Lock()
	p.session = session
	p.stats = stats
	p.state.State = "playing"
	p.state.Track = track
	p.state.SessionID = session.ID
	p.state.SampleRate = 0
	p.state.Channels = 0
	p.state.BitDepth = 0
	p.mu.Unlock()
	p.notifyStateChange()

	log.Printf("Playing track %s (%s, session %s)", track, track.Codec, session.ID)

	runErr := engine.Run(a.callbacks())
	if backend.Enabled() {
		backend.WaitForDrain()
	}

	p.mu.Lock()
	p.state.State = "idle"
	p.mu.Unlock()
	p.notifyStateChange()

	switch {
	case a.err != nil:
		return a.err
	case runErr != nil:
		return fmt.Errorf("decode failed: %w", runErr)
	case a.cancelled:
		log.Printf("Track %s stopped", track)
	default:
		log.Printf("Track %s finished (%d frames, %d decode errors, %d underruns)",
			track, stats.frames.Load(), stats.errors.Load(), session.Underruns())
	}
	return nil
}

func (p *Player) setFormat(f audio.Format) {
	p.mu.Lock()
	p.state.SampleRate = f.SampleRate
	p.state.Channels = f.Channels
	p.state.BitDepth = f.BitDepth
	p.mu.Unlock()

	log.Printf("Stream format: %dHz %dch %d-bit", f.SampleRate, f.Channels, f.BitDepth)
	p.notifyStateChange()
}

// SetVolume sets the volume (0-100)
func (p *Player) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	vc, ok := p.config.Backend.(output.VolumeControl)
	if !ok {
		return ErrNoVolumeControl
	}
	if err := vc.SetVolume(volume); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	p.mu.Lock()
	p.state.Volume = volume
	p.mu.Unlock()

	p.notifyStateChange()
	return nil
}

// Mute sets the mute state
func (p *Player) Mute(muted bool) error {
	vc, ok := p.config.Backend.(output.VolumeControl)
	if !ok {
		return ErrNoVolumeControl
	}
	if err := vc.SetMuted(muted); err != nil {
		return fmt.Errorf("failed to set mute: %w", err)
	}

	p.mu.Lock()
	p.state.Muted = muted
	p.mu.Unlock()

	p.notifyStateChange()
	return nil
}

// applyVolume restores volume and mute after a codec bring-up
func (p *Player) applyVolume() {
	vc, ok := p.config.Backend.(output.VolumeControl)
	if !ok {
		return
	}

	p.mu.Lock()
	volume, muted := p.state.Volume, p.state.Muted
	p.mu.Unlock()

	if err := vc.SetVolume(volume); err != nil {
		log.Printf("Warning: failed to restore volume: %v", err)
	}
	if muted {
		if err := vc.SetMuted(true); err != nil {
			log.Printf("Warning: failed to restore mute: %v", err)
		}
	}
}

// Status returns the current player state
func (p *Player) Status() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns statistics for the current or last session
func (p *Player) Stats() Stats {
	p.mu.Lock()
	session, c := p.session, p.stats
	p.mu.Unlock()

	stats := Stats{
		Frames:       c.frames.Load(),
		Samples:      c.samples.Load(),
		DecodeErrors: c.errors.Load(),
		Refills:      c.refills.Load(),
	}
	if session == nil {
		return stats
	}

	stats.Underruns = session.Underruns()
	stats.Emitted = session.Emitted()

	rate := session.CurrentRate()
	if fixed, ok := p.config.Backend.(interface{ FixedRate() int }); ok {
		rate = fixed.FixedRate()
	}
	if rate > 0 {
		stats.Elapsed = time.Duration(stats.Emitted) * time.Second / time.Duration(rate)
	}
	return stats
}

// Close stops playback and releases the backend and library
func (p *Player) Close() error {
	p.Stop()
	p.run.Lock()
	defer p.run.Unlock()

	var errs []error
	if err := p.config.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close backend: %w", err))
	}
	if err := p.config.Library.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close library: %w", err))
	}
	return errors.Join(errs...)
}

// notifyStateChange calls the OnStateChange callback if set
func (p *Player) notifyStateChange() {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(p.Status())
	}
}

// notifyError calls the OnError callback if set
func (p *Player) notifyError(err error) {
	if p.config.OnError != nil {
		p.config.OnError(err)
	} else {
		log.Printf("Player error: %v", err)
	}
}
