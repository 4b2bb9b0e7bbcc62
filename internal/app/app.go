// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates board, library, player, remote control, discovery and UI
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sdplay/sdplay-go/internal/config"
	"github.com/sdplay/sdplay-go/internal/discovery"
	"github.com/sdplay/sdplay-go/internal/player"
	"github.com/sdplay/sdplay-go/internal/remote"
	"github.com/sdplay/sdplay-go/internal/storage"
	"github.com/sdplay/sdplay-go/internal/ui"
	"github.com/sdplay/sdplay-go/internal/version"
)

// Config holds application configuration
type Config struct {
	Board *config.Config

	// Name identifies the player to remotes (default: sdplay)
	Name string

	// UseTUI starts the terminal interface
	UseTUI bool

	// PlayAll plays the whole library once started
	PlayAll bool

	// Track plays one track once started (0: none)
	Track int
}

// App represents the running player application
type App struct {
	config    Config
	board     *Board
	library   storage.Library
	player    *player.Player
	remote    *remote.Server
	discovery *discovery.Manager
	controls  *ui.Controls
	tuiProg   *tea.Program

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // background loops
	plays  sync.WaitGroup // playback calls
	done   chan struct{}
	once   sync.Once
}

// New opens the library and board and creates the player
func New(cfg Config) (*App, error) {
	if cfg.Board == nil {
		cfg.Board = config.Default()
	}
	if err := cfg.Board.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Board.Remote.Name
	}
	if cfg.Name == "" {
		cfg.Name = version.Product
	}

	library, err := OpenLibrary(cfg.Board.Library)
	if err != nil {
		return nil, err
	}

	board, err := OpenBoard(cfg.Board)
	if err != nil {
		library.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:  cfg,
		board:   board,
		library: library,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	a.player, err = player.New(player.Config{
		Backend:              board.Backend,
		Library:              library,
		StagingSize:          cfg.Board.StagingBytes,
		MaxConsecutiveErrors: cfg.Board.MaxConsecutiveErrors,
		Volume:               cfg.Board.Volume,
		OnStateChange:        a.handleStateChange,
		OnError:              a.handleError,
	})
	if err != nil {
		cancel()
		board.Close()
		library.Close()
		return nil, err
	}

	// The player treats a zero volume as unset
	if cfg.Board.Volume == 0 {
		if err := a.player.SetVolume(0); err != nil {
			log.Printf("Warning: cannot start silent: %v", err)
		}
	}
	return a, nil
}

// OpenLibrary opens the disk image when one is configured, else the directory
func OpenLibrary(cfg config.LibraryConfig) (storage.Library, error) {
	if cfg.Image != "" {
		return storage.OpenImage(cfg.Image, cfg.Partition, cfg.Path)
	}
	return storage.OpenDir(cfg.Dir)
}

// Start brings up the interfaces and, when asked, starts playing
func (a *App) Start() error {
	if a.config.UseTUI {
		a.controls = ui.NewControls()
		prog, err := ui.Run(a.controls)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		a.tuiProg = prog
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
			a.quit()
		}()

		a.wg.Add(2)
		go a.controlLoop()
		go a.statsUpdateLoop()
	}

	tracks, err := a.player.Tracks()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	log.Printf("Library has %d tracks", len(tracks))
	a.updateTUI(ui.TracksMsg{Tracks: trackItems(tracks)})
	a.updateTUI(ui.StatusMsg{State: "idle", Board: a.board.Name, Backend: a.board.Backend.Name()})

	if listen := a.config.Board.Remote.Listen; listen != "" {
		a.remote = remote.NewServer(remote.Config{Addr: listen, Name: a.config.Name}, &controller{a: a})
		if err := a.remote.Start(); err != nil {
			return err
		}
		a.wg.Add(1)
		go a.broadcastLoop()

		if a.config.Board.Remote.MDNS {
			a.discovery = discovery.NewManager(discovery.Config{
				ServiceName: a.config.Name,
				Port:        a.remote.Port(),
				TXT:         a.txtRecords(),
			})
			if err := a.discovery.Advertise(); err != nil {
				log.Printf("Warning: mDNS advertisement failed: %v", err)
			}
		}
	}

	switch {
	case a.config.PlayAll:
		a.playAsync(func(ctx context.Context) error { return a.player.PlayAll(ctx) })
	case a.config.Track > 0:
		n := a.config.Track
		a.playAsync(func(ctx context.Context) error { return a.player.Play(ctx, n) })
	}
	return nil
}

// txtRecords describes the player in its mDNS advertisement
func (a *App) txtRecords() []string {
	return []string{
		"product=" + version.Product,
		"version=" + version.Version,
		"board=" + a.board.Name,
		"backend=" + a.board.Backend.Name(),
	}
}

// Done is closed when the user quits from the TUI
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Player returns the track player
func (a *App) Player() *player.Player {
	return a.player
}

// Board returns the output peripherals
func (a *App) Board() *Board {
	return a.board
}

// Remote returns the remote control server, nil when disabled
func (a *App) Remote() *remote.Server {
	return a.remote
}

// Wait blocks until every playback started by the app has returned
func (a *App) Wait() {
	a.plays.Wait()
}

// Stop shuts everything down; queued audio is drained first
func (a *App) Stop() error {
	if a.remote != nil {
		a.remote.Stop()
	}
	if a.discovery != nil {
		a.discovery.Stop()
	}

	a.player.Stop()
	a.cancel()
	a.quit()
	a.wg.Wait()
	a.plays.Wait()

	if a.tuiProg != nil {
		a.tuiProg.Quit()
	}

	return errors.Join(a.player.Close(), a.board.Close())
}

func (a *App) quit() {
	a.once.Do(func() { close(a.done) })
}

// playAsync runs a playback call in the background
func (a *App) playAsync(play func(ctx context.Context) error) {
	a.plays.Add(1)
	go func() {
		defer a.plays.Done()
		if err := play(a.ctx); err != nil {
			a.handleError(err)
		}
	}()
}

func (a *App) handleStateChange(state player.State) {
	volume, muted := state.Volume, state.Muted
	a.updateTUI(ui.StatusMsg{
		State:      state.State,
		Track:      state.Track.Number,
		Backend:    state.Backend,
		SampleRate: state.SampleRate,
		Channels:   state.Channels,
		BitDepth:   state.BitDepth,
		Volume:     &volume,
		Muted:      &muted,
	})
	if a.remote != nil {
		a.remote.Broadcast(a.status(state))
	}
}

func (a *App) handleError(err error) {
	log.Printf("Player error: %v", err)
	a.updateTUI(ui.ErrorMsg{Err: err.Error()})
}

func (a *App) updateTUI(msg tea.Msg) {
	if a.tuiProg != nil {
		a.tuiProg.Send(msg)
	}
}

// status merges player state and session statistics for remotes
func (a *App) status(state player.State) remote.Status {
	stats := a.player.Stats()
	return remote.Status{
		Type:         remote.TypeStatus,
		State:        state.State,
		Track:        state.Track.Number,
		TrackName:    state.Track.Name,
		SessionID:    state.SessionID,
		Backend:      state.Backend,
		SampleRate:   state.SampleRate,
		Channels:     state.Channels,
		BitDepth:     state.BitDepth,
		Volume:       state.Volume,
		Muted:        state.Muted,
		Frames:       stats.Frames,
		DecodeErrors: stats.DecodeErrors,
		Underruns:    stats.Underruns,
		ElapsedMs:    stats.Elapsed.Milliseconds(),
	}
}

// controlLoop processes commands from the TUI
func (a *App) controlLoop() {
	defer a.wg.Done()
	for {
		select {
		case msg := <-a.controls.Play:
			n := msg.Track
			log.Printf("Play requested: track %d", n)
			a.playAsync(func(ctx context.Context) error { return a.player.Play(ctx, n) })
		case <-a.controls.Stop:
			a.player.Stop()
		case vol := <-a.controls.Changes:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			if err := a.player.SetVolume(vol.Volume); err != nil {
				a.handleError(err)
				continue
			}
			if err := a.player.Mute(vol.Muted); err != nil {
				a.handleError(err)
			}
		case <-a.controls.Quit:
			log.Printf("Received quit signal from TUI")
			a.quit()
			return
		case <-a.ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates the TUI with playback statistics
func (a *App) statsUpdateLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var lastGoroutines int
	var lastMemAlloc uint64

	for {
		select {
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			lastGoroutines = runtime.NumGoroutine()
			lastMemAlloc = m.Alloc

		case <-ticker.C:
			stats := a.player.Stats()
			a.updateTUI(ui.StatsMsg{
				Frames:       stats.Frames,
				DecodeErrors: stats.DecodeErrors,
				Underruns:    stats.Underruns,
				Elapsed:      stats.Elapsed,
				Goroutines:   lastGoroutines,
				MemAlloc:     lastMemAlloc,
			})

		case <-a.ctx.Done():
			return
		}
	}
}

// broadcastLoop keeps remotes' elapsed time current while a track plays
func (a *App) broadcastLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			state := a.player.Status()
			if state.State == "playing" && a.remote.Clients() > 0 {
				a.remote.Broadcast(a.status(state))
			}
		case <-a.ctx.Done():
			return
		}
	}
}

func trackItems(tracks []storage.Track) []ui.TrackItem {
	items := make([]ui.TrackItem, len(tracks))
	for i, t := range tracks {
		items[i] = ui.TrackItem{Number: t.Number, Name: t.Name, Codec: t.Codec}
	}
	return items
}

// controller exposes the app to remotes
type controller struct {
	a *App
}

// Play checks the track exists, then plays it in the background
func (c *controller) Play(number int) error {
	tracks, err := c.a.player.Tracks()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	if _, err := storage.Lookup(tracks, number); err != nil {
		return err
	}
	c.a.playAsync(func(ctx context.Context) error { return c.a.player.Play(ctx, number) })
	return nil
}

func (c *controller) Stop() {
	c.a.player.Stop()
}

func (c *controller) SetVolume(volume int) error {
	return c.a.player.SetVolume(volume)
}

func (c *controller) Mute(muted bool) error {
	return c.a.player.Mute(muted)
}

func (c *controller) Status() remote.Status {
	return c.a.status(c.a.player.Status())
}

func (c *controller) Tracks() ([]remote.TrackInfo, error) {
	tracks, err := c.a.player.Tracks()
	if err != nil {
		return nil, err
	}
	infos := make([]remote.TrackInfo, len(tracks))
	for i, t := range tracks {
		infos[i] = remote.TrackInfo{Number: t.Number, Name: t.Name, Codec: t.Codec}
	}
	return infos, nil
}
