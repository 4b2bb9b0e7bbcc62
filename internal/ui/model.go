// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Track list, now-playing line, volume and session statistics
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// listRows is how many tracks are shown at once
const listRows = 8

// TrackItem is one row of the track list
type TrackItem struct {
	Number int
	Name   string
	Codec  string
}

// Model represents the TUI state
type Model struct {
	// Library
	tracks []TrackItem
	cursor int
	offset int

	// Session
	state      string
	playing    int
	board      string
	backend    string
	sampleRate int
	channels   int
	bitDepth   int

	// Output
	volume int
	muted  bool

	// Stats
	frames       uint64
	decodeErrors uint64
	underruns    uint64
	elapsed      time.Duration
	lastError    string

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	controls *Controls

	// Dimensions
	width  int
	height int
}

// TracksMsg replaces the track list
type TracksMsg struct {
	Tracks []TrackItem
}

// StatusMsg updates TUI state; zero fields are left unchanged
type StatusMsg struct {
	State      string
	Track      int
	Board      string
	Backend    string
	SampleRate int
	Channels   int
	BitDepth   int
	Volume     *int
	Muted      *bool
}

// StatsMsg carries periodic session statistics
type StatsMsg struct {
	Frames       uint64
	DecodeErrors uint64
	Underruns    uint64
	Elapsed      time.Duration
	Goroutines   int
	MemAlloc     uint64
}

// ErrorMsg shows the last player error
type ErrorMsg struct {
	Err string
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case TracksMsg:
		m.tracks = msg.Tracks
		if m.cursor >= len(m.tracks) {
			m.cursor = 0
			m.offset = 0
		}
	case StatusMsg:
		m.applyStatus(msg)
	case StatsMsg:
		m.frames = msg.Frames
		m.decodeErrors = msg.DecodeErrors
		m.underruns = msg.Underruns
		m.elapsed = msg.Elapsed
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	case ErrorMsg:
		m.lastError = msg.Err
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderTracks()
	s += m.renderNowPlaying()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the board and backend
func (m Model) renderHeader() string {
	output := m.backend
	if m.board != "" {
		output = fmt.Sprintf("%s on %s", m.backend, m.board)
	}
	return fmt.Sprintf(`┌─ sdplay ─────────────────────────────────────────────┐
│ Output: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(output, 45))
}

// renderTracks renders the visible part of the track list
func (m Model) renderTracks() string {
	if len(m.tracks) == 0 {
		return "│ No tracks                                            │\n"
	}

	s := ""
	end := m.offset + listRows
	if end > len(m.tracks) {
		end = len(m.tracks)
	}
	for i := m.offset; i < end; i++ {
		t := m.tracks[i]
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		playing := " "
		if t.Number == m.playing && m.state == "playing" {
			playing = "♪"
		}
		s += fmt.Sprintf("│ %s%s %02d %-38s %-6s │\n", marker, playing, t.Number, truncate(t.Name, 38), t.Codec)
	}
	return s
}

// renderNowPlaying renders the current track and format
func (m Model) renderNowPlaying() string {
	s := "├──────────────────────────────────────────────────────┤\n"
	if m.state != "playing" {
		return s + "│ Stopped                                              │\n"
	}

	name := ""
	for _, t := range m.tracks {
		if t.Number == m.playing {
			name = t.Name
		}
	}
	s += fmt.Sprintf("│ Playing: %02d %-41s │\n", m.playing, truncate(name, 41))
	s += fmt.Sprintf("│ Duration: %-43s │\n", formatElapsed(m.elapsed))
	if m.sampleRate > 0 {
		s += fmt.Sprintf("│ Format: %-45s │\n",
			fmt.Sprintf("%dHz %s %d-bit", m.sampleRate, channelName(m.channels), m.bitDepth))
	}
	return s
}

// renderControls renders volume status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│ Volume: [%s] %3d%%%-25s │\n", volumeBar, m.volume, muteIcon)
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Frames: %-10d Errors: %-8d Underruns: %-8d │
`, m.frames, m.decodeErrors, m.underruns)
	if m.lastError != "" {
		s += fmt.Sprintf("│ Last error: %-41s │\n", truncate(m.lastError, 41))
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Select  enter:Play  s/←:Stop  +/-:Vol  m:Mute  q │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Goroutines: %-38d │
│   Heap: %-44s │
`, m.goroutines, fmt.Sprintf("%.1f MiB", float64(m.memAlloc)/(1<<20)))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.send(func(c *Controls) bool {
			select {
			case c.Quit <- QuitMsg{}:
			default:
			}
			return true
		})
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		if m.cursor < m.offset {
			m.offset = m.cursor
		}
	case "down", "j":
		if m.cursor < len(m.tracks)-1 {
			m.cursor++
		}
		if m.cursor >= m.offset+listRows {
			m.offset = m.cursor - listRows + 1
		}
	case "enter", "right":
		if m.cursor < len(m.tracks) {
			m.requestPlay(m.tracks[m.cursor].Number)
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		// Number keys select like the keypad
		n := int(msg.String()[0] - '0')
		if n <= len(m.tracks) {
			m.cursor = n - 1
			if m.cursor < m.offset || m.cursor >= m.offset+listRows {
				m.offset = m.cursor
			}
			m.requestPlay(n)
		}
	case "s", "left":
		m.send(func(c *Controls) bool {
			select {
			case c.Stop <- StopMsg{}:
				return true
			default:
				return false
			}
		})
	case "+", "=":
		m.setVolume(m.volume+5, m.muted)
	case "-":
		m.setVolume(m.volume-5, m.muted)
	case "m":
		m.setVolume(m.volume, !m.muted)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) requestPlay(n int) {
	m.send(func(c *Controls) bool {
		select {
		case c.Play <- PlayMsg{Track: n}:
			return true
		default:
			return false
		}
	})
}

func (m *Model) setVolume(volume int, muted bool) {
	if volume > 100 {
		volume = 100
	}
	if volume < 0 {
		volume = 0
	}
	m.volume = volume
	m.muted = muted

	m.send(func(c *Controls) bool {
		select {
		case c.Changes <- VolumeChangeMsg{Volume: volume, Muted: muted}:
			return true
		default:
			return false
		}
	})
}

// send runs fn when controls are attached; full channels drop the command
func (m *Model) send(fn func(*Controls) bool) {
	if m.controls == nil {
		return
	}
	if !fn(m.controls) {
		m.lastError = "busy, command dropped"
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Track != 0 {
		m.playing = msg.Track
	}
	if msg.Board != "" {
		m.board = msg.Board
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

// formatElapsed renders mm:ss
func formatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
