// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels carrying user commands
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries commands from the TUI to the player
type Controls struct {
	Play    chan PlayMsg
	Stop    chan StopMsg
	Changes chan VolumeChangeMsg
	Quit    chan QuitMsg
}

// PlayMsg asks for a track by number
type PlayMsg struct {
	Track int
}

// StopMsg asks to stop the current track
type StopMsg struct{}

// VolumeChangeMsg carries a new volume and mute state
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// QuitMsg asks the application to exit
type QuitMsg struct{}

// NewControls creates the command channels
func NewControls() *Controls {
	return &Controls{
		Play:    make(chan PlayMsg, 4),
		Stop:    make(chan StopMsg, 4),
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		volume:   100,
		state:    "idle",
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
