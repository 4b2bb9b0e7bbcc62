// ABOUTME: Entry point for the sdplay track player
// ABOUTME: Loads the board configuration, applies CLI overrides and runs the player
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdplay/sdplay-go/internal/app"
	"github.com/sdplay/sdplay-go/internal/config"
	"github.com/sdplay/sdplay-go/internal/version"
)

var (
	configPath = flag.String("config", "", "YAML board configuration (default: built-in host settings)")
	board      = flag.String("board", "", "Board: host, sim or rpi")
	backend    = flag.String("backend", "", "Output backend: timer or fifo")
	dir        = flag.String("dir", "", "Directory holding the tracks")
	image      = flag.String("image", "", "Disk image holding the tracks")
	partition  = flag.Int("partition", 0, "Partition of the disk image (0: whole disk)")
	imagePath  = flag.String("image-path", "", "Directory inside the disk image")
	record     = flag.String("record", "", "Record every emitted sample to this WAV file")
	volume     = flag.Int("volume", 0, "Initial volume (0-100)")
	maxErrors  = flag.Int("max-errors", 0, "Stop a track after this many bad frames in a row (0: never)")
	listen     = flag.String("listen", "", "Remote control listen address, e.g. :8928")
	mdnsFlag   = flag.Bool("mdns", false, "Advertise the remote control over mDNS")
	name       = flag.String("name", "", "Player friendly name (default: hostname-sdplay)")
	track      = flag.Int("play", 0, "Play this track number on start")
	playAll    = flag.Bool("all", false, "Play the whole library on start")
	logFile    = flag.String("log-file", "sdplay.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVer    = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	playerName := cfg.Remote.Name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-sdplay", hostname)
	}

	log.Printf("Starting %s: %s (board %s, backend %s)", version.String(), playerName, cfg.Board, cfg.Backend)

	a, err := app.New(app.Config{
		Board:   cfg,
		Name:    playerName,
		UseTUI:  useTUI,
		PlayAll: *playAll,
		Track:   *track,
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	if err := a.Start(); err != nil {
		_ = a.Stop()
		log.Fatalf("Failed to start player: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-a.Done():
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	if err := a.Stop(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Player stopped")
}

// loadConfig reads the configuration file and applies the flags the user set
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "board":
			cfg.Board = *board
		case "backend":
			cfg.Backend = *backend
		case "dir":
			cfg.Library.Dir = *dir
			cfg.Library.Image = ""
		case "image":
			cfg.Library.Image = *image
		case "partition":
			cfg.Library.Partition = *partition
		case "image-path":
			cfg.Library.Path = *imagePath
		case "record":
			cfg.Record = *record
		case "volume":
			cfg.Volume = *volume
		case "max-errors":
			cfg.MaxConsecutiveErrors = *maxErrors
		case "listen":
			cfg.Remote.Listen = *listen
		case "mdns":
			cfg.Remote.MDNS = *mdnsFlag
		case "name":
			cfg.Remote.Name = *name
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
