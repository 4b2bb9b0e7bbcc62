// ABOUTME: Track libraries backed by a directory or an SD card image
// ABOUTME: Lists decodable files in name order and numbers them from 1
package storage

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sdplay/sdplay-go/pkg/audio/decode"
)

// ErrNoTrack is returned for track numbers outside the library
var ErrNoTrack = errors.New("no such track")

// Track is one playable file
type Track struct {
	Number int
	Name   string
	Path   string
	Codec  string
}

func (t Track) String() string {
	return fmt.Sprintf("%02d %s", t.Number, t.Name)
}

// Library is a source of tracks
type Library interface {
	// Tracks lists playable files in order
	Tracks() ([]Track, error)

	// Open returns a reader over a track's compressed bytes
	Open(t Track) (io.ReadCloser, error)

	// Close releases the underlying storage
	Close() error
}

// entry is a directory listing item common to both backends
type entry struct {
	name  string
	isDir bool
}

// buildTracks filters, sorts and numbers a listing
func buildTracks(dir string, entries []entry) []Track {
	var names []string
	for _, e := range entries {
		if e.isDir || strings.HasPrefix(e.name, ".") {
			continue
		}
		if decode.Supported(e.name) {
			names = append(names, e.name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	tracks := make([]Track, 0, len(names))
	for i, name := range names {
		codec, _ := decode.CodecForFile(name)
		tracks = append(tracks, Track{
			Number: i + 1,
			Name:   name,
			Path:   joinPath(dir, name),
			Codec:  codec,
		})
	}
	return tracks
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// Lookup returns the track with the given number
func Lookup(tracks []Track, number int) (Track, error) {
	if number < 1 || number > len(tracks) {
		return Track{}, fmt.Errorf("%w: %d (library has %d)", ErrNoTrack, number, len(tracks))
	}
	return tracks[number-1], nil
}
