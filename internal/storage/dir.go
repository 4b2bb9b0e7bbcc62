// ABOUTME: Library over a directory on the local filesystem
// ABOUTME: Used on the host and for SD cards mounted by the operating system
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dir is a library rooted at a local directory
type Dir struct {
	Root string
}

// OpenDir checks that root is a readable directory
func OpenDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library %s is not a directory", root)
	}
	return &Dir{Root: root}, nil
}

// Tracks lists playable files in the root directory
func (d *Dir) Tracks() ([]Track, error) {
	des, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.Root, err)
	}
	entries := make([]entry, 0, len(des))
	for _, de := range des {
		entries = append(entries, entry{name: de.Name(), isDir: de.IsDir()})
	}
	return buildTracks("/", entries), nil
}

// Open opens a track file
func (d *Dir) Open(t Track) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(t.Path)))
	if err != nil {
		return nil, fmt.Errorf("failed to open track %d: %w", t.Number, err)
	}
	return f, nil
}

// Close does nothing for directories
func (d *Dir) Close() error {
	return nil
}

func (d *Dir) String() string {
	return d.Root
}
