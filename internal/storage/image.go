// ABOUTME: Library over a FAT32 SD card image read with go-diskfs
// ABOUTME: Reads the partition table and filesystem directly, no mounting needed
package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"
)

// Image is a library inside a disk image or block device
type Image struct {
	Path      string
	Partition int
	Dir       string

	fs filesystem.FileSystem
}

// OpenImage opens the filesystem on the given partition (0 for an unpartitioned image)
func OpenImage(path string, partition int, dir string) (*Image, error) {
	dsk, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	fs, err := dsk.GetFilesystem(partition)
	if err != nil {
		return nil, fmt.Errorf("failed to read filesystem on partition %d: %w", partition, err)
	}
	if dir == "" {
		dir = "/"
	}
	return &Image{Path: path, Partition: partition, Dir: dir, fs: fs}, nil
}

// Tracks lists playable files in the library directory
func (im *Image) Tracks() ([]Track, error) {
	infos, err := im.fs.ReadDir(im.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s in %s: %w", im.Dir, im.Path, err)
	}
	entries := make([]entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entry{name: info.Name(), isDir: info.IsDir()})
	}
	return buildTracks(im.Dir, entries), nil
}

// Open opens a track inside the image
func (im *Image) Open(t Track) (io.ReadCloser, error) {
	f, err := im.fs.OpenFile(t.Path, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open track %d: %w", t.Number, err)
	}
	return f, nil
}

// Close releases the filesystem
func (im *Image) Close() error {
	if im.fs == nil {
		return nil
	}
	err := im.fs.Close()
	im.fs = nil
	return err
}

func (im *Image) String() string {
	return fmt.Sprintf("%s (partition %d)", im.Path, im.Partition)
}
