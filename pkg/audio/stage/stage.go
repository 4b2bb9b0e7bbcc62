// ABOUTME: Compressed-input staging buffer with carry-over refill
// ABOUTME: Keeps the unconsumed tail of a partial frame ahead of freshly read bytes
package stage

import (
	"errors"
	"fmt"
	"io"
	"log"
)

// DefaultSize matches the page size read from the card per refill
const DefaultSize = 512

// Cursor marks where the decode engine stopped consuming.
// Valid is false before the engine has consumed anything.
type Cursor struct {
	Next  int
	Valid bool
}

// Buffer holds compressed bytes waiting to be decoded.
// Only Refill mutates it; the engine reads it through Bytes.
type Buffer struct {
	storage []byte
	valid   int
}

// New creates a staging buffer with the given capacity
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{storage: make([]byte, size)}
}

// Reset discards all staged bytes
func (b *Buffer) Reset() {
	b.valid = 0
}

// Bytes returns the staged window
func (b *Buffer) Bytes() []byte {
	return b.storage[:b.valid]
}

// Len returns the number of staged bytes
func (b *Buffer) Len() int {
	return b.valid
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return len(b.storage)
}

// Refill moves the unconsumed tail (from cur.Next) to the front and fills
// the rest of the buffer from r. It returns the number of staged bytes,
// or 0 at end of input.
func (b *Buffer) Refill(r io.Reader, cur Cursor) (int, error) {
	carry := 0
	if cur.Valid {
		next := cur.Next
		if next < 0 {
			next = 0
		}
		if next > b.valid {
			next = b.valid
		}
		carry = b.valid - next
		if carry > 0 && next > 0 {
			copy(b.storage, b.storage[next:b.valid])
		}
	}

	if carry == len(b.storage) {
		log.Printf("Warning: staged frame larger than %d byte buffer, discarding it", len(b.storage))
		carry = 0
	}

	n, err := readFull(r, b.storage[carry:])
	if err != nil {
		b.valid = 0
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	if n == 0 {
		b.valid = 0
		return 0, nil
	}

	b.valid = carry + n
	return b.valid, nil
}

// readFull reads until dst is full or the reader reports EOF.
// A short read at end of input is not an error.
func readFull(r io.Reader, dst []byte) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := r.Read(dst[total:])
		total += n
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			// A reader making no progress without error is treated as end of input
			return total, nil
		}
	}
	return total, nil
}
