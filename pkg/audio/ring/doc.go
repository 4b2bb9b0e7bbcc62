// ABOUTME: PCM ring buffer package
// ABOUTME: Single-producer single-consumer sample FIFO with silence on underrun
// Package ring provides the circular sample buffer between the decode loop
// and the output interrupt handler.
//
// The producer blocks (spins) when the ring is full; the consumer never
// blocks and reads Silence when the ring is empty.
//
// Example:
//
//	rb := ring.New(2 * 1152)
//	rb.Push(sample)   // decode loop
//	s := rb.Pop()     // interrupt handler
package ring
