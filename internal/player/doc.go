// ABOUTME: Track player package documentation
// ABOUTME: Describes the session lifecycle from library to backend
// Package player plays tracks from a storage library through an output backend.
//
// Each track runs as one playback session: the backend opens a fresh PCM
// ring, the adapter refills a staging buffer from the track file, the decode
// engine turns it into frames, and the backend's interrupt handler drains the
// ring into the sink. Sessions end on end of input, on Stop, or on a fatal
// error; in every case queued audio is played out before output is disabled.
//
// Example:
//
//	p, err := player.New(player.Config{
//	    Backend: backend,
//	    Library: library,
//	})
//	err = p.Play(ctx, 1)
package player
