// ABOUTME: Decode engine package for compressed audio streams
// ABOUTME: Push-input / pull-output engines for MP3, FLAC, Vorbis, Opus and WAV
// Package decode provides streaming decode engines.
//
// An engine never reads storage itself. When it needs bytes it calls the
// Input callback, which hands it a window through Stream.SetBuffer. The
// engine records how far it got with Stream.Advance; bytes past that point
// are expected to reappear at the start of the next window.
//
// Supports: MP3, FLAC, Ogg Vorbis, Ogg Opus, WAV (PCM)
//
// Example:
//
//	engine, err := decode.ForExtension(".mp3")
//	err = engine.Run(decode.Callbacks{
//		Input:  refill,
//		Output: enqueue,
//		Error:  report,
//	})
package decode
