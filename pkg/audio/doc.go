// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Frame types and sample narrowing
// Package audio provides the sample types shared by the playback pipeline.
//
// Decode engines deliver Frame values carrying per-channel int32 samples at
// the decoder's internal bit depth. Output backends narrow them to the
// 16-bit width stored in the PCM ring:
//
//	f := audio.Frame{SampleRate: 44100, Channels: 1, BitDepth: 24, Left: samples}
//	s := audio.Narrow(f.Left[0], f.Depth())
//
// Narrowing always truncates; there is no rounding or dithering.
package audio
