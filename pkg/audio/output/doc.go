// ABOUTME: Output backend package for interrupt-driven sample sinks
// ABOUTME: Timer+converter and FIFO+serial backends sharing one ring-based session model
// Package output turns decoded frames into samples consumed by an
// interrupt handler.
//
// Two backends are provided:
//   - TimerBackend: a periodic timer raises a tick, and each tick writes one
//     sample to a single-channel converter (mono sink)
//   - FIFOBackend: a serial transmit FIFO raises a low-watermark event, and
//     each event writes one packed left/right word (stereo sink, external codec)
//
// Peripherals are interfaces. OtoClock drives either backend from the host
// sound card, and WAVTap records whatever the handler emits.
//
// Example:
//
//	clock := output.NewOtoClock(output.OtoMono)
//	backend := output.NewTimer(clock, clock, output.TimerConfig{})
//	session, err := backend.NewSession()
//	backend.AdjustRate(44100)
//	backend.Enable()
//	backend.Enqueue(frame)
//	backend.WaitForDrain()
package output
