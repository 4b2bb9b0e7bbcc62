// ABOUTME: Decoder adapter connecting a decode engine to the staging buffer and backend
// ABOUTME: Implements the input, output and error callbacks for one session
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/sdplay/sdplay-go/pkg/audio"
	"github.com/sdplay/sdplay-go/pkg/audio/decode"
	"github.com/sdplay/sdplay-go/pkg/audio/output"
	"github.com/sdplay/sdplay-go/pkg/audio/stage"
)

// ErrTooManyErrors stops a session after MaxConsecutiveErrors bad frames in a row
var ErrTooManyErrors = errors.New("too many consecutive decode errors")

// counters are read by Stats while the session runs
type counters struct {
	frames  atomic.Uint64
	samples atomic.Uint64
	errors  atomic.Uint64
	refills atomic.Uint64
}

// adapter owns no audio buffers: the staging buffer belongs to the player
// and the ring belongs to the backend's session
type adapter struct {
	ctx       context.Context
	src       io.Reader
	stager    *stage.Buffer
	backend   output.Backend
	maxErrors int

	rate        int
	format      audio.Format
	consecutive int
	cancelled   bool
	err         error

	stats    *counters
	onFormat func(audio.Format)
	onError  func(error)
}

func (a *adapter) callbacks() decode.Callbacks {
	return decode.Callbacks{
		Input:  a.input,
		Output: a.output,
		Error:  a.decodeError,
	}
}

// input refills the staging buffer, keeping the engine's unconsumed tail
func (a *adapter) input(s *decode.Stream) decode.Flow {
	select {
	case <-a.ctx.Done():
		a.cancelled = true
		a.backend.WaitForDrain()
		return decode.FlowStop
	default:
	}

	n, err := a.stager.Refill(a.src, s.Cursor())
	if err != nil {
		return a.fail(err)
	}
	if n == 0 {
		a.backend.WaitForDrain()
		return decode.FlowStop
	}

	a.stats.refills.Add(1)
	s.SetBuffer(a.stager.Bytes())
	return decode.FlowContinue
}

// output retunes the sink on rate changes and queues the frame.
// Output is enabled before the first push so a full ring always has a consumer.
func (a *adapter) output(f audio.Frame) decode.Flow {
	if f.SampleRate != a.rate {
		if err := a.backend.AdjustRate(f.SampleRate); err != nil {
			return a.fail(fmt.Errorf("failed to set sample rate %d: %w", f.SampleRate, err))
		}
		a.rate = f.SampleRate
	}
	if format := (audio.Format{SampleRate: f.SampleRate, Channels: f.Channels, BitDepth: f.Depth()}); format != a.format {
		a.format = format
		if a.onFormat != nil {
			a.onFormat(format)
		}
	}

	if !a.backend.Enabled() {
		a.backend.Enable()
	}
	if err := a.backend.Enqueue(f); err != nil {
		return a.fail(err)
	}

	a.consecutive = 0
	a.stats.frames.Add(1)
	a.stats.samples.Add(uint64(f.Len()))
	return decode.FlowContinue
}

// decodeError skips a corrupt frame
func (a *adapter) decodeError(s *decode.Stream, err error) decode.Flow {
	a.consecutive++
	a.stats.errors.Add(1)
	log.Printf("Decode error (skipping): %v", err)
	if a.onError != nil {
		a.onError(err)
	}

	if a.maxErrors > 0 && a.consecutive >= a.maxErrors {
		return a.fail(fmt.Errorf("%w: %d", ErrTooManyErrors, a.consecutive))
	}
	return decode.FlowContinue
}

// fail records a fatal session error and stops after draining what was queued
func (a *adapter) fail(err error) decode.Flow {
	if a.err == nil {
		a.err = err
	}
	a.backend.WaitForDrain()
	return decode.FlowStop
}
