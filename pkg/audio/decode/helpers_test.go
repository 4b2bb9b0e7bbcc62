// ABOUTME: Shared test helpers for decode engines
// ABOUTME: Drives an engine through a real staging buffer like the player does
package decode

import (
	"bytes"
	"testing"

	"github.com/sdplay/sdplay-go/pkg/audio"
	"github.com/sdplay/sdplay-go/pkg/audio/stage"
)

type captured struct {
	frames  []audio.Frame
	errs    []error
	refills int
}

// samples returns all captured left and right samples in order
func (c *captured) samples() (left, right []int32) {
	for _, f := range c.frames {
		left = append(left, f.Left...)
		right = append(right, f.Right...)
	}
	return left, right
}

// runStaged decodes data through a staging buffer of the given size
func runStaged(t *testing.T, e Engine, data []byte, stagingSize int) *captured {
	t.Helper()

	c := &captured{}
	src := bytes.NewReader(data)
	buf := stage.New(stagingSize)

	cb := Callbacks{
		Input: func(s *Stream) Flow {
			c.refills++
			n, err := buf.Refill(src, s.Cursor())
			if err != nil {
				t.Fatalf("refill failed: %v", err)
			}
			if n == 0 {
				return FlowStop
			}
			s.SetBuffer(buf.Bytes())
			return FlowContinue
		},
		Output: func(f audio.Frame) Flow {
			cp := f
			cp.Left = append([]int32(nil), f.Left...)
			if f.Right != nil {
				cp.Right = append([]int32(nil), f.Right...)
			}
			c.frames = append(c.frames, cp)
			return FlowContinue
		},
		Error: func(s *Stream, err error) Flow {
			c.errs = append(c.errs, err)
			return FlowContinue
		},
	}

	if err := e.Run(cb); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return c
}
