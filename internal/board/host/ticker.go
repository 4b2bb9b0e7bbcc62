// ABOUTME: Timer driven by the host's monotonic clock
// ABOUTME: Catches up on elapsed periods in batches since tickers cannot fire at audio rates
package host

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultResolution is how often the ticker wakes up to catch up
const DefaultResolution = time.Millisecond

// TickerTimer fires its handler once per elapsed timer period.
//
// A goroutine wakes every Resolution and runs the handler as many times as
// periods have elapsed since the last wake-up, so the average rate matches
// the configured period even though individual ticks are bunched.
type TickerTimer struct {
	ClockHz    uint32
	Resolution time.Duration

	handler func()
	period  atomic.Uint32
	ticks   atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerTimer creates a ticker for a timer clocked at clockHz
func NewTickerTimer(clockHz uint32) *TickerTimer {
	return &TickerTimer{ClockHz: clockHz, Resolution: DefaultResolution}
}

// Attach installs the handler
func (t *TickerTimer) Attach(handler func()) {
	t.handler = handler
}

// SetPeriod sets the match value; takes effect on the next wake-up
func (t *TickerTimer) SetPeriod(period uint32) {
	t.period.Store(period)
}

// Ticks returns how many times the handler ran
func (t *TickerTimer) Ticks() uint64 {
	return t.ticks.Load()
}

// Start begins firing. Calling Start on a running timer does nothing.
func (t *TickerTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stop, t.done)
}

// Stop stops firing and waits for the loop to exit
func (t *TickerTimer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (t *TickerTimer) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	res := t.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	ticker := time.NewTicker(res)
	defer ticker.Stop()

	last := time.Now()
	var owed float64
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			rate := float64(t.ClockHz) / float64(t.period.Load()+1)
			owed += now.Sub(last).Seconds() * rate
			last = now

			n := int(owed)
			owed -= float64(n)
			for i := 0; i < n; i++ {
				if t.handler != nil {
					t.handler()
				}
			}
			t.ticks.Add(uint64(n))
		}
	}
}
