//go:build linux && !tinygo

package main

import (
	"sync"
	"time"

	"obstacar/core"
)

// tickerTimer is a TimerDriver backed by a goroutine and time.Ticker, counting
// nanoseconds. The goroutine stands in for the overflow interrupt.
type tickerTimer struct {
	overflow func()

	mu     sync.Mutex
	period time.Duration
	stop   chan struct{}
	done   chan struct{}
}

func (t *tickerTimer) ClockHz() uint32 {
	return uint32(time.Second)
}

func (t *tickerTimer) Width() uint8 {
	return 32
}

func (t *tickerTimer) Dividers() []uint32 {
	return []uint32{1, 1000}
}

func (t *tickerTimer) Program(divider, reload uint32) error {
	if divider == 0 || reload == 0 {
		return core.ErrConfiguration
	}
	t.mu.Lock()
	t.period = time.Duration(divider) * time.Duration(reload)
	t.mu.Unlock()
	return nil
}

func (t *tickerTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil || t.period == 0 {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.period, t.stop, t.done)
}

func (t *tickerTimer) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (t *tickerTimer) run(period time.Duration, stop, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			if t.overflow != nil {
				t.overflow()
			}
		}
	}
}

var epoch = time.Now()

// microClock is the fine clock: microseconds on the monotonic clock
var microClock = core.ClockFunc(func() core.Tick {
	return core.Tick(uint32(time.Since(epoch) / time.Microsecond))
})
