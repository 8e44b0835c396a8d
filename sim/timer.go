package sim

import (
	"fmt"
	"time"

	"obstacar/core"
)

// Timer is a 32-bit alarm timer behind core.TickSource
type Timer struct {
	s        *Scheduler
	clockHz  uint32
	overflow func()

	period  time.Duration
	running bool
	next    *Event
}

// NewTimer creates a timer counting at clockHz
func NewTimer(s *Scheduler, clockHz uint32) *Timer {
	return &Timer{s: s, clockHz: clockHz}
}

// SetOverflow binds the overflow interrupt, normally to TickSource.Overflow
func (t *Timer) SetOverflow(fn func()) {
	t.overflow = fn
}

func (t *Timer) ClockHz() uint32 {
	return t.clockHz
}

func (t *Timer) Width() uint8 {
	return 32
}

func (t *Timer) Dividers() []uint32 {
	return []uint32{1}
}

// Program sets the overflow period; a running timer is re-armed
func (t *Timer) Program(divider, reload uint32) error {
	if divider == 0 || reload == 0 || t.clockHz == 0 {
		return fmt.Errorf("sim timer divider %d reload %d: %w", divider, reload, core.ErrConfiguration)
	}
	t.period = time.Duration(uint64(divider) * uint64(reload) * uint64(time.Second) / uint64(t.clockHz))
	if t.running {
		t.next.Cancel()
		t.schedule()
	}
	return nil
}

func (t *Timer) Start() {
	if t.running || t.period == 0 {
		return
	}
	t.running = true
	t.schedule()
}

func (t *Timer) Stop() {
	t.running = false
	t.next.Cancel()
	t.next = nil
}

// Period returns the programmed overflow period
func (t *Timer) Period() time.Duration {
	return t.period
}

func (t *Timer) schedule() {
	t.next = t.s.After(t.period, t.fire)
}

func (t *Timer) fire() {
	if !t.running {
		return
	}
	t.schedule()
	if t.overflow != nil {
		t.overflow()
	}
}
