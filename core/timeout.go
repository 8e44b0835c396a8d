package core

import "runtime"

// Clock is anything that reports a wrapping tick count
type Clock interface {
	Now() Tick
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() Tick

// Now calls f
func (f ClockFunc) Now() Tick {
	return f()
}

// TimeoutState is the result of polling a timeout
type TimeoutState uint8

const (
	Pending TimeoutState = iota
	Expired
)

func (s TimeoutState) String() string {
	if s == Expired {
		return "expired"
	}
	return "pending"
}

// Timeout is a non-blocking elapsed-time check against a Clock. Each consumer
// owns its own Timeout; the first Poll arms it and later polls compare the
// elapsed ticks against the requested duration.
type Timeout struct {
	clock Clock
	start Tick
	armed bool
}

// NewTimeout returns an unarmed timeout reading c
func NewTimeout(c Clock) *Timeout {
	return &Timeout{clock: c}
}

// Poll arms the timeout if it is not armed (returning Pending), otherwise
// reports whether duration ticks have elapsed since it was armed. Expiry
// disarms it, so the next Poll starts a new interval.
func (t *Timeout) Poll(duration Tick) TimeoutState {
	now := t.clock.Now()
	if !t.armed {
		t.start = now
		t.armed = true
		return Pending
	}
	if Elapsed(t.start, now) >= duration {
		t.armed = false
		return Expired
	}
	return Pending
}

// Reset disarms the timeout; the next Poll captures a fresh start
func (t *Timeout) Reset() {
	t.armed = false
}

// Armed reports whether an interval is in progress
func (t *Timeout) Armed() bool {
	return t.armed
}

// Elapsed returns the ticks between two counter readings, accounting for one
// wrap of the counter.
func Elapsed(from, to Tick) Tick {
	if from > to {
		return (MaxTick - from) + to
	}
	return to - from
}

// SpinWait busy-waits until ticks have elapsed on c. It is the one blocking
// primitive and is only meant for short waits on a fine-grained clock, such as
// a trigger pulse.
func SpinWait(c Clock, ticks Tick) {
	t := Timeout{clock: c}
	t.Poll(ticks)
	for t.Poll(ticks) != Expired {
		runtime.Gosched()
	}
}
