package sim

import (
	"time"

	"obstacar/core"
)

// Counter is an 8-bit style capture counter clocked at Hz that raises
// EventEchoOverflow on every wrap
type Counter struct {
	s     *Scheduler
	d     *core.Dispatcher
	hz    uint64
	width uint64

	base    uint64 // counts accumulated before started
	started time.Duration
	running bool
	raised  uint64 // wraps delivered since Reset
	next    *Event
}

// NewCounter creates a counter with the given rate and counts per wrap
func NewCounter(s *Scheduler, d *core.Dispatcher, hz, width uint32) *Counter {
	return &Counter{s: s, d: d, hz: uint64(hz), width: uint64(width)}
}

func (c *Counter) counts() uint64 {
	total := c.base
	if c.running {
		total += uint64(c.s.Now()-c.started) * c.hz / uint64(time.Second)
	}
	return total
}

func (c *Counter) Reset() {
	c.base = 0
	c.raised = 0
	if c.running {
		c.started = c.s.Now()
		c.next.Cancel()
		c.schedule()
	}
}

func (c *Counter) Start() {
	if c.running {
		return
	}
	c.started = c.s.Now()
	c.running = true
	c.schedule()
}

// Stop freezes the count. A wrap reached at the very instant of the stop is
// delivered before Stop returns, from handler context.
func (c *Counter) Stop() {
	if !c.running {
		return
	}
	c.base = c.counts()
	c.running = false
	c.next.Cancel()
	c.next = nil

	for c.raised < c.base/c.width {
		c.raised++
		c.d.Dispatch(core.EventEchoOverflow)
	}
}

func (c *Counter) Count() uint32 {
	return uint32(c.counts() % c.width)
}

func (c *Counter) Width() uint32 {
	return uint32(c.width)
}

// schedule arms the event for the next wrap
func (c *Counter) schedule() {
	wrap := (c.counts()/c.width + 1) * c.width
	need := wrap - c.base
	sec := uint64(time.Second)
	wait := time.Duration((need*sec + c.hz - 1) / c.hz)
	c.next = c.s.At(c.started+wait, c.fire)
}

func (c *Counter) fire() {
	for c.running && c.raised < c.counts()/c.width {
		c.raised++
		c.d.Raise(core.EventEchoOverflow)
	}
	if c.running {
		c.schedule()
	}
}
