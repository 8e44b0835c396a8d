// Package sim is a deterministic virtual-time board for the car firmware.
// It provides the timer, GPIO, edge and capture-counter hardware the core
// drivers expect, an HC-SR04 model and a simple room for the car to drive in.
package sim

import (
	"container/heap"
	"time"

	"obstacar/core"
)

// Event is a callback scheduled at a virtual time
type Event struct {
	at       time.Duration
	seq      uint64
	fn       func()
	index    int
	canceled bool
}

// Cancel stops a pending event from running
func (e *Event) Cancel() {
	if e != nil {
		e.canceled = true
	}
}

type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x interface{}) {
	e := x.(*Event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler owns virtual time. Events at the same instant run in the order
// they were scheduled.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue eventQueue
}

// NewScheduler creates a scheduler at time zero
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the virtual time
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// At schedules fn at virtual time t (or now, if t has passed)
func (s *Scheduler) At(t time.Duration, fn func()) *Event {
	if t < s.now {
		t = s.now
	}
	s.seq++
	e := &Event{at: t, seq: s.seq, fn: fn}
	heap.Push(&s.queue, e)
	return e
}

// After schedules fn d after now
func (s *Scheduler) After(d time.Duration, fn func()) *Event {
	return s.At(s.now+d, fn)
}

// RunUntil runs every event due up to t, then moves time to t
func (s *Scheduler) RunUntil(t time.Duration) {
	for len(s.queue) > 0 && s.queue[0].at <= t {
		e := heap.Pop(&s.queue).(*Event)
		if e.canceled {
			continue
		}
		if e.at > s.now {
			s.now = e.at
		}
		e.fn()
	}
	if t > s.now {
		s.now = t
	}
}

// Burn advances time without running events, as a busy CPU does. Events
// that became due run late, on the next RunUntil.
func (s *Scheduler) Burn(d time.Duration) {
	s.now += d
}

// Pending returns the number of queued events, canceled ones included
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Micros is the scheduler seen as a one tick per microsecond core.Clock
type Micros struct {
	s *Scheduler
}

// Micros returns the microsecond clock
func (s *Scheduler) Micros() Micros {
	return Micros{s}
}

func (m Micros) Now() core.Tick {
	return core.Tick(uint32(m.s.now / time.Microsecond))
}

// BusyClock is a microsecond clock where every read costs a microsecond of
// CPU time, so spin waits make progress in virtual time
type BusyClock struct {
	s *Scheduler
}

// Busy returns the busy microsecond clock
func (s *Scheduler) Busy() BusyClock {
	return BusyClock{s}
}

func (b BusyClock) Now() core.Tick {
	b.s.Burn(time.Microsecond)
	return b.s.Micros().Now()
}
