package core

import "fmt"

// EventSource identifies a hardware event that can carry a handler
type EventSource uint8

const (
	EventTick         EventSource = iota // Tick source overflow
	EventEchoRising                      // Echo line rising edge
	EventEchoFalling                     // Echo line falling edge
	EventEchoOverflow                    // Echo capture counter overflow
	EventStartStop                       // Start/stop button edge
	EventDirection                       // Direction button edge

	eventCount
)

// Handler is the code run for one event. Handlers run to completion and must
// do bounded work: they execute with interrupts disabled.
type Handler func()

// Dispatcher owns the event source to handler mapping
type Dispatcher struct {
	handlers [eventCount][]Handler
	counts   [eventCount]uint32
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a handler for an event source. Handlers for the same source run
// in registration order. Registration happens at setup, before the sources are
// enabled, but is still guarded so a late registration cannot race a dispatch.
func (d *Dispatcher) Register(src EventSource, fn Handler) error {
	if fn == nil {
		return fmt.Errorf("handler for event %d: %w", src, ErrNullReference)
	}
	if src >= eventCount {
		return fmt.Errorf("event source %d: %w", src, ErrConfiguration)
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	d.handlers[src] = append(d.handlers[src], fn)
	return nil
}

// Raise is the hardware entry point: interrupt service routines and the
// goroutines standing in for them call Raise. The handlers run inside the
// critical section so the control loop never observes a half-applied update.
func (d *Dispatcher) Raise(src EventSource) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	d.Dispatch(src)
}

// Dispatch runs the handlers for src without entering the critical section.
// Only call it from code that is already in handler context.
func (d *Dispatcher) Dispatch(src EventSource) {
	if src >= eventCount {
		return
	}
	d.counts[src]++
	for _, fn := range d.handlers[src] {
		fn()
	}
}

// Count returns how many times src has been dispatched (wraps)
func (d *Dispatcher) Count(src EventSource) uint32 {
	if src >= eventCount {
		return 0
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return d.counts[src]
}
