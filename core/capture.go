package core

import "fmt"

// CaptureCounter is a dedicated counter used to time a pulse. It counts from
// zero up to Width()-1, then wraps and raises EventEchoOverflow.
type CaptureCounter interface {
	// Reset zeroes the count
	Reset()

	// Start begins counting from the current count
	Start()

	// Stop freezes the count
	Stop()

	// Count returns the sub-overflow count
	Count() uint32

	// Width returns the number of counts per overflow (256 for an 8-bit counter)
	Width() uint32
}

// ClockCounter emulates a CaptureCounter over a free-running fine clock, for
// boards without a spare hardware counter. Overflows that happened while it
// was running are dispatched as EventEchoOverflow before Stop returns, so
// Stop must be called from handler context or inside the critical section.
type ClockCounter struct {
	clock      Clock
	dispatcher *Dispatcher
	width      uint32

	startTick   Tick
	accumulated uint64
	dispatched  uint64
	running     bool
}

// NewClockCounter creates a counter that wraps every width clock ticks
func NewClockCounter(c Clock, width uint32, d *Dispatcher) (*ClockCounter, error) {
	if c == nil {
		return nil, fmt.Errorf("capture clock: %w", ErrNullReference)
	}
	if d == nil {
		return nil, fmt.Errorf("capture dispatcher: %w", ErrNullReference)
	}
	if width == 0 {
		return nil, fmt.Errorf("capture width 0: %w", ErrConfiguration)
	}
	return &ClockCounter{clock: c, dispatcher: d, width: width}, nil
}

// Reset zeroes the count
func (cc *ClockCounter) Reset() {
	cc.accumulated = 0
	cc.dispatched = 0
	cc.startTick = cc.clock.Now()
}

// Start begins counting
func (cc *ClockCounter) Start() {
	if cc.running {
		return
	}
	cc.startTick = cc.clock.Now()
	cc.running = true
}

// Stop freezes the count and delivers any overflows not yet dispatched
func (cc *ClockCounter) Stop() {
	if !cc.running {
		return
	}
	cc.accumulated += uint64(Elapsed(cc.startTick, cc.clock.Now()))
	cc.running = false

	overflows := cc.accumulated / uint64(cc.width)
	for cc.dispatched < overflows {
		cc.dispatched++
		cc.dispatcher.Dispatch(EventEchoOverflow)
	}
}

func (cc *ClockCounter) total() uint64 {
	if cc.running {
		return cc.accumulated + uint64(Elapsed(cc.startTick, cc.clock.Now()))
	}
	return cc.accumulated
}

// Count returns the sub-overflow count
func (cc *ClockCounter) Count() uint32 {
	return uint32(cc.total() % uint64(cc.width))
}

// Width returns the counts per overflow
func (cc *ClockCounter) Width() uint32 {
	return cc.width
}
