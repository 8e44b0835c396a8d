package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	ID        uint8  // Channel or state identifier
	Clock     uint32 // Tick at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTickOverrun  = 1 // Tick overflow arrived while handlers were running
	EvtEchoStart    = 2 // Rising edge, counter started
	EvtEchoComplete = 3 // Falling edge, distance published
	EvtEchoAbandon  = 4 // Rising edge while a cycle was in flight
	EvtPWMReconfig  = 5 // PWM timing applied at a cycle boundary
	EvtNavState     = 6 // Navigation state change
	EvtPinFault     = 7 // Pin write or edge selection failed, v1=pin
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint32 // atomic, next write position
	timingEnabled  bool   = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures a timing event in the ring buffer.
// Safe to call from handlers: it never blocks and never allocates.
func RecordEvent(eventType, id uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := (atomic.AddUint32(&timingRingHead, 1) - 1) % TimingRingSize
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		ID:        id,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
}

// EventName returns the short name printed for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtTickOverrun:
		return "TICK_OVERRUN!"
	case EvtEchoStart:
		return "ECHO_START"
	case EvtEchoComplete:
		return "ECHO_DONE"
	case EvtEchoAbandon:
		return "ECHO_ABANDON"
	case EvtPWMReconfig:
		return "PWM_RECONF"
	case EvtNavState:
		return "NAV_STATE"
	case EvtPinFault:
		return "PIN_FAULT!"
	default:
		return "UNKNOWN"
	}
}

// Events returns the recorded events from oldest to newest
func Events() []TimingEvent {
	head := atomic.LoadUint32(&timingRingHead)
	out := make([]TimingEvent, 0, TimingRingSize)
	for i := uint32(0); i < TimingRingSize; i++ {
		evt := timingRing[(head+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// DumpEvents outputs the timing ring buffer (call on shutdown/error)
// This should be called after stopping time-critical code
func DumpEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[TIMING] " + EventName(evt.EventType) +
			" id=" + Utoa(uint32(evt.ID)) +
			" clock=" + Utoa(evt.Clock) +
			" v1=" + Utoa(evt.Value1) +
			" v2=" + Utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearEvents clears the timing buffer
func ClearEvents() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	atomic.StoreUint32(&timingRingHead, 0)
}
