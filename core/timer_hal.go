package core

// TimerDriver is the abstract hardware counter behind the tick source.
// Platform-specific implementations program the real peripheral and call
// TickSource.Overflow from the overflow interrupt.
type TimerDriver interface {
	// ClockHz returns the counter input clock frequency before division
	ClockHz() uint32

	// Width returns the counter width in bits (8 for an AVR timer0, 32 for
	// an alarm-compare timer)
	Width() uint8

	// Dividers returns the available input clock dividers in ascending order
	Dividers() []uint32

	// Program loads a divider and a reload value: the counter overflows
	// every reload counts of the divided clock
	Program(divider, reload uint32) error

	// Start enables counting and the overflow interrupt
	Start()

	// Stop disables counting and the overflow interrupt
	Stop()
}
