package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// Pull selects the input bias of a pin
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output, driven low
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a digital input with the given bias
	ConfigureInput(pin GPIOPin, pull Pull) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)
}

// Edge selects which transition of an input raises its event
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "none"
	}
}

// EdgeDriver routes pin transitions to dispatcher events. Implementations call
// Dispatcher.Raise with the source bound to the pin when the selected edge
// occurs; EdgeNone disables detection.
type EdgeDriver interface {
	SelectEdge(pin GPIOPin, edge Edge) error
}

// EdgeRoute names the events raised for one pin's transitions
type EdgeRoute struct {
	Pin     GPIOPin
	Rising  EventSource
	Falling EventSource
}

// Source returns the event raised for edge e
func (r EdgeRoute) Source(e Edge) EventSource {
	if e == EdgeFalling {
		return r.Falling
	}
	return r.Rising
}
