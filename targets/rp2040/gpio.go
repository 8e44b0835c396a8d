//go:build rp2040

package main

import (
	"machine"

	"obstacar/core"
)

const numPins = 30

// rpGPIO implements core.GPIODriver and core.EdgeDriver over machine.Pin.
// Edge state lives in fixed arrays so the pin interrupt never allocates.
type rpGPIO struct {
	d          *core.Dispatcher
	configured [numPins]bool
	routes     [numPins]core.EdgeRoute
	routed     [numPins]bool
	selected   [numPins]core.Edge
}

var gpio rpGPIO

func newGPIO(d *core.Dispatcher) *rpGPIO {
	gpio.d = d
	return &gpio
}

func (g *rpGPIO) pin(pin core.GPIOPin) (machine.Pin, error) {
	if pin >= numPins {
		return machine.NoPin, core.ErrConfiguration
	}
	return machine.Pin(pin), nil
}

// ConfigureOutput configures a pin as a digital output, driven low
func (g *rpGPIO) ConfigureOutput(pin core.GPIOPin) error {
	p, err := g.pin(pin)
	if err != nil {
		return err
	}
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	g.configured[pin] = true
	return nil
}

func (g *rpGPIO) ConfigureInput(pin core.GPIOPin, pull core.Pull) error {
	p, err := g.pin(pin)
	if err != nil {
		return err
	}
	mode := machine.PinInput
	switch pull {
	case core.PullUp:
		mode = machine.PinInputPullup
	case core.PullDown:
		mode = machine.PinInputPulldown
	}
	p.Configure(machine.PinConfig{Mode: mode})
	g.configured[pin] = true
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (g *rpGPIO) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= numPins || !g.configured[pin] {
		return core.ErrConfiguration
	}
	machine.Pin(pin).Set(value)
	return nil
}

// GetPin reads the current pin state
func (g *rpGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	if pin >= numPins || !g.configured[pin] {
		return false, core.ErrConfiguration
	}
	return machine.Pin(pin).Get(), nil
}

// Route binds a pin's transitions to event sources
func (g *rpGPIO) Route(r core.EdgeRoute) error {
	if r.Pin >= numPins {
		return core.ErrConfiguration
	}
	g.routes[r.Pin] = r
	g.routed[r.Pin] = true
	return nil
}

// SelectEdge arms the pin interrupt for one transition. It is called from
// the echo handlers, so it only touches registers.
func (g *rpGPIO) SelectEdge(pin core.GPIOPin, edge core.Edge) error {
	if pin >= numPins || !g.routed[pin] {
		return core.ErrConfiguration
	}
	p := machine.Pin(pin)
	g.selected[pin] = edge

	p.SetInterrupt(0, nil)
	switch edge {
	case core.EdgeRising:
		return p.SetInterrupt(machine.PinRising, pinChanged)
	case core.EdgeFalling:
		return p.SetInterrupt(machine.PinFalling, pinChanged)
	}
	return nil
}

func pinChanged(p machine.Pin) {
	if p >= numPins {
		return
	}
	edge := gpio.selected[p]
	if edge == core.EdgeNone {
		return
	}
	gpio.d.Raise(gpio.routes[p].Source(edge))
}
