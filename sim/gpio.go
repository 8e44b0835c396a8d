package sim

import (
	"fmt"

	"obstacar/core"
)

// GPIO is a bank of virtual pins. Outputs are driven by the firmware through
// core.GPIODriver; inputs are driven by the simulated world through Drive.
type GPIO struct {
	levels   map[core.GPIOPin]bool
	outputs  map[core.GPIOPin]bool
	watchers map[core.GPIOPin][]func(level bool)
	edges    *Edges
}

// NewGPIO creates an empty pin bank. Input transitions are reported to edges
// when it is not nil.
func NewGPIO(edges *Edges) *GPIO {
	return &GPIO{
		levels:   make(map[core.GPIOPin]bool),
		outputs:  make(map[core.GPIOPin]bool),
		watchers: make(map[core.GPIOPin][]func(bool)),
		edges:    edges,
	}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	g.set(pin, false)
	return nil
}

func (g *GPIO) ConfigureInput(pin core.GPIOPin, pull core.Pull) error {
	g.outputs[pin] = false
	g.levels[pin] = pull == core.PullUp
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if !g.outputs[pin] {
		return fmt.Errorf("sim pin %d is not an output: %w", pin, core.ErrConfiguration)
	}
	g.set(pin, value)
	return nil
}

func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	return g.levels[pin], nil
}

// Level returns a pin level without the error
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.levels[pin]
}

// Watch calls fn on every change of an output pin
func (g *GPIO) Watch(pin core.GPIOPin, fn func(level bool)) {
	g.watchers[pin] = append(g.watchers[pin], fn)
}

// Drive sets an input pin from outside, raising its edge event if selected
func (g *GPIO) Drive(pin core.GPIOPin, level bool) {
	old := g.levels[pin]
	g.levels[pin] = level
	if old != level && g.edges != nil {
		g.edges.transition(pin, level)
	}
}

func (g *GPIO) set(pin core.GPIOPin, level bool) {
	old, known := g.levels[pin]
	g.levels[pin] = level
	if known && old == level {
		return
	}
	for _, fn := range g.watchers[pin] {
		fn(level)
	}
}

// Edges is the pin-change interrupt controller
type Edges struct {
	d        *core.Dispatcher
	routes   map[core.GPIOPin]core.EdgeRoute
	selected map[core.GPIOPin]core.Edge
	raised   uint32
}

// NewEdges creates an edge controller raising events on d
func NewEdges(d *core.Dispatcher) *Edges {
	return &Edges{
		d:        d,
		routes:   make(map[core.GPIOPin]core.EdgeRoute),
		selected: make(map[core.GPIOPin]core.Edge),
	}
}

// Route binds a pin's transitions to event sources
func (e *Edges) Route(r core.EdgeRoute) {
	e.routes[r.Pin] = r
}

func (e *Edges) SelectEdge(pin core.GPIOPin, edge core.Edge) error {
	if _, ok := e.routes[pin]; !ok {
		return fmt.Errorf("sim pin %d has no edge route: %w", pin, core.ErrConfiguration)
	}
	e.selected[pin] = edge
	return nil
}

// Selected returns the edge currently armed on pin
func (e *Edges) Selected(pin core.GPIOPin) core.Edge {
	return e.selected[pin]
}

// Raised returns the number of edge events raised
func (e *Edges) Raised() uint32 {
	return e.raised
}

func (e *Edges) transition(pin core.GPIOPin, level bool) {
	sel := e.selected[pin]
	if (level && sel == core.EdgeRising) || (!level && sel == core.EdgeFalling) {
		e.raised++
		e.d.Raise(e.routes[pin].Source(sel))
	}
}
