//go:build linux && !tinygo

package main

import (
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"

	"obstacar/core"
)

// cdevGPIO implements core.GPIODriver and core.EdgeDriver over the GPIO
// character device. Every input is requested with both edges; the selected
// edge is filtered in the event handler, so SelectEdge never touches the
// kernel and is safe from handler context.
type cdevGPIO struct {
	chip string
	d    *core.Dispatcher

	mu       sync.RWMutex
	lines    map[core.GPIOPin]*gpiocdev.Line
	routes   map[core.GPIOPin]core.EdgeRoute
	selected map[core.GPIOPin]core.Edge
}

func newGPIO(chip string, d *core.Dispatcher) *cdevGPIO {
	return &cdevGPIO{
		chip:     chip,
		d:        d,
		lines:    make(map[core.GPIOPin]*gpiocdev.Line),
		routes:   make(map[core.GPIOPin]core.EdgeRoute),
		selected: make(map[core.GPIOPin]core.Edge),
	}
}

func (g *cdevGPIO) request(pin core.GPIOPin, opts ...gpiocdev.LineReqOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.lines[pin]; ok {
		l.Close()
		delete(g.lines, pin)
	}
	opts = append(opts, gpiocdev.WithConsumer("obstacar"))
	l, err := gpiocdev.RequestLine(g.chip, int(pin), opts...)
	if err != nil {
		return errors.Wrapf(err, "%s line %d", g.chip, pin)
	}
	g.lines[pin] = l
	return nil
}

func (g *cdevGPIO) line(pin core.GPIOPin) (*gpiocdev.Line, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	l, ok := g.lines[pin]
	if !ok {
		return nil, errors.Wrapf(core.ErrConfiguration, "line %d not requested", pin)
	}
	return l, nil
}

func (g *cdevGPIO) ConfigureOutput(pin core.GPIOPin) error {
	return g.request(pin, gpiocdev.AsOutput(0))
}

func (g *cdevGPIO) ConfigureInput(pin core.GPIOPin, pull core.Pull) error {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(g.event),
	}
	switch pull {
	case core.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case core.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	return g.request(pin, opts...)
}

func (g *cdevGPIO) SetPin(pin core.GPIOPin, value bool) error {
	l, err := g.line(pin)
	if err != nil {
		return err
	}
	v := 0
	if value {
		v = 1
	}
	return l.SetValue(v)
}

func (g *cdevGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	l, err := g.line(pin)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	return v == 1, err
}

// Route binds a pin's transitions to event sources
func (g *cdevGPIO) Route(r core.EdgeRoute) {
	g.mu.Lock()
	g.routes[r.Pin] = r
	g.mu.Unlock()
}

func (g *cdevGPIO) SelectEdge(pin core.GPIOPin, edge core.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.routes[pin]; !ok {
		return errors.Wrapf(core.ErrConfiguration, "line %d has no edge route", pin)
	}
	g.selected[pin] = edge
	return nil
}

// event runs on the gpiocdev watcher goroutine, which stands in for the pin
// interrupt
func (g *cdevGPIO) event(evt gpiocdev.LineEvent) {
	pin := core.GPIOPin(evt.Offset)
	edge := core.EdgeFalling
	if evt.Type == gpiocdev.LineEventRisingEdge {
		edge = core.EdgeRising
	}

	g.mu.RLock()
	sel := g.selected[pin]
	route, ok := g.routes[pin]
	g.mu.RUnlock()

	if !ok || sel != edge {
		return
	}
	glog.V(3).Infof("line %d %s", pin, edge)
	g.d.Raise(route.Source(edge))
}

// Close releases every requested line
func (g *cdevGPIO) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for pin, l := range g.lines {
		l.Close()
		delete(g.lines, pin)
	}
}
