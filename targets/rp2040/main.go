//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"obstacar/core"
	"obstacar/nav"
	navconfig "obstacar/nav/config"
	"obstacar/protocol"
)

// Pico wiring
const (
	pinTrigger   core.GPIOPin = 2
	pinEcho      core.GPIOPin = 3
	pinEnable    core.GPIOPin = 6
	pinLeftA     core.GPIOPin = 7
	pinLeftB     core.GPIOPin = 8
	pinRightA    core.GPIOPin = 9
	pinRightB    core.GPIOPin = 10
	pinStart     core.GPIOPin = 14
	pinDirection core.GPIOPin = 15
)

// loopPeriod is the control loop iteration time; one sample per iteration
const loopPeriod = 60 * time.Millisecond

//go:embed car.json
var carJSON []byte

// board is everything main wires together
type board struct {
	d     *core.Dispatcher
	gpio  *rpGPIO
	ticks *core.TickSource

	run nav.Latch
	dir nav.Latch

	input *protocol.FifoBuffer
	link  *protocol.Transport
}

func main() {
	// Disable watchdog on boot to clear any previous state
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	InitUSB()
	InitDebugUART()

	b := &board{d: core.NewDispatcher()}
	m, err := b.setup()
	if err != nil {
		fail(err)
	}

	for {
		pollUSB(b.input, b.link)
		if err := m.Step(); err != nil {
			core.DebugPrintln("[NAV] step: " + err.Error())
		}
		time.Sleep(loopPeriod)
	}
}

func (b *board) setup() (*nav.Machine, error) {
	cfg, err := navconfig.LoadConfig(carJSON)
	if err != nil {
		return nil, err
	}

	b.gpio = newGPIO(b.d)
	timer := initTickTimer(nil)
	if b.ticks, err = core.NewTickSource(timer, b.d); err != nil {
		return nil, err
	}
	timer.overflow = b.ticks.Overflow
	if err = b.ticks.Configure(core.DefaultTickPeriod); err != nil {
		return nil, err
	}

	pwm, err := core.NewSoftPWM(b.gpio, b.ticks, b.d)
	if err != nil {
		return nil, err
	}
	car, err := nav.NewCar(nav.CarConfig{
		Left:         nav.Motor{A: pinLeftA, B: pinLeftB},
		Right:        nav.Motor{A: pinRightA, B: pinRightB},
		EnablePin:    pinEnable,
		PWMFrequency: cfg.PWMFrequency,
	}, b.gpio, pwm)
	if err != nil {
		return nil, err
	}

	ranger, err := newRanger(b)
	if err != nil {
		return nil, err
	}

	if err = b.button(pinStart, core.EventStartStop, b.run.Toggle); err != nil {
		return nil, err
	}
	if err = b.button(pinDirection, core.EventDirection, b.dir.Toggle); err != nil {
		return nil, err
	}

	b.input = protocol.NewFifoBuffer(256)
	b.link = protocol.NewTransport(usbPort{}, nav.CommandHandler(&b.run, &b.dir))
	sinks := nav.Sinks{nav.NewLinkSink(b.link)}
	if lcd, err := newLCDSink(); err == nil {
		sinks = append(sinks, lcd)
	} else {
		core.DebugPrintln("[LCD] " + err.Error())
	}

	m, err := nav.NewMachine(*cfg, b.ticks, ranger, car, &b.run, &b.dir, sinks)
	if err != nil {
		return nil, err
	}
	if err = b.ticks.Start(); err != nil {
		return nil, err
	}
	core.DebugPrintln("[BOOT] tick " + core.Utoa(b.ticks.Rate()) + " Hz")
	return m, nil
}

// button wires an active-low push button to a latch
func (b *board) button(pin core.GPIOPin, src core.EventSource, fn core.Handler) error {
	if err := b.gpio.ConfigureInput(pin, core.PullUp); err != nil {
		return err
	}
	if err := b.d.Register(src, fn); err != nil {
		return err
	}
	if err := b.gpio.Route(core.EdgeRoute{Pin: pin, Rising: src, Falling: src}); err != nil {
		return err
	}
	return b.gpio.SelectEdge(pin, core.EdgeFalling)
}

// fail reports a setup error forever; the car never moves
func fail(err error) {
	for {
		core.DebugPrintln("[BOOT] " + err.Error())
		core.DumpEvents()
		time.Sleep(time.Second)
	}
}
