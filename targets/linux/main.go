//go:build linux && !tinygo

// Command obstacar runs the car on a Linux single-board computer: motor,
// sensor and button lines on the GPIO character device, the tick source on a
// goroutine ticker and the status link on an optional serial port.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"obstacar/core"
	"obstacar/host/serial"
	"obstacar/nav"
	navconfig "obstacar/nav/config"
	"obstacar/protocol"
)

var (
	chip       = flag.String("chip", "gpiochip0", "GPIO chip")
	configFile = flag.String("config", "", "Navigation config (JSON)")
	loop       = flag.Duration("loop", 60*time.Millisecond, "Control loop period")
	linkDevice = flag.String("link", "", "Serial device for the status link")
	debug      = flag.Bool("debug", false, "Route core debug output to the log")
)

// BCM numbering
const (
	pinTrigger   core.GPIOPin = 23
	pinEcho      core.GPIOPin = 24
	pinEnable    core.GPIOPin = 18
	pinLeftA     core.GPIOPin = 5
	pinLeftB     core.GPIOPin = 6
	pinRightA    core.GPIOPin = 13
	pinRightB    core.GPIOPin = 19
	pinStart     core.GPIOPin = 17
	pinDirection core.GPIOPin = 27

	echoCounterWidth = 256
	counterHz        = 1000000
)

type board struct {
	d     *core.Dispatcher
	gpio  *cdevGPIO
	timer *tickerTimer
	ticks *core.TickSource
	car   *nav.Car
	echo  *core.Echo

	run nav.Latch
	dir nav.Latch
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if *debug {
		core.SetDebugWriter(func(s string) { glog.Info(s) })
		core.SetDebugEnabled(true)
	}

	cfg := nav.DefaultConfig()
	if *configFile != "" {
		c, err := navconfig.LoadFile(*configFile)
		if err != nil {
			glog.Exitf("config: %v", err)
		}
		cfg = *c
	}

	b := &board{d: core.NewDispatcher()}
	b.gpio = newGPIO(*chip, b.d)
	defer b.gpio.Close()
	if err := b.setup(cfg); err != nil {
		glog.Exitf("setup: %v", err)
	}

	sinks := nav.Sinks{logSink{}}
	if *linkDevice != "" {
		port, err := serial.Open(serial.DefaultConfig(*linkDevice))
		if err != nil {
			glog.Exitf("link: %v", err)
		}
		defer port.Close()
		link := protocol.NewTransport(port, nav.CommandHandler(&b.run, &b.dir))
		go readLink(port, link)
		sinks = append(sinks, nav.NewLinkSink(link))
	}

	m, err := nav.NewMachine(cfg, b.ticks, b.echo, b.car, &b.run, &b.dir, sinks)
	if err != nil {
		glog.Exitf("machine: %v", err)
	}
	if err := b.ticks.Start(); err != nil {
		glog.Exitf("tick source: %v", err)
	}
	defer b.ticks.Stop()
	glog.Infof("running: tick %v, loop %v, chip %s", b.ticks.Period(), *loop, *chip)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	t := time.NewTicker(*loop)
	defer t.Stop()
	for {
		select {
		case <-sig:
			b.run.Set(false)
			if err := m.Step(); err != nil {
				glog.Errorf("stop: %v", err)
			}
			glog.Infof("stopped, %d tick overruns, %d echo cycles", b.ticks.Overruns(), b.echo.Cycles())
			return
		case <-t.C:
			if err := m.Step(); err != nil {
				glog.Warningf("step: %v", err)
			}
		}
	}
}

func (b *board) setup(cfg nav.Config) error {
	var err error
	b.timer = &tickerTimer{}
	if b.ticks, err = core.NewTickSource(b.timer, b.d); err != nil {
		return err
	}
	b.timer.overflow = b.ticks.Overflow
	if err = b.ticks.Configure(core.DefaultTickPeriod); err != nil {
		return err
	}

	pwm, err := core.NewSoftPWM(b.gpio, b.ticks, b.d)
	if err != nil {
		return err
	}
	b.car, err = nav.NewCar(nav.CarConfig{
		Left:         nav.Motor{A: pinLeftA, B: pinLeftB},
		Right:        nav.Motor{A: pinRightA, B: pinRightB},
		EnablePin:    pinEnable,
		PWMFrequency: cfg.PWMFrequency,
	}, b.gpio, pwm)
	if err != nil {
		return err
	}

	b.gpio.Route(core.EdgeRoute{Pin: pinEcho, Rising: core.EventEchoRising, Falling: core.EventEchoFalling})
	counter, err := core.NewClockCounter(microClock, echoCounterWidth, b.d)
	if err != nil {
		return err
	}
	b.echo, err = core.NewEcho(core.EchoConfig{
		TriggerPin:   pinTrigger,
		EchoPin:      pinEcho,
		TriggerPulse: 10,
		CounterHz:    counterHz,
	}, b.gpio, b.gpio, counter, microClock, b.d)
	if err != nil {
		return err
	}

	if err = b.button(pinStart, core.EventStartStop, b.run.Toggle); err != nil {
		return err
	}
	return b.button(pinDirection, core.EventDirection, b.dir.Toggle)
}

// button wires an active-low push button to a latch
func (b *board) button(pin core.GPIOPin, src core.EventSource, fn core.Handler) error {
	if err := b.gpio.ConfigureInput(pin, core.PullUp); err != nil {
		return err
	}
	if err := b.d.Register(src, fn); err != nil {
		return err
	}
	b.gpio.Route(core.EdgeRoute{Pin: pin, Rising: src, Falling: src})
	return b.gpio.SelectEdge(pin, core.EdgeFalling)
}

// readLink feeds received bytes to the link decoder until the port closes
func readLink(r io.Reader, link *protocol.Transport) {
	input := protocol.NewFifoBuffer(512)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			input.Write(buf[:n])
			link.Receive(input)
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			glog.V(1).Infof("link read: %v", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}
