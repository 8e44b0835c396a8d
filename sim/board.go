package sim

import (
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"obstacar/core"
	"obstacar/nav"
)

// Pins is the board wiring
type Pins struct {
	Trigger   core.GPIOPin
	Echo      core.GPIOPin
	Start     core.GPIOPin
	Direction core.GPIOPin
	Enable    core.GPIOPin
	Left      nav.Motor
	Right     nav.Motor
}

// DefaultPins is the wiring used by the simulator
var DefaultPins = Pins{
	Trigger:   2,
	Echo:      3,
	Start:     4,
	Direction: 5,
	Enable:    9,
	Left:      nav.Motor{A: 6, B: 7},
	Right:     nav.Motor{A: 10, B: 11},
}

// Board hardware
const (
	TimerHz      = 1000000 // tick timer clock
	CounterHz    = 2000000 // 16 MHz with a /8 prescaler
	CounterWidth = 256
	TriggerPulse = 10 // fine clock ticks (us)
	PressLength  = 50 * time.Millisecond
	WorldStep    = time.Millisecond
)

// Board is the full car: virtual hardware, the core drivers, the navigation
// machine and the room it drives in
type Board struct {
	Scenario Scenario
	Pins     Pins

	Sched      *Scheduler
	Dispatcher *core.Dispatcher
	Edges      *Edges
	GPIO       *GPIO
	Timer      *Timer
	Counter    *Counter
	Ticks      *core.TickSource
	PWM        *core.SoftPWM
	Echo       *core.Echo
	Car        *nav.Car
	Machine    *nav.Machine
	Sensor     *Sensor
	World      *World
	Trace      *Trace

	RunLatch nav.Latch
	DirLatch nav.Latch
}

// Result summarises a run
type Result struct {
	Final        nav.Status
	States       []nav.State
	Travelled    float64
	Turns        int
	Collisions   int
	Pings        int
	EchoCycles   uint32
	TickOverruns uint32
}

// NewBoard builds the board for a scenario. Extra sinks receive every status
// report next to the trace.
func NewBoard(sc Scenario, sinks ...nav.StatusSink) (*Board, error) {
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "scenario")
	}

	b := &Board{Scenario: sc, Pins: DefaultPins}
	p := b.Pins
	b.Sched = NewScheduler()
	b.Dispatcher = core.NewDispatcher()
	b.Edges = NewEdges(b.Dispatcher)
	b.GPIO = NewGPIO(b.Edges)
	b.Trace = NewTrace(b.Sched)
	b.World = NewWorld(sc.Walls, sc.Speed, sc.TurnTime)

	var err error
	b.Timer = NewTimer(b.Sched, TimerHz)
	if b.Ticks, err = core.NewTickSource(b.Timer, b.Dispatcher); err != nil {
		return nil, err
	}
	b.Timer.SetOverflow(b.Ticks.Overflow)
	if err = b.Ticks.Configure(core.DefaultTickPeriod); err != nil {
		return nil, errors.Wrap(err, "tick source")
	}

	if b.PWM, err = core.NewSoftPWM(b.GPIO, b.Ticks, b.Dispatcher); err != nil {
		return nil, err
	}
	b.Car, err = nav.NewCar(nav.CarConfig{
		Left:         p.Left,
		Right:        p.Right,
		EnablePin:    p.Enable,
		PWMFrequency: sc.Nav.PWMFrequency,
	}, b.GPIO, b.PWM)
	if err != nil {
		return nil, errors.Wrap(err, "car")
	}

	b.Edges.Route(core.EdgeRoute{Pin: p.Echo, Rising: core.EventEchoRising, Falling: core.EventEchoFalling})
	b.Counter = NewCounter(b.Sched, b.Dispatcher, CounterHz, CounterWidth)
	b.Echo, err = core.NewEcho(core.EchoConfig{
		TriggerPin:   p.Trigger,
		EchoPin:      p.Echo,
		TriggerPulse: TriggerPulse,
		CounterHz:    CounterHz,
	}, b.GPIO, b.Edges, b.Counter, b.Sched.Busy(), b.Dispatcher)
	if err != nil {
		return nil, errors.Wrap(err, "echo")
	}
	b.Sensor = NewSensor(b.Sched, b.GPIO, p.Trigger, p.Echo, b.World.Ahead)

	if err = b.button(p.Start, core.EventStartStop, b.RunLatch.Toggle); err != nil {
		return nil, err
	}
	if err = b.button(p.Direction, core.EventDirection, b.DirLatch.Toggle); err != nil {
		return nil, err
	}

	all := append(nav.Sinks{b.Trace}, sinks...)
	b.Machine, err = nav.NewMachine(sc.Nav, b.Ticks, b.Echo, b.Car, &b.RunLatch, &b.DirLatch, all)
	if err != nil {
		return nil, errors.Wrap(err, "machine")
	}
	return b, nil
}

// button wires an active-low push button to a latch
func (b *Board) button(pin core.GPIOPin, src core.EventSource, fn core.Handler) error {
	if err := b.GPIO.ConfigureInput(pin, core.PullUp); err != nil {
		return err
	}
	if err := b.Dispatcher.Register(src, fn); err != nil {
		return err
	}
	b.Edges.Route(core.EdgeRoute{Pin: pin, Rising: src, Falling: src})
	return b.Edges.SelectEdge(pin, core.EdgeFalling)
}

// Press schedules a button press at t
func (b *Board) Press(pin core.GPIOPin, t time.Duration) {
	b.Sched.At(t, func() { b.GPIO.Drive(pin, false) })
	b.Sched.At(t+PressLength, func() { b.GPIO.Drive(pin, true) })
}

// wheel decodes one H-bridge half
func (b *Board) wheel(m nav.Motor) int {
	a, c := b.GPIO.Level(m.A), b.GPIO.Level(m.B)
	switch {
	case a && !c:
		return 1
	case c && !a:
		return -1
	}
	return 0
}

func (b *Board) stepWorld() {
	b.World.Update(WorldStep, b.wheel(b.Pins.Left), b.wheel(b.Pins.Right), b.GPIO.Level(b.Pins.Enable))
	b.Sched.After(WorldStep, b.stepWorld)
}

// Run plays the scenario to its end
func (b *Board) Run() (*Result, error) {
	sc := b.Scenario

	b.Press(b.Pins.Start, sc.Start)
	for i := 0; i < sc.DirPresses; i++ {
		// After the machine has opened the selection window
		b.Press(b.Pins.Direction, sc.Start+2*sc.Loop+time.Duration(i+1)*200*time.Millisecond)
	}
	if sc.Stop > 0 {
		b.Press(b.Pins.Start, sc.Stop)
	}
	if sc.Obstacle > 0 {
		b.Sched.At(sc.ObstacleAt, func() { b.World.Block(sc.Obstacle) })
	}
	b.Sched.After(WorldStep, b.stepWorld)

	if err := b.Ticks.Start(); err != nil {
		return nil, err
	}
	defer b.Ticks.Stop()

	for next := sc.Loop; next <= sc.Duration; next += sc.Loop {
		b.Sched.RunUntil(next)
		if err := b.Machine.Step(); err != nil {
			return nil, errors.Wrapf(err, "step at %v", b.Sched.Now())
		}
		b.Trace.Add(Sample{
			At:       b.Sched.Now(),
			Truth:    b.World.Ahead(),
			Measured: b.Echo.Distance(),
			Status:   b.Machine.Status(),
		})
	}

	r := b.Result()
	glog.V(1).Infof("sim: %v travelled=%.0fcm turns=%d collisions=%d pings=%d",
		sc.Duration, r.Travelled, r.Turns, r.Collisions, r.Pings)
	return r, nil
}

// Result summarises the run so far
func (b *Board) Result() *Result {
	return &Result{
		Final:        b.Machine.Status(),
		States:       b.Trace.States(),
		Travelled:    b.World.Travelled(),
		Turns:        b.World.Turns(),
		Collisions:   b.World.Collisions(),
		Pings:        b.Sensor.Pings(),
		EchoCycles:   b.Echo.Cycles(),
		TickOverruns: b.Ticks.Overruns(),
	}
}
