// Echo-ranging support
// Times the echo pulse of an ultrasonic ranger (HC-SR04 style) with a
// dedicated capture counter and publishes the distance in centimetres.
package core

import (
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// SpeedOfSoundCMPerS is the speed of sound in air at about 20 C
	SpeedOfSoundCMPerS = 34300

	// DefaultMaxRangeCM is the largest distance the driver reports
	DefaultMaxRangeCM = 99
)

// EchoPhase is the measurement state
type EchoPhase uint8

const (
	EchoIdle EchoPhase = iota
	EchoWaitingRising
	EchoWaitingFalling
)

func (p EchoPhase) String() string {
	switch p {
	case EchoWaitingRising:
		return "waiting-rising"
	case EchoWaitingFalling:
		return "waiting-falling"
	default:
		return "idle"
	}
}

// EchoConfig holds the ranger wiring and conversion parameters
type EchoConfig struct {
	TriggerPin GPIOPin
	EchoPin    GPIOPin

	// TriggerPulse is the trigger width in ticks of the fine clock
	TriggerPulse Tick

	// CounterHz is the capture counter count rate
	CounterHz uint32

	// MaxRangeCM clamps published distances (DefaultMaxRangeCM if zero)
	MaxRangeCM float32

	// SpeedOfSound in cm/s (SpeedOfSoundCMPerS if zero)
	SpeedOfSound float32
}

// CMPerCount returns the distance constant: half the distance sound travels
// in one counter period.
func (c EchoConfig) CMPerCount() float32 {
	if c.CounterHz == 0 {
		return 0
	}
	sos := c.SpeedOfSound
	if sos == 0 {
		sos = SpeedOfSoundCMPerS
	}
	return float32(float64(sos) / float64(c.CounterHz) / 2)
}

// Echo is the echo-ranging driver. The measurement record (phase, overflow
// count, subtick) is only touched in handler context or inside the critical
// section; the distance is handed to the control loop as one atomic word.
type Echo struct {
	cfg     EchoConfig
	gpio    GPIODriver
	edges   EdgeDriver
	counter CaptureCounter
	fine    Clock
	k       float32

	phase     EchoPhase
	overflows uint32
	subtick   uint32
	distance  uint32 // atomic, float32 bits
	cycles    uint32 // atomic, completed measurements
}

// NewEcho creates the driver, configures its pins and registers its edge and
// overflow handlers. It starts idle; call Enable to arm it.
func NewEcho(cfg EchoConfig, gpio GPIODriver, edges EdgeDriver, counter CaptureCounter, fine Clock, d *Dispatcher) (*Echo, error) {
	switch {
	case gpio == nil:
		return nil, fmt.Errorf("echo gpio: %w", ErrNullReference)
	case edges == nil:
		return nil, fmt.Errorf("echo edge driver: %w", ErrNullReference)
	case counter == nil:
		return nil, fmt.Errorf("echo capture counter: %w", ErrNullReference)
	case fine == nil:
		return nil, fmt.Errorf("echo fine clock: %w", ErrNullReference)
	case d == nil:
		return nil, fmt.Errorf("echo dispatcher: %w", ErrNullReference)
	}
	if cfg.MaxRangeCM == 0 {
		cfg.MaxRangeCM = DefaultMaxRangeCM
	}
	if cfg.MaxRangeCM < 0 {
		return nil, fmt.Errorf("echo max range %v: %w", cfg.MaxRangeCM, ErrConfiguration)
	}
	if cfg.CounterHz == 0 {
		return nil, fmt.Errorf("echo counter rate 0 Hz: %w", ErrConfiguration)
	}
	if counter.Width() == 0 {
		return nil, fmt.Errorf("echo counter width 0: %w", ErrConfiguration)
	}

	e := &Echo{
		cfg:     cfg,
		gpio:    gpio,
		edges:   edges,
		counter: counter,
		fine:    fine,
		k:       cfg.CMPerCount(),
	}
	e.publish(cfg.MaxRangeCM)

	if err := gpio.ConfigureOutput(cfg.TriggerPin); err != nil {
		return nil, err
	}
	if err := gpio.ConfigureInput(cfg.EchoPin, PullNone); err != nil {
		return nil, err
	}
	if err := d.Register(EventEchoRising, e.onRising); err != nil {
		return nil, err
	}
	if err := d.Register(EventEchoFalling, e.onFalling); err != nil {
		return nil, err
	}
	if err := d.Register(EventEchoOverflow, e.onOverflow); err != nil {
		return nil, err
	}
	return e, nil
}

// Enable arms the driver for the next rising edge
func (e *Echo) Enable() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if e.phase != EchoIdle {
		return nil
	}
	e.phase = EchoWaitingRising
	return e.edges.SelectEdge(e.cfg.EchoPin, EdgeRising)
}

// Disable stops the counter and edge detection. An in-flight cycle is dropped.
func (e *Echo) Disable() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if e.phase == EchoWaitingFalling {
		e.counter.Stop()
	}
	e.phase = EchoIdle
	return e.edges.SelectEdge(e.cfg.EchoPin, EdgeNone)
}

// Trigger emits the trigger pulse. A cycle already in flight is not guarded
// against; the next rising edge supersedes it.
func (e *Echo) Trigger() {
	if err := e.gpio.SetPin(e.cfg.TriggerPin, true); err != nil {
		e.pinFault(e.cfg.TriggerPin, err)
		return
	}
	SpinWait(e.fine, e.cfg.TriggerPulse)
	if err := e.gpio.SetPin(e.cfg.TriggerPin, false); err != nil {
		e.pinFault(e.cfg.TriggerPin, err)
	}
}

// Read triggers a new measurement and returns the last published distance.
// The value is one cycle stale.
func (e *Echo) Read() float32 {
	e.Trigger()
	return e.Distance()
}

// Distance returns the last published distance in cm
func (e *Echo) Distance() float32 {
	return math.Float32frombits(atomic.LoadUint32(&e.distance))
}

// Cycles returns the number of completed measurements
func (e *Echo) Cycles() uint32 {
	return atomic.LoadUint32(&e.cycles)
}

// Phase returns the measurement state
func (e *Echo) Phase() EchoPhase {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return e.phase
}

// MaxRange returns the clamp value in cm
func (e *Echo) MaxRange() float32 {
	return e.cfg.MaxRangeCM
}

// DistanceFor converts a counter reading to a clamped distance
func (e *Echo) DistanceFor(overflows, subtick uint32) float32 {
	total := float64(overflows)*float64(e.counter.Width()) + float64(subtick)
	d := float32(total * float64(e.k))
	if d > e.cfg.MaxRangeCM {
		return e.cfg.MaxRangeCM
	}
	return d
}

func (e *Echo) publish(cm float32) {
	atomic.StoreUint32(&e.distance, math.Float32bits(cm))
}

func (e *Echo) onRising() {
	switch e.phase {
	case EchoIdle:
		return
	case EchoWaitingFalling:
		RecordEvent(EvtEchoAbandon, 0, uint32(e.fine.Now()), e.overflows, e.counter.Count())
		e.counter.Stop()
	}
	e.phase = EchoWaitingFalling
	e.overflows = 0
	e.counter.Reset()
	e.counter.Start()
	if err := e.edges.SelectEdge(e.cfg.EchoPin, EdgeFalling); err != nil {
		e.pinFault(e.cfg.EchoPin, err)
	}
	RecordEvent(EvtEchoStart, 0, uint32(e.fine.Now()), 0, 0)
}

func (e *Echo) onOverflow() {
	if e.phase != EchoWaitingFalling {
		return
	}
	if e.overflows < math.MaxUint32 {
		e.overflows++
	}
}

func (e *Echo) onFalling() {
	if e.phase != EchoWaitingFalling {
		return
	}
	e.counter.Stop()
	e.subtick = e.counter.Count()
	cm := e.DistanceFor(e.overflows, e.subtick)
	e.publish(cm)
	atomic.AddUint32(&e.cycles, 1)
	e.phase = EchoIdle
	RecordEvent(EvtEchoComplete, 0, uint32(e.fine.Now()), e.overflows, e.subtick)

	e.phase = EchoWaitingRising
	if err := e.edges.SelectEdge(e.cfg.EchoPin, EdgeRising); err != nil {
		// No further edge will arrive; the last distance stays published
		e.pinFault(e.cfg.EchoPin, err)
	}
}

// pinFault records a failed pin operation; Trigger and the edge handlers
// have no error return
func (e *Echo) pinFault(pin GPIOPin, err error) {
	RecordEvent(EvtPinFault, 0, uint32(e.fine.Now()), uint32(pin), 0)
	DebugPrintln("echo: pin " + Utoa(uint32(pin)) + ": " + err.Error())
}
