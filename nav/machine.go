// Navigation decision state machine
// One call to Step is one iteration of the control loop. Every wait is a
// polled core.Timeout, so Step never blocks.
package nav

import (
	"fmt"

	"obstacar/core"
)

// phase is where a run is between a start press and autonomous driving
type phase uint8

const (
	phaseStopped phase = iota
	phaseSelect        // Direction button window, ranger off
	phaseDelay         // Ranger on, waiting before the first sample
	phaseRun
)

// Machine is the navigation decision state machine
type Machine struct {
	cfg    Config
	clock  Clock
	ranger Ranger
	car    Driver
	run    *Latch
	dir    *Latch
	sink   StatusSink

	// Window lengths in ticks
	boostTicks  core.Tick
	rotateTicks core.Tick
	holdTicks   core.Tick
	selectTicks core.Tick
	delayTicks  core.Tick

	// One timeout per consumer
	boost  *core.Timeout
	rotate *core.Timeout
	hold   *core.Timeout
	choose *core.Timeout
	delay  *core.Timeout

	phase      phase
	state      State
	lastSample State
	attempts   uint8
	turn       Direction
	boosted    bool
	rotating   bool
	distance   float32

	reported    Status
	hasReported bool
}

// NewMachine wires the machine to its collaborators. sink may be nil.
func NewMachine(cfg Config, clock Clock, ranger Ranger, car Driver, run, dir *Latch, sink StatusSink) (*Machine, error) {
	switch {
	case clock == nil:
		return nil, fmt.Errorf("nav clock: %w", core.ErrNullReference)
	case ranger == nil:
		return nil, fmt.Errorf("nav ranger: %w", core.ErrNullReference)
	case car == nil:
		return nil, fmt.Errorf("nav driver: %w", core.ErrNullReference)
	case run == nil:
		return nil, fmt.Errorf("nav run latch: %w", core.ErrNullReference)
	case dir == nil:
		return nil, fmt.Errorf("nav direction latch: %w", core.ErrNullReference)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	turn, _ := ParseDirection(cfg.DefaultTurn)

	return &Machine{
		cfg:         cfg,
		clock:       clock,
		ranger:      ranger,
		car:         car,
		run:         run,
		dir:         dir,
		sink:        sink,
		boostTicks:  clock.TicksFor(ms(cfg.BoostMs)),
		rotateTicks: clock.TicksFor(ms(cfg.RotateMs)),
		holdTicks:   clock.TicksFor(ms(cfg.HoldMs)),
		selectTicks: clock.TicksFor(ms(cfg.SelectMs)),
		delayTicks:  clock.TicksFor(ms(cfg.StartDelayMs)),
		boost:       core.NewTimeout(clock),
		rotate:      core.NewTimeout(clock),
		hold:        core.NewTimeout(clock),
		choose:      core.NewTimeout(clock),
		delay:       core.NewTimeout(clock),
		turn:        turn,
		lastSample:  StateIdle,
	}, nil
}

// Step runs one control-loop iteration and consumes at most one sample
func (m *Machine) Step() error {
	err := m.step()
	m.report()
	return err
}

func (m *Machine) step() error {
	if !m.run.Get() {
		if m.phase != phaseStopped {
			return m.halt()
		}
		return nil
	}

	switch m.phase {
	case phaseStopped:
		return m.beginSelect()

	case phaseSelect:
		if m.choose.Poll(m.selectTicks) != core.Expired {
			return nil
		}
		m.turn = Right
		if m.dir.Get() {
			m.turn = Left
		}
		if err := m.ranger.Enable(); err != nil {
			return err
		}
		// Prime the ranger so the first sample is fresh
		m.ranger.Trigger()
		m.phase = phaseDelay
		m.delay.Poll(m.delayTicks)
		return nil

	case phaseDelay:
		if m.delay.Poll(m.delayTicks) != core.Expired {
			return nil
		}
		m.phase = phaseRun
		m.setState(StateUndecided)
		return nil
	}

	return m.drive()
}

// beginSelect starts a run: ranger off, default direction, selection window open
func (m *Machine) beginSelect() error {
	if err := m.ranger.Disable(); err != nil {
		return err
	}
	def, _ := ParseDirection(m.cfg.DefaultTurn)
	m.turn = def
	m.dir.Set(def == Left)
	m.phase = phaseSelect
	m.choose.Reset()
	m.choose.Poll(m.selectTicks)
	return nil
}

// halt stops everything and drops every window in progress
func (m *Machine) halt() error {
	err := m.car.Stop()
	m.boost.Reset()
	m.rotate.Reset()
	m.hold.Reset()
	m.choose.Reset()
	m.delay.Reset()
	m.rotating = false
	m.boosted = false
	m.attempts = 0
	m.lastSample = StateIdle
	m.phase = phaseStopped
	m.setState(StateIdle)
	if derr := m.ranger.Disable(); err == nil {
		err = derr
	}
	return err
}

// drive is the running state machine
func (m *Machine) drive() error {
	if m.rotating {
		if m.rotate.Poll(m.rotateTicks) != core.Expired {
			return nil
		}
		m.rotating = false
		m.setState(StateUndecided)
		err := m.car.Stop()
		// Nothing pinged during the turn; measure where the car ended up
		m.ranger.Trigger()
		return err
	}

	if m.state == StateHold {
		if m.hold.Poll(m.holdTicks) != core.Expired {
			return nil
		}
		m.attempts = 0
		m.setState(StateUndecided)
		m.ranger.Trigger()
		return nil
	}

	m.distance = m.ranger.Read()
	band := m.cfg.Bands.Classify(m.distance)
	prev := m.lastSample
	m.lastSample = band

	switch band {
	case StateNoObstacle:
		m.attempts = 0
		if m.state != StateNoObstacle {
			m.setState(StateNoObstacle)
			m.boosted = false
			m.boost.Reset()
			m.boost.Poll(m.boostTicks)
			return m.car.Forward(m.cfg.LowSpeed)
		}
		if !m.boosted && m.boost.Poll(m.boostTicks) == core.Expired {
			m.boosted = true
		}
		if m.boosted {
			return m.car.Forward(m.cfg.HighSpeed)
		}
		return m.car.Forward(m.cfg.LowSpeed)

	case StateFar:
		m.attempts = 0
		m.setState(StateFar)
		return m.car.Forward(m.cfg.LowSpeed)

	case StateMid:
		if prev != StateMid {
			m.attempts = 1
		} else if m.attempts < 255 {
			m.attempts++
		}
		if m.attempts >= m.cfg.RotationCap {
			m.attempts = 0
			m.setState(StateHold)
			m.hold.Reset()
			m.hold.Poll(m.holdTicks)
			return m.car.Stop()
		}
		m.setState(StateMid)
		if err := m.car.Stop(); err != nil {
			return err
		}
		m.rotating = true
		m.rotate.Reset()
		m.rotate.Poll(m.rotateTicks)
		return m.car.Reverse(m.turn, m.cfg.LowSpeed)

	default:
		m.attempts = 0
		m.setState(StateNear)
		return m.car.Backward(m.cfg.LowSpeed)
	}
}

func (m *Machine) setState(s State) {
	if s == m.state {
		return
	}
	m.state = s
	core.RecordEvent(core.EvtNavState, uint8(s), uint32(m.clock.Now()), uint32(m.attempts), 0)
	core.DebugPrintln("[NAV] " + s.String())
}

// Status returns the current snapshot
func (m *Machine) Status() Status {
	return Status{
		State:    m.state,
		Motion:   m.car.Motion(),
		Speed:    m.car.Speed(),
		Turn:     m.turn,
		Distance: m.distance,
		Attempts: m.attempts,
		Running:  m.phase != phaseStopped,
	}
}

// State returns the navigation state
func (m *Machine) State() State {
	return m.state
}

// Attempts returns the rotation attempts counted in the current MID run
func (m *Machine) Attempts() uint8 {
	return m.attempts
}

// Rotating reports whether a reverse-and-rotate is in progress
func (m *Machine) Rotating() bool {
	return m.rotating
}

// Selecting reports whether the direction window is open
func (m *Machine) Selecting() bool {
	return m.phase == phaseSelect
}

func (m *Machine) report() {
	if m.sink == nil {
		return
	}
	s := m.Status()
	if m.hasReported && s == m.reported {
		return
	}
	m.reported = s
	m.hasReported = true
	m.sink.Report(s)
}
