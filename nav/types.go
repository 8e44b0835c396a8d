package nav

import (
	"time"

	"obstacar/core"
)

// State is the navigation decision state
type State uint8

const (
	StateIdle       State = iota // Stopped, or selecting direction before a run
	StateNoObstacle              // Nothing within the far threshold
	StateFar                     // Obstacle far away
	StateMid                     // Obstacle close enough to turn away from
	StateNear                    // Obstacle too close, back off
	StateHold                    // Gave up rotating, waiting
	StateUndecided               // Running, next sample not taken yet
)

var stateNames = [...]string{"IDLE", "NO_OBSTACLE", "FAR", "MID", "NEAR", "HOLD", "UNDECIDED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Direction is the preferred turn direction
type Direction uint8

const (
	Right Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// Motion is what the wheels are doing
type Motion uint8

const (
	MotionStopped Motion = iota
	MotionForward
	MotionBackward
	MotionReverseLeft
	MotionReverseRight
)

// Letter returns the one-letter direction shown on the status line
func (m Motion) Letter() string {
	switch m {
	case MotionForward:
		return "F"
	case MotionBackward:
		return "B"
	case MotionReverseLeft:
		return "L"
	case MotionReverseRight:
		return "R"
	default:
		return "S"
	}
}

func (m Motion) String() string {
	switch m {
	case MotionForward:
		return "forward"
	case MotionBackward:
		return "backward"
	case MotionReverseLeft:
		return "reverse-left"
	case MotionReverseRight:
		return "reverse-right"
	default:
		return "stopped"
	}
}

// Status is the snapshot handed to the display collaborator
type Status struct {
	State    State
	Motion   Motion
	Speed    uint8   // PWM duty in percent
	Turn     Direction
	Distance float32 // Last sample in cm
	Attempts uint8
	Running  bool
}

// String renders the plain status line, e.g. "Speed:30% Dir:F Dist:45cm"
func (s Status) String() string {
	return "Speed:" + core.Utoa(uint32(s.Speed)) +
		"% Dir:" + s.Motion.Letter() +
		" Dist:" + core.Utoa(uint32(s.Distance)) + "cm"
}

// StatusSink receives status snapshots whenever they change
type StatusSink interface {
	Report(Status)
}

// Ranger is the distance sensor the machine samples
type Ranger interface {
	Enable() error
	Disable() error
	Trigger()
	Read() float32
}

// Driver moves the car
type Driver interface {
	Forward(speed uint8) error
	Backward(speed uint8) error
	Reverse(turn Direction, speed uint8) error
	Stop() error
	Motion() Motion
	Speed() uint8
}

// Clock is the tick source as seen by the machine
type Clock interface {
	core.Clock
	TicksFor(d time.Duration) core.Tick
}

// Bands holds the classification thresholds in cm
type Bands struct {
	Far  float32 // above: no obstacle
	Mid  float32 // above, up to Far: far band
	Near float32 // from Near up to Mid: mid band; below: near band
}

// Config holds the navigation parameters
type Config struct {
	Bands        Bands
	LowSpeed     uint8  // Duty percent for normal driving
	HighSpeed    uint8  // Duty percent after the no-obstacle boost
	PWMFrequency uint32 // Motor enable PWM frequency (Hz)
	RotationCap  uint8  // MID samples before giving up and holding
	DefaultTurn  string // "left" or "right"

	BoostMs      uint32 // No-obstacle time before switching to high speed
	RotateMs     uint32 // Duration of one reverse-and-rotate
	HoldMs       uint32 // Duration of the hold after the rotation cap
	SelectMs     uint32 // Direction selection window after start
	StartDelayMs uint32 // Delay between selection and the first sample
}
