package nav

import (
	"errors"
	"testing"

	"obstacar/core"
)

type machineRig struct {
	m      *Machine
	clock  *testClock
	ranger *scriptRanger
	car    *recordDriver
	run    *Latch
	dir    *Latch
	sink   *recordSink
}

func newMachineRig(t *testing.T, cfg Config, samples ...float32) *machineRig {
	t.Helper()
	r := &machineRig{
		clock:  &testClock{},
		ranger: &scriptRanger{samples: samples},
		car:    &recordDriver{},
		run:    &Latch{},
		dir:    &Latch{},
		sink:   &recordSink{},
	}
	m, err := NewMachine(cfg, r.clock, r.ranger, r.car, r.run, r.dir, r.sink)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	r.m = m
	return r
}

func (r *machineRig) step(t *testing.T) {
	t.Helper()
	if err := r.m.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
}

// start presses start and runs through the selection window and start delay
func (r *machineRig) start(t *testing.T) {
	t.Helper()
	r.run.Set(true)
	r.step(t)
	if !r.m.Selecting() {
		t.Fatal("start did not open the direction window")
	}
	r.clock.now += DefaultSelectMs
	r.step(t)
	r.clock.now += DefaultStartDelayMs
	r.step(t)
	if r.m.State() != StateUndecided {
		t.Fatalf("state after start delay = %v, want UNDECIDED", r.m.State())
	}
}

// sample steps the machine, advancing time, until it consumes one sample
func (r *machineRig) sample(t *testing.T) State {
	t.Helper()
	reads := r.ranger.reads
	for i := 0; i < 1000; i++ {
		r.step(t)
		if r.ranger.reads > reads {
			if r.ranger.reads != reads+1 {
				t.Fatalf("one step consumed %d samples", r.ranger.reads-reads)
			}
			return r.m.State()
		}
		r.clock.now += 100
	}
	t.Fatal("machine never sampled")
	return StateIdle
}

func TestMachineEndToEnd(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 80, 80, 50, 25, 25, 25, 25, 25, 15)
	r.start(t)

	want := []struct {
		state    State
		attempts uint8
	}{
		{StateNoObstacle, 0},
		{StateNoObstacle, 0},
		{StateFar, 0},
		{StateMid, 1},
		{StateMid, 2},
		{StateMid, 3},
		{StateMid, 4},
		{StateHold, 0},
		{StateNear, 0},
	}
	for i, w := range want {
		got := r.sample(t)
		if got != w.state || r.m.Attempts() != w.attempts {
			t.Errorf("sample %d: state %v attempts %d, want %v attempts %d",
				i, got, r.m.Attempts(), w.state, w.attempts)
		}
	}
	if r.car.motion != MotionBackward {
		t.Errorf("final motion = %v, want backward", r.car.motion)
	}
}

func TestMachineRotationCap(t *testing.T) {
	samples := make([]float32, 10)
	for i := range samples {
		samples[i] = 25
	}
	r := newMachineRig(t, DefaultConfig(), samples...)
	r.start(t)

	var holds []int
	for i := range samples {
		if r.sample(t) == StateHold {
			holds = append(holds, i)
			if r.m.Attempts() != 0 {
				t.Errorf("attempts on entering HOLD = %d, want 0", r.m.Attempts())
			}
		}
	}
	if len(holds) != 2 || holds[0] != 4 || holds[1] != 9 {
		t.Errorf("HOLD entered at samples %v, want [4 9]", holds)
	}
	if len(r.car.reverses) != 8 {
		t.Errorf("rotations = %d, want 8", len(r.car.reverses))
	}
}

func TestMachineAttemptsResetOutsideMid(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 25, 25, 50, 25)
	r.start(t)

	r.sample(t)
	r.sample(t)
	if r.m.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", r.m.Attempts())
	}
	r.sample(t)
	if r.m.Attempts() != 0 {
		t.Errorf("attempts in FAR = %d, want 0", r.m.Attempts())
	}
	r.sample(t)
	if r.m.Attempts() != 1 {
		t.Errorf("attempts after returning to MID = %d, want 1", r.m.Attempts())
	}
}

func TestMachineNoSamplingWhileRotating(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 25, 80)
	r.start(t)
	r.sample(t)

	if !r.m.Rotating() || r.car.motion != MotionReverseRight {
		t.Fatalf("MID did not start a right rotation: motion %v", r.car.motion)
	}
	r.clock.now += DefaultRotateMs - 1
	r.step(t)
	if r.ranger.reads != 1 {
		t.Error("sampled during rotation")
	}
	r.clock.now++
	r.step(t)
	if r.m.Rotating() || r.car.motion != MotionStopped {
		t.Error("rotation did not end with a stop")
	}
	if r.ranger.reads != 1 {
		t.Error("sampled on the step that ended the rotation")
	}
	if r.sample(t) != StateNoObstacle {
		t.Errorf("state = %v", r.m.State())
	}
}

// startStale runs a machine over a staleRanger through start-up
func startStale(t *testing.T, r *staleRanger) (*Machine, *testClock) {
	t.Helper()
	clock := &testClock{}
	run := &Latch{}
	m, err := NewMachine(DefaultConfig(), clock, r, &recordDriver{}, run, &Latch{}, nil)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	run.Set(true)
	for _, wait := range []core.Tick{0, DefaultSelectMs, DefaultStartDelayMs} {
		clock.now += wait
		if err := m.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	return m, clock
}

// nextSample steps in 60 ms loop periods until the machine reads the ranger
func nextSample(t *testing.T, m *Machine, clock *testClock, r *staleRanger) State {
	t.Helper()
	reads := r.reads
	for i := 0; i < 1000; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if r.reads > reads {
			return m.State()
		}
		clock.now += 60
	}
	t.Fatal("machine never sampled")
	return StateIdle
}

func TestMachineSamplesAfterRotation(t *testing.T) {
	r := &staleRanger{truth: 25}
	m, clock := startStale(t, r)

	if s := nextSample(t, m, clock, r); s != StateMid || !m.Rotating() {
		t.Fatalf("first sample: state=%v rotating=%v, want MID rotating", s, m.Rotating())
	}

	// The turn clears the obstacle
	r.truth = 80
	if s := nextSample(t, m, clock, r); s != StateNoObstacle {
		t.Errorf("after rotation: state=%v attempts=%d, want NO_OBSTACLE", s, m.Attempts())
	}
	if m.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", m.Attempts())
	}
}

func TestMachineSamplesAfterHold(t *testing.T) {
	r := &staleRanger{truth: 25}
	m, clock := startStale(t, r)

	for i := 1; i < DefaultRotationCap; i++ {
		if s := nextSample(t, m, clock, r); s != StateMid || int(m.Attempts()) != i {
			t.Fatalf("sample %d: state=%v attempts=%d", i, s, m.Attempts())
		}
	}
	if s := nextSample(t, m, clock, r); s != StateHold {
		t.Fatalf("state = %v, want HOLD", s)
	}

	r.truth = 80
	if s := nextSample(t, m, clock, r); s != StateNoObstacle {
		t.Errorf("after hold: state=%v, want NO_OBSTACLE", s)
	}
}

func TestMachineBoost(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 80)
	r.start(t)

	r.sample(t)
	if r.car.speed != DefaultLowSpeed {
		t.Fatalf("speed on entering NO_OBSTACLE = %d", r.car.speed)
	}
	r.clock.now += DefaultBoostMs - 1
	r.step(t)
	if r.car.speed != DefaultLowSpeed {
		t.Errorf("boosted early: speed %d", r.car.speed)
	}
	r.clock.now++
	r.step(t)
	if r.car.speed != DefaultHighSpeed {
		t.Errorf("speed after boost window = %d, want %d", r.car.speed, DefaultHighSpeed)
	}
	r.clock.now += 10
	r.step(t)
	if r.car.speed != DefaultHighSpeed {
		t.Errorf("boost not kept: speed %d", r.car.speed)
	}
}

func TestMachineBoostResetsOnBandChange(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 80, 50, 80, 80)
	r.start(t)

	r.sample(t)
	r.clock.now += DefaultBoostMs - 100
	r.sample(t) // FAR
	r.sample(t) // back to NO_OBSTACLE, window restarts
	r.clock.now += 200
	r.sample(t)
	if r.car.speed != DefaultLowSpeed {
		t.Errorf("boost carried across a band change: speed %d", r.car.speed)
	}
}

func TestMachineDirectionSelect(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 25)
	r.run.Set(true)
	r.step(t)
	if r.ranger.enabled {
		t.Error("ranger enabled during direction selection")
	}

	// Two presses cancel out, a third selects left
	r.dir.Toggle()
	r.dir.Toggle()
	r.dir.Toggle()

	r.clock.now += DefaultSelectMs
	r.step(t)
	if !r.ranger.enabled {
		t.Error("ranger not enabled after selection")
	}
	if r.ranger.triggers != 1 {
		t.Errorf("ranger not primed: %d triggers", r.ranger.triggers)
	}
	r.clock.now += DefaultStartDelayMs
	r.step(t)

	r.sample(t)
	if len(r.car.reverses) != 1 || r.car.reverses[0] != Left {
		t.Errorf("rotated %v, want [left]", r.car.reverses)
	}
	if r.m.Status().Turn != Left {
		t.Error("status turn not left")
	}
}

func TestMachineStopPreempts(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 25, 80)
	r.start(t)
	r.sample(t)
	if !r.m.Rotating() {
		t.Fatal("not rotating")
	}

	r.run.Set(false)
	r.step(t)
	if r.car.motion != MotionStopped || r.m.Rotating() {
		t.Error("stop did not halt the rotation")
	}
	if r.m.State() != StateIdle || r.m.Attempts() != 0 {
		t.Errorf("after stop: state %v attempts %d", r.m.State(), r.m.Attempts())
	}
	if r.m.Status().Running {
		t.Error("status still running")
	}

	// Restart goes back through direction selection
	r.run.Set(true)
	r.step(t)
	if !r.m.Selecting() {
		t.Error("restart skipped direction selection")
	}
	reads := r.ranger.reads
	r.clock.now += DefaultSelectMs - 1
	r.step(t)
	if r.ranger.reads != reads {
		t.Error("sampled inside the selection window")
	}
}

func TestMachineStoppedIsQuiet(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 80)
	for i := 0; i < 5; i++ {
		r.step(t)
	}
	if r.ranger.reads != 0 || r.car.stops != 0 {
		t.Error("stopped machine touched its collaborators")
	}
	if len(r.sink.reports) != 1 {
		t.Errorf("reports = %d, want 1 (unchanged status is not re-sent)", len(r.sink.reports))
	}
}

func TestMachineReportsStatus(t *testing.T) {
	r := newMachineRig(t, DefaultConfig(), 45)
	r.start(t)
	r.sample(t)

	last := r.sink.reports[len(r.sink.reports)-1]
	if last.State != StateFar || last.Motion != MotionForward || last.Speed != DefaultLowSpeed {
		t.Errorf("last report = %+v", last)
	}
	if got := last.String(); got != "Speed:30% Dir:F Dist:45cm" {
		t.Errorf("status line = %q", got)
	}
}

func TestNewMachineErrors(t *testing.T) {
	clk := &testClock{}
	if _, err := NewMachine(DefaultConfig(), clk, nil, &recordDriver{}, &Latch{}, &Latch{}, nil); !errors.Is(err, core.ErrNullReference) {
		t.Errorf("nil ranger error = %v", err)
	}
	cfg := DefaultConfig()
	cfg.RotationCap = 0
	if _, err := NewMachine(cfg, clk, &scriptRanger{}, &recordDriver{}, &Latch{}, &Latch{}, nil); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("zero cap error = %v", err)
	}
}
