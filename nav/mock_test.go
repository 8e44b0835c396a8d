package nav

import (
	"time"

	"obstacar/core"
)

// testClock ticks once per millisecond
type testClock struct {
	now core.Tick
}

func (c *testClock) Now() core.Tick { return c.now }

func (c *testClock) TicksFor(d time.Duration) core.Tick {
	return core.Tick(d / time.Millisecond)
}

// scriptRanger returns scripted samples, then repeats the last one
type scriptRanger struct {
	samples  []float32
	reads    int
	triggers int
	enabled  bool
}

func (r *scriptRanger) Enable() error  { r.enabled = true; return nil }
func (r *scriptRanger) Disable() error { r.enabled = false; return nil }
func (r *scriptRanger) Trigger()       { r.triggers++ }

func (r *scriptRanger) Read() float32 {
	r.triggers++
	i := r.reads
	if i >= len(r.samples) {
		i = len(r.samples) - 1
	}
	r.reads++
	return r.samples[i]
}

// staleRanger behaves like the echo driver: Read returns the last completed
// ping and starts the next one, so a reading is one cycle old
type staleRanger struct {
	truth   float32 // what a ping would measure now
	pinged  float32
	reads   int
	enabled bool
}

func (r *staleRanger) Enable() error  { r.enabled = true; return nil }
func (r *staleRanger) Disable() error { r.enabled = false; return nil }
func (r *staleRanger) Trigger()       { r.pinged = r.truth }

func (r *staleRanger) Read() float32 {
	d := r.pinged
	r.pinged = r.truth
	r.reads++
	return d
}

type recordDriver struct {
	motion   Motion
	speed    uint8
	reverses []Direction
	stops    int
}

func (d *recordDriver) Forward(speed uint8) error {
	d.motion, d.speed = MotionForward, speed
	return nil
}

func (d *recordDriver) Backward(speed uint8) error {
	d.motion, d.speed = MotionBackward, speed
	return nil
}

func (d *recordDriver) Reverse(turn Direction, speed uint8) error {
	d.motion, d.speed = MotionReverseRight, speed
	if turn == Left {
		d.motion = MotionReverseLeft
	}
	d.reverses = append(d.reverses, turn)
	return nil
}

func (d *recordDriver) Stop() error {
	d.motion, d.speed = MotionStopped, 0
	d.stops++
	return nil
}

func (d *recordDriver) Motion() Motion { return d.motion }
func (d *recordDriver) Speed() uint8   { return d.speed }

type recordSink struct {
	reports []Status
}

func (s *recordSink) Report(st Status) {
	s.reports = append(s.reports, st)
}

type mockGPIO struct {
	outputs map[core.GPIOPin]bool
	levels  map[core.GPIOPin]bool
	fail    error // returned by SetPin when set
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{outputs: make(map[core.GPIOPin]bool), levels: make(map[core.GPIOPin]bool)}
}

func (g *mockGPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.outputs[pin] = true
	return nil
}

func (g *mockGPIO) ConfigureInput(pin core.GPIOPin, pull core.Pull) error { return nil }

func (g *mockGPIO) SetPin(pin core.GPIOPin, value bool) error {
	if g.fail != nil {
		return g.fail
	}
	g.levels[pin] = value
	return nil
}

func (g *mockGPIO) GetPin(pin core.GPIOPin) (bool, error) { return g.levels[pin], nil }

type mockPWM struct {
	duty       uint8
	freq       uint32
	active     bool
	starts     int
	reconfigs  int
	registered core.PWMConfig
}

func (p *mockPWM) Register(cfg core.PWMConfig) (core.ChannelID, error) {
	p.registered = cfg
	return 0, nil
}

func (p *mockPWM) Reconfigure(id core.ChannelID, duty uint8, freq uint32) error {
	p.duty, p.freq = duty, freq
	p.reconfigs++
	return nil
}

func (p *mockPWM) Start(id core.ChannelID) error {
	p.active = true
	p.starts++
	return nil
}

func (p *mockPWM) Stop(id core.ChannelID) error {
	p.active = false
	return nil
}
