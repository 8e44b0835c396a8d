package core

// Mock hardware shared by the core tests

type mockGPIO struct {
	outputs map[GPIOPin]bool
	inputs  map[GPIOPin]Pull
	levels  map[GPIOPin]bool
	writes  map[GPIOPin]int
	fail    error // returned by SetPin when set
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		outputs: make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]Pull),
		levels:  make(map[GPIOPin]bool),
		writes:  make(map[GPIOPin]int),
	}
}

func (g *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	g.outputs[pin] = true
	g.levels[pin] = false
	return nil
}

func (g *mockGPIO) ConfigureInput(pin GPIOPin, pull Pull) error {
	g.inputs[pin] = pull
	return nil
}

func (g *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	if g.fail != nil {
		return g.fail
	}
	g.levels[pin] = value
	g.writes[pin]++
	return nil
}

func (g *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	return g.levels[pin], nil
}

// mockClock is a manually advanced clock
type mockClock struct {
	now  Tick
	rate uint32
	step Tick // added on every Now call when non-zero
}

func (c *mockClock) Now() Tick {
	now := c.now
	c.now += c.step
	return now
}

func (c *mockClock) Rate() uint32 {
	return c.rate
}

type mockTimer struct {
	clockHz  uint32
	width    uint8
	dividers []uint32

	divider, reload uint32
	programmed      bool
	started         bool
}

func (m *mockTimer) ClockHz() uint32    { return m.clockHz }
func (m *mockTimer) Width() uint8       { return m.width }
func (m *mockTimer) Dividers() []uint32 { return m.dividers }
func (m *mockTimer) Start()             { m.started = true }
func (m *mockTimer) Stop()              { m.started = false }

func (m *mockTimer) Program(divider, reload uint32) error {
	m.divider = divider
	m.reload = reload
	m.programmed = true
	return nil
}

type mockEdges struct {
	selected map[GPIOPin]Edge
	fail     error
}

func newMockEdges() *mockEdges {
	return &mockEdges{selected: make(map[GPIOPin]Edge)}
}

func (m *mockEdges) SelectEdge(pin GPIOPin, edge Edge) error {
	if m.fail != nil {
		return m.fail
	}
	m.selected[pin] = edge
	return nil
}

// mockCounter is a capture counter whose count is set by the test
type mockCounter struct {
	width   uint32
	count   uint32
	running bool
	resets  int
}

func (m *mockCounter) Reset()        { m.count = 0; m.resets++ }
func (m *mockCounter) Start()        { m.running = true }
func (m *mockCounter) Stop()         { m.running = false }
func (m *mockCounter) Count() uint32 { return m.count }
func (m *mockCounter) Width() uint32 { return m.width }
