package monitor

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obstacar/host/serial"
	"obstacar/nav"
	"obstacar/protocol"
)

// fakeCar answers commands on the car end of a pipe
type fakeCar struct {
	port     serial.Port
	t        *protocol.Transport
	commands chan protocol.Command
}

func newFakeCar(port serial.Port) *fakeCar {
	c := &fakeCar{port: port, commands: make(chan protocol.Command, 8)}
	c.t = protocol.NewTransport(port, func(cmd protocol.Command) { c.commands <- cmd })
	go func() {
		fifo := protocol.NewFifoBuffer(128)
		buf := make([]byte, 64)
		for {
			n, err := port.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			c.t.Receive(fifo)
		}
	}()
	return c
}

func (c *fakeCar) expect(t *testing.T, want protocol.Command) {
	t.Helper()
	select {
	case got := <-c.commands:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("car never received %s", want)
	}
}

func TestMonitorNotConnected(t *testing.T) {
	m := New()
	assert.False(t, m.IsConnected())
	assert.Equal(t, ErrNotConnected, m.Start())
	_, ok := m.Status()
	assert.False(t, ok)
	_, err := m.WaitStatus(time.Millisecond)
	assert.Equal(t, ErrNotConnected, err)
	assert.NoError(t, m.Close())
}

func TestMonitorCommands(t *testing.T) {
	carEnd, hostEnd := serial.Pipe()
	defer carEnd.Close()
	car := newFakeCar(carEnd)

	m := New()
	m.Attach(hostEnd)
	defer m.Close()
	require.True(t, m.IsConnected())

	require.NoError(t, m.Start())
	car.expect(t, protocol.CmdStart)
	require.NoError(t, m.ToggleDirection())
	car.expect(t, protocol.CmdDirection)
	require.NoError(t, m.Stop())
	car.expect(t, protocol.CmdStop)
}

func TestMonitorStatus(t *testing.T) {
	carEnd, hostEnd := serial.Pipe()
	defer carEnd.Close()
	car := newFakeCar(carEnd)

	m := New()
	m.Attach(hostEnd)
	defer m.Close()

	seen := make(chan nav.Status, 1)
	m.OnStatus(func(s nav.Status) { seen <- s })

	want := nav.Status{State: nav.StateFar, Motion: nav.MotionForward, Speed: 30, Distance: 45, Running: true}
	go nav.NewLinkSink(car.t).Report(want)

	got, err := m.WaitStatus(time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, <-seen)

	last, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, want, last)
	assert.EqualValues(t, 1, m.Reports())
	assert.EqualValues(t, 0, m.LinkErrors())

	var buf bytes.Buffer
	m.PrintStatus(&buf)
	assert.Equal(t, "Speed:30% Dir:F Dist:45cm  state=FAR turn=right attempts=0 running\n", buf.String())
}
