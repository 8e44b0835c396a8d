// Package monitor is the host's connection to a running car: it follows the
// status reports and sends start, stop and direction commands.
package monitor

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"obstacar/host/serial"
	"obstacar/nav"
	"obstacar/protocol"
)

// ErrNotConnected is returned by commands issued before Connect
var ErrNotConnected = errors.New("not connected to car")

// StatusListener is called from the link reader for every report
type StatusListener func(s nav.Status)

// Monitor represents a connection to a car
type Monitor struct {
	transport *protocol.HostTransport
	port      io.ReadWriteCloser

	mu        sync.Mutex
	listeners []StatusListener
	reports   uint64
	connected bool
}

// New creates a new Monitor (not yet connected)
func New() *Monitor {
	return &Monitor{}
}

// Connect connects to a car via serial port
func (m *Monitor) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a car with a custom serial config
func (m *Monitor) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	m.Attach(port)
	glog.Infof("connected to %s at %d baud", cfg.Device, cfg.Baud)
	return nil
}

// Attach starts monitoring an already open link
func (m *Monitor) Attach(port io.ReadWriteCloser) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.transport.SetStatusHandler(m.handleStatus)
	m.connected = true
}

// Close closes the connection to the car
func (m *Monitor) Close() error {
	m.mu.Lock()
	t := m.transport
	m.connected = false
	m.mu.Unlock()

	if t != nil {
		return t.Close()
	}
	return nil
}

// IsConnected returns whether the car is connected
func (m *Monitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// OnStatus adds a listener for status reports
func (m *Monitor) OnStatus(fn StatusListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Monitor) handleStatus(msg protocol.StatusMessage) {
	s := nav.StatusFromMessage(msg)
	glog.V(2).Infof("status: %s %s", s.State, s)

	m.mu.Lock()
	m.reports++
	listeners := append([]StatusListener(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Start asks the car to begin a run
func (m *Monitor) Start() error {
	return m.send(protocol.CmdStart)
}

// Stop asks the car to stop
func (m *Monitor) Stop() error {
	return m.send(protocol.CmdStop)
}

// ToggleDirection presses the direction button remotely
func (m *Monitor) ToggleDirection() error {
	return m.send(protocol.CmdDirection)
}

func (m *Monitor) send(cmd protocol.Command) error {
	t, err := m.link()
	if err != nil {
		return err
	}
	glog.V(1).Infof("command: %s", cmd)
	return t.SendCommand(cmd)
}

func (m *Monitor) link() (*protocol.HostTransport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	return m.transport, nil
}

// Status returns the last reported status
func (m *Monitor) Status() (nav.Status, bool) {
	t, err := m.link()
	if err != nil {
		return nav.Status{}, false
	}
	msg, ok := t.LastStatus()
	return nav.StatusFromMessage(msg), ok
}

// WaitStatus waits for the next status report
func (m *Monitor) WaitStatus(timeout time.Duration) (nav.Status, error) {
	t, err := m.link()
	if err != nil {
		return nav.Status{}, err
	}
	msg, err := t.ReceiveStatus(timeout)
	if err != nil {
		return nav.Status{}, err
	}
	return nav.StatusFromMessage(msg), nil
}

// Reports returns the number of status reports received
func (m *Monitor) Reports() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports
}

// LinkErrors returns the number of framing errors seen on the link
func (m *Monitor) LinkErrors() uint32 {
	t, err := m.link()
	if err != nil {
		return 0
	}
	return t.Decoder().Errors()
}

// PrintStatus writes a summary of the last status
func (m *Monitor) PrintStatus(w io.Writer) {
	s, ok := m.Status()
	if !ok {
		fmt.Fprintln(w, "No status received")
		return
	}
	fmt.Fprintln(w, FormatStatus(s))
}

// FormatStatus renders a status on one line, the display line first
func FormatStatus(s nav.Status) string {
	run := "stopped"
	if s.Running {
		run = "running"
	}
	return fmt.Sprintf("%s  state=%s turn=%s attempts=%d %s",
		s, s.State, s.Turn, s.Attempts, run)
}
