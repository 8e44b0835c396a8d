// Package serial opens the host end of the car's status link
package serial

import (
	"io"
	"net"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (simulator and tests)
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud matches the UART fallback on the car boards
const DefaultBaud = 115200

// DefaultConfig returns the configuration used by the car firmware
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

type pipePort struct {
	net.Conn
}

func (p pipePort) Flush() error {
	return nil
}

// Pipe returns two connected in-memory ports, one for each end of the link
func Pipe() (Port, Port) {
	a, b := net.Pipe()
	return pipePort{a}, pipePort{b}
}
