//go:build rp2040

package main

import (
	"machine"

	"obstacar/protocol"
)

// InitUSB initializes USB serial communication
// TinyGo sets up USB CDC-ACM on RP2040; machine.Serial is the CDC port
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// usbPort is the status link's io.Writer. Writes that fail count as
// disconnects; the link sink tallies them.
type usbPort struct{}

func (usbPort) Write(data []byte) (int, error) {
	return machine.Serial.Write(data)
}

// pollUSB moves received bytes into the input FIFO and runs the decoder
func pollUSB(input *protocol.FifoBuffer, t *protocol.Transport) {
	for machine.Serial.Buffered() > 0 && input.Free() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		input.Write([]byte{b})
	}
	if input.Available() > 0 {
		t.Receive(input)
	}
}
