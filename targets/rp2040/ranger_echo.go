//go:build rp2040 && !tof

package main

import (
	"obstacar/core"
	"obstacar/nav"
)

// echoCounterWidth emulates an 8-bit capture counter on the 1 MHz timer
const echoCounterWidth = 256

// newRanger wires the HC-SR04 echo driver: edges on the echo pin and a
// capture counter emulated over the microsecond timer
func newRanger(b *board) (nav.Ranger, error) {
	if err := b.gpio.Route(core.EdgeRoute{
		Pin:     pinEcho,
		Rising:  core.EventEchoRising,
		Falling: core.EventEchoFalling,
	}); err != nil {
		return nil, err
	}
	counter, err := core.NewClockCounter(fineClock, echoCounterWidth, b.d)
	if err != nil {
		return nil, err
	}
	return core.NewEcho(core.EchoConfig{
		TriggerPin:   pinTrigger,
		EchoPin:      pinEcho,
		TriggerPulse: 10,
		CounterHz:    timerHz,
	}, b.gpio, b.gpio, counter, fineClock, b.d)
}
