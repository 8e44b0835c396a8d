package sim

import (
	"time"

	"obstacar/core"
)

// HC-SR04 timing
const (
	SensorMinTrigger  = 10 * time.Microsecond
	SensorLatency     = 250 * time.Microsecond // trigger to echo rising edge
	SensorMaxRangeCM  = 400
	SensorNoEchoWidth = 38 * time.Millisecond
)

// Sensor models an HC-SR04: a trigger pulse of at least 10us starts one echo
// pulse whose width is the round trip time to the target. Triggers while a
// pulse is in flight are ignored.
type Sensor struct {
	s      *Scheduler
	gpio   *GPIO
	echo   core.GPIOPin
	target func() float64

	SpeedOfSound float64 // cm/s

	busy     bool
	highAt   time.Duration
	pings    int
	ignored  int
	lastEcho time.Duration
}

// NewSensor attaches a sensor to the trigger and echo pins. target returns
// the true distance in cm when a ping is sent.
func NewSensor(s *Scheduler, gpio *GPIO, trigger, echo core.GPIOPin, target func() float64) *Sensor {
	sn := &Sensor{s: s, gpio: gpio, echo: echo, target: target, SpeedOfSound: core.SpeedOfSoundCMPerS}
	gpio.Watch(trigger, sn.onTrigger)
	return sn
}

// EchoWidth returns the echo pulse width for a target at cm
func (sn *Sensor) EchoWidth(cm float64) time.Duration {
	if cm < 0 {
		cm = 0
	}
	if cm > SensorMaxRangeCM {
		return SensorNoEchoWidth
	}
	return time.Duration(2 * cm / sn.SpeedOfSound * float64(time.Second))
}

// Pings returns the number of echo pulses produced
func (sn *Sensor) Pings() int {
	return sn.pings
}

// Ignored returns the number of triggers dropped (too short or while busy)
func (sn *Sensor) Ignored() int {
	return sn.ignored
}

// LastEcho returns the width of the last echo pulse
func (sn *Sensor) LastEcho() time.Duration {
	return sn.lastEcho
}

func (sn *Sensor) onTrigger(level bool) {
	if level {
		sn.highAt = sn.s.Now()
		return
	}
	if sn.busy || sn.s.Now()-sn.highAt < SensorMinTrigger {
		sn.ignored++
		return
	}
	sn.busy = true
	sn.pings++
	width := sn.EchoWidth(sn.target())
	sn.lastEcho = width
	sn.s.After(SensorLatency, func() {
		sn.gpio.Drive(sn.echo, true)
		sn.s.After(width, func() {
			sn.gpio.Drive(sn.echo, false)
			sn.busy = false
		})
	})
}
