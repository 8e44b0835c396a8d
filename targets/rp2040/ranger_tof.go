//go:build rp2040 && tof

package main

import (
	"machine"

	"tinygo.org/x/drivers/vl53l1x"

	"obstacar/core"
	"obstacar/nav"
)

const (
	tofPeriodMs     = 50
	tofBudgetUs     = 50000
	tofMaxRangeCM   = 400
	tofI2CFrequency = 400000
)

// tofRanger replaces the HC-SR04 with a VL53L1X time-of-flight sensor on I2C0
// (SDA=GP4, SCL=GP5). The sensor ranges continuously; Read returns the
// newest sample and keeps the previous one when none is ready.
type tofRanger struct {
	dev  vl53l1x.Device
	last float32
}

func newRanger(b *board) (nav.Ranger, error) {
	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{
		Frequency: tofI2CFrequency,
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
	}); err != nil {
		return nil, err
	}
	r := &tofRanger{dev: vl53l1x.New(bus), last: tofMaxRangeCM}
	if !r.dev.Configure(true) {
		return nil, core.ErrConfiguration
	}
	r.dev.SetMeasurementTimingBudget(tofBudgetUs)
	return r, nil
}

func (r *tofRanger) Enable() error {
	r.dev.StartContinuous(tofPeriodMs)
	return nil
}

func (r *tofRanger) Disable() error {
	r.dev.StopContinuous()
	return nil
}

func (r *tofRanger) Trigger() {}

func (r *tofRanger) Read() float32 {
	if mm := r.dev.Read(false); mm != 0 {
		cm := float32(mm) / 10
		if cm > tofMaxRangeCM {
			cm = tofMaxRangeCM
		}
		r.last = cm
	}
	return r.last
}
