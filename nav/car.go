package nav

import (
	"fmt"

	"obstacar/core"
)

// Motor is one H-bridge half: driving A high and B low turns the wheel forward
type Motor struct {
	A core.GPIOPin
	B core.GPIOPin
}

// CarConfig is the car wiring
type CarConfig struct {
	Left         Motor
	Right        Motor
	EnablePin    core.GPIOPin // H-bridge enable, driven by software PWM
	PWMFrequency uint32
}

// PWM is the subset of the software PWM engine the car uses
type PWM interface {
	Register(cfg core.PWMConfig) (core.ChannelID, error)
	Reconfigure(id core.ChannelID, dutyPercent uint8, freqHz uint32) error
	Start(id core.ChannelID) error
	Stop(id core.ChannelID) error
}

// Car drives two motors through one PWM speed channel
type Car struct {
	gpio    core.GPIODriver
	pwm     PWM
	cfg     CarConfig
	channel core.ChannelID

	motion Motion
	speed  uint8
	pwmOn  bool
}

// NewCar configures the motor pins as outputs and registers the speed channel
func NewCar(cfg CarConfig, gpio core.GPIODriver, pwm PWM) (*Car, error) {
	if gpio == nil {
		return nil, fmt.Errorf("car gpio: %w", core.ErrNullReference)
	}
	if pwm == nil {
		return nil, fmt.Errorf("car pwm: %w", core.ErrNullReference)
	}
	for _, pin := range []core.GPIOPin{cfg.Left.A, cfg.Left.B, cfg.Right.A, cfg.Right.B} {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}
	id, err := pwm.Register(core.PWMConfig{Pin: cfg.EnablePin, DutyPercent: 0, FrequencyHz: cfg.PWMFrequency})
	if err != nil {
		return nil, err
	}
	return &Car{gpio: gpio, pwm: pwm, cfg: cfg, channel: id}, nil
}

// Forward drives both wheels forward
func (c *Car) Forward(speed uint8) error {
	return c.move(MotionForward, speed)
}

// Backward drives both wheels backward
func (c *Car) Backward(speed uint8) error {
	return c.move(MotionBackward, speed)
}

// Reverse spins the car toward turn: the wheel on the turn side runs backward
func (c *Car) Reverse(turn Direction, speed uint8) error {
	if turn == Left {
		return c.move(MotionReverseLeft, speed)
	}
	return c.move(MotionReverseRight, speed)
}

// Stop cuts the speed channel and brakes both motors
func (c *Car) Stop() error {
	if c.pwmOn {
		if err := c.pwm.Stop(c.channel); err != nil {
			return err
		}
		c.pwmOn = false
	}
	if err := c.setMotors(0, 0); err != nil {
		return err
	}
	c.motion = MotionStopped
	c.speed = 0
	return nil
}

// Motion returns the current motion
func (c *Car) Motion() Motion {
	return c.motion
}

// Speed returns the current duty in percent
func (c *Car) Speed() uint8 {
	return c.speed
}

func (c *Car) move(m Motion, speed uint8) error {
	if m != c.motion {
		var left, right int
		switch m {
		case MotionForward:
			left, right = 1, 1
		case MotionBackward:
			left, right = -1, -1
		case MotionReverseLeft:
			left, right = -1, 1
		case MotionReverseRight:
			left, right = 1, -1
		}
		if err := c.setMotors(left, right); err != nil {
			return err
		}
		c.motion = m
	}

	if speed != c.speed || !c.pwmOn {
		if err := c.pwm.Reconfigure(c.channel, speed, c.cfg.PWMFrequency); err != nil {
			return err
		}
		c.speed = speed
	}
	if !c.pwmOn {
		if err := c.pwm.Start(c.channel); err != nil {
			return err
		}
		c.pwmOn = true
	}
	return nil
}

// setMotors drives both motors: 1 forward, -1 backward, 0 brake
func (c *Car) setMotors(left, right int) error {
	if err := c.setMotor(c.cfg.Left, left); err != nil {
		return err
	}
	return c.setMotor(c.cfg.Right, right)
}

func (c *Car) setMotor(m Motor, dir int) error {
	if err := c.gpio.SetPin(m.A, dir > 0); err != nil {
		return fmt.Errorf("motor pin %d: %w", m.A, err)
	}
	if err := c.gpio.SetPin(m.B, dir < 0); err != nil {
		return fmt.Errorf("motor pin %d: %w", m.B, err)
	}
	return nil
}
