package nav

import (
	"fmt"
	"time"

	"obstacar/core"
)

// Defaults used by the firmware when no configuration is supplied
const (
	DefaultFarCM        = 70
	DefaultMidCM        = 30
	DefaultNearCM       = 20
	DefaultLowSpeed     = 30
	DefaultHighSpeed    = 50
	DefaultPWMFrequency = 20
	DefaultRotationCap  = 5
	DefaultBoostMs      = 5000
	DefaultRotateMs     = 2000
	DefaultHoldMs       = 3000
	DefaultSelectMs     = 5000
	DefaultStartDelayMs = 2000
)

// DefaultBands returns the stock thresholds
func DefaultBands() Bands {
	return Bands{Far: DefaultFarCM, Mid: DefaultMidCM, Near: DefaultNearCM}
}

// DefaultConfig returns the stock car configuration
func DefaultConfig() Config {
	return Config{
		Bands:        DefaultBands(),
		LowSpeed:     DefaultLowSpeed,
		HighSpeed:    DefaultHighSpeed,
		PWMFrequency: DefaultPWMFrequency,
		RotationCap:  DefaultRotationCap,
		DefaultTurn:  "right",
		BoostMs:      DefaultBoostMs,
		RotateMs:     DefaultRotateMs,
		HoldMs:       DefaultHoldMs,
		SelectMs:     DefaultSelectMs,
		StartDelayMs: DefaultStartDelayMs,
	}
}

// Validate rejects configurations the machine cannot run
func (c Config) Validate() error {
	b := c.Bands
	if b.Near <= 0 || b.Near > b.Mid || b.Mid > b.Far {
		return fmt.Errorf("bands near=%v mid=%v far=%v: %w", b.Near, b.Mid, b.Far, core.ErrConfiguration)
	}
	if c.LowSpeed > 100 || c.HighSpeed > 100 {
		return fmt.Errorf("speeds %d%%/%d%%: %w", c.LowSpeed, c.HighSpeed, core.ErrConfiguration)
	}
	if c.PWMFrequency == 0 {
		return fmt.Errorf("pwm frequency 0 Hz: %w", core.ErrConfiguration)
	}
	if c.RotationCap == 0 {
		return fmt.Errorf("rotation cap 0: %w", core.ErrConfiguration)
	}
	if _, err := ParseDirection(c.DefaultTurn); err != nil {
		return err
	}
	return nil
}

// ParseDirection accepts "left" or "right" (empty means right)
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "right", "R", "r":
		return Right, nil
	case "left", "L", "l":
		return Left, nil
	}
	return Right, fmt.Errorf("turn direction %q: %w", s, core.ErrConfiguration)
}

func ms(v uint32) time.Duration {
	return time.Duration(v) * time.Millisecond
}
