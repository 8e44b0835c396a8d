package config

import (
	"encoding/json"
	"os"

	"obstacar/nav"
)

// LoadConfig parses a JSON configuration string and returns a nav.Config
func LoadConfig(jsonData []byte) (*nav.Config, error) {
	var config nav.Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses a JSON configuration file
func LoadFile(path string) (*nav.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *nav.Config) {
	// Band thresholds
	if config.Bands.Far == 0 {
		config.Bands.Far = nav.DefaultFarCM
	}
	if config.Bands.Mid == 0 {
		config.Bands.Mid = nav.DefaultMidCM
	}
	if config.Bands.Near == 0 {
		config.Bands.Near = nav.DefaultNearCM
	}

	// Motor drive
	if config.LowSpeed == 0 {
		config.LowSpeed = nav.DefaultLowSpeed
	}
	if config.HighSpeed == 0 {
		config.HighSpeed = nav.DefaultHighSpeed
	}
	if config.PWMFrequency == 0 {
		config.PWMFrequency = nav.DefaultPWMFrequency
	}
	if config.RotationCap == 0 {
		config.RotationCap = nav.DefaultRotationCap
	}
	if config.DefaultTurn == "" {
		config.DefaultTurn = "right"
	}

	// Windows
	if config.BoostMs == 0 {
		config.BoostMs = nav.DefaultBoostMs
	}
	if config.RotateMs == 0 {
		config.RotateMs = nav.DefaultRotateMs
	}
	if config.HoldMs == 0 {
		config.HoldMs = nav.DefaultHoldMs
	}
	if config.SelectMs == 0 {
		config.SelectMs = nav.DefaultSelectMs
	}
	if config.StartDelayMs == 0 {
		config.StartDelayMs = nav.DefaultStartDelayMs
	}
}
