package sim

import (
	"time"

	"github.com/aamcrae/config"
	"github.com/pkg/errors"

	"obstacar/nav"
)

// Scenario describes one simulated run
type Scenario struct {
	Duration   time.Duration // Virtual run time
	Loop       time.Duration // Control loop period
	Start      time.Duration // Start button press
	Stop       time.Duration // Second start/stop press, 0 for none
	DirPresses int           // Direction presses during selection

	Walls    [4]float64    // Wall distances N, E, S, W in cm
	Speed    float64       // cm/s at full drive
	TurnTime time.Duration // Powered rotation time for 90 degrees

	ObstacleAt time.Duration // When an obstacle appears, if Obstacle > 0
	Obstacle   float64       // Its distance in front of the car in cm

	Nav nav.Config
}

// DefaultScenario is a 30 s run in a 3 m by 2 m room
func DefaultScenario() Scenario {
	return Scenario{
		Duration: 30 * time.Second,
		Loop:     60 * time.Millisecond,
		Start:    500 * time.Millisecond,
		Walls:    [4]float64{150, 80, 150, 120},
		Speed:    60,
		TurnTime: 500 * time.Millisecond,
		Nav:      nav.DefaultConfig(),
	}
}

// LoadScenario reads a scenario file. Sample:
//  [car]
//  duration=30s      # virtual run time
//  loop=60ms         # control loop period
//  start=500ms       # start button press
//  stop=25s          # optional second press
//  direction=1       # optional direction presses during selection
//  [world]
//  walls=150,80,150,120  # N,E,S,W wall distances in cm, car faces north
//  speed=60              # cm/s at full drive
//  turn=500ms            # powered time to rotate 90 degrees
//  obstacle=8000,35      # optional: at 8000 ms an obstacle appears 35 cm ahead
func LoadScenario(path string) (*Scenario, error) {
	conf, err := config.ParseFile(path)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	sc, err := ScenarioFromConfig(conf)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return sc, nil
}

// ScenarioFromConfig reads the [car] and [world] sections; missing optional
// keys keep their defaults
func ScenarioFromConfig(conf *config.Config) (*Scenario, error) {
	sc := DefaultScenario()

	car := conf.GetSection("car")
	if car == nil {
		return nil, errors.New("no [car] section")
	}
	world := conf.GetSection("world")
	if world == nil {
		return nil, errors.New("no [world] section")
	}

	var err error
	if sc.Duration, err = duration(car, "duration", sc.Duration); err != nil {
		return nil, err
	}
	if sc.Loop, err = duration(car, "loop", sc.Loop); err != nil {
		return nil, err
	}
	if sc.Start, err = duration(car, "start", sc.Start); err != nil {
		return nil, err
	}
	if sc.Stop, err = duration(car, "stop", 0); err != nil {
		return nil, err
	}
	if has(car, "direction") {
		n, err := car.Parse("direction", "%d", &sc.DirPresses)
		if err != nil {
			return nil, errors.Wrap(err, "direction")
		}
		if n != 1 || sc.DirPresses < 0 {
			return nil, errors.New("direction: expected a press count")
		}
	}

	if has(world, "walls") {
		w := &sc.Walls
		n, err := world.Parse("walls", "%f,%f,%f,%f", &w[North], &w[East], &w[South], &w[West])
		if err != nil {
			return nil, errors.Wrap(err, "walls")
		}
		if n != 4 {
			return nil, errors.New("walls: expected N,E,S,W")
		}
	}
	if has(world, "speed") {
		n, err := world.Parse("speed", "%f", &sc.Speed)
		if err != nil {
			return nil, errors.Wrap(err, "speed")
		}
		if n != 1 {
			return nil, errors.New("speed: argument count")
		}
	}
	if sc.TurnTime, err = duration(world, "turn", sc.TurnTime); err != nil {
		return nil, err
	}
	if has(world, "obstacle") {
		var at int
		n, err := world.Parse("obstacle", "%d,%f", &at, &sc.Obstacle)
		if err != nil {
			return nil, errors.Wrap(err, "obstacle")
		}
		if n != 2 {
			return nil, errors.New("obstacle: expected MS,CM")
		}
		sc.ObstacleAt = time.Duration(at) * time.Millisecond
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario is runnable
func (sc *Scenario) Validate() error {
	switch {
	case sc.Duration <= 0:
		return errors.Errorf("duration %v must be positive", sc.Duration)
	case sc.Loop <= 0:
		return errors.Errorf("loop %v must be positive", sc.Loop)
	case sc.Speed < 0:
		return errors.Errorf("speed %v must not be negative", sc.Speed)
	case sc.Stop != 0 && sc.Stop <= sc.Start:
		return errors.Errorf("stop %v must come after start %v", sc.Stop, sc.Start)
	}
	for i, w := range sc.Walls {
		if w <= 0 {
			return errors.Errorf("wall %d distance %v must be positive", i, w)
		}
	}
	return sc.Nav.Validate()
}

func has(s *config.Section, key string) bool {
	var v string
	n, err := s.Parse(key, "%s", &v)
	return err == nil && n == 1
}

func duration(s *config.Section, key string, def time.Duration) (time.Duration, error) {
	if !has(s, key) {
		return def, nil
	}
	arg, _ := s.GetArg(key)
	d, err := time.ParseDuration(arg)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return d, nil
}
