package sim

import (
	"time"

	"obstacar/nav"
)

// Headings in the room, clockwise
const (
	North = iota
	East
	South
	West
)

// World is a rectangular room seen from the car. The car faces one of four
// walls; driving changes the distances along its axis and a full rotation
// turns it by 90 degrees. An obstacle can be dropped in front of the car and
// stays there until the car turns away.
type World struct {
	clear   [4]float64 // distance to each wall in cm
	heading int

	Speed    float64       // cm/s at full drive
	TurnTime time.Duration // powered rotation time for 90 degrees

	obstacle   float64 // cm ahead, valid when blocked
	blocked    bool
	turning    time.Duration
	turnDir    nav.Direction
	touching   bool
	travelled  float64
	turns      int
	collisions int
}

// NewWorld creates a room with the given wall distances (N, E, S, W), the car
// facing north
func NewWorld(walls [4]float64, speed float64, turn time.Duration) *World {
	return &World{clear: walls, Speed: speed, TurnTime: turn}
}

// Ahead returns the true distance to whatever is in front of the car
func (w *World) Ahead() float64 {
	d := w.clear[w.heading]
	if w.blocked && w.obstacle < d {
		d = w.obstacle
	}
	return d
}

// Side returns the wall distance on one side
func (w *World) Side(dir nav.Direction) float64 {
	if dir == nav.Left {
		return w.clear[(w.heading+3)%4]
	}
	return w.clear[(w.heading+1)%4]
}

// Heading returns the wall the car faces
func (w *World) Heading() int {
	return w.heading
}

// Block drops an obstacle cm in front of the car
func (w *World) Block(cm float64) {
	w.obstacle = cm
	w.blocked = true
}

// Travelled returns the distance driven in cm
func (w *World) Travelled() float64 {
	return w.travelled
}

// Turns returns the number of completed 90 degree rotations
func (w *World) Turns() int {
	return w.turns
}

// Collisions returns the number of times the car drove into something
func (w *World) Collisions() int {
	return w.collisions
}

// Update moves the car for dt. left and right are the wheel directions
// (1 forward, -1 backward, 0 stopped); powered is the enable line level.
func (w *World) Update(dt time.Duration, left, right int, powered bool) {
	if !powered || (left == 0 && right == 0) {
		return
	}
	step := w.Speed * dt.Seconds()

	switch {
	case left > 0 && right > 0:
		w.move(step)
	case left < 0 && right < 0:
		w.move(-step)
	case left < 0 && right > 0:
		w.rotate(nav.Left, dt)
	case left > 0 && right < 0:
		w.rotate(nav.Right, dt)
	}
}

func (w *World) move(cm float64) {
	ahead := w.Ahead()
	if cm > ahead {
		cm = ahead
	}
	if behind := w.clear[(w.heading+2)%4]; -cm > behind {
		cm = -behind
	}
	w.clear[w.heading] -= cm
	w.clear[(w.heading+2)%4] += cm
	if w.blocked {
		w.obstacle -= cm
	}
	if cm >= 0 {
		w.travelled += cm
	} else {
		w.travelled -= cm
	}

	if w.Ahead() <= 0 {
		if !w.touching {
			w.collisions++
		}
		w.touching = true
	} else {
		w.touching = false
	}
}

func (w *World) rotate(dir nav.Direction, dt time.Duration) {
	if dir != w.turnDir {
		w.turning = 0
		w.turnDir = dir
	}
	w.turning += dt
	if w.TurnTime <= 0 || w.turning < w.TurnTime {
		return
	}
	w.turning = 0
	w.turns++
	w.blocked = false
	w.touching = false
	if dir == nav.Left {
		w.heading = (w.heading + 3) % 4
	} else {
		w.heading = (w.heading + 1) % 4
	}
}
