package nav

// Classify maps a clamped distance to its band. It is a pure function of d.
func (b Bands) Classify(d float32) State {
	switch {
	case d > b.Far:
		return StateNoObstacle
	case d > b.Mid:
		return StateFar
	case d >= b.Near:
		return StateMid
	default:
		return StateNear
	}
}
