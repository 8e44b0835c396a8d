package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obstacar/core"
)

func TestSchedulerOrder(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.At(2*time.Millisecond, func() { got = append(got, "b") })
	s.At(time.Millisecond, func() { got = append(got, "a") })
	s.At(2*time.Millisecond, func() { got = append(got, "c") })
	e := s.At(3*time.Millisecond, func() { got = append(got, "canceled") })
	e.Cancel()

	s.RunUntil(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 5*time.Millisecond, s.Now())
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerEventsScheduleEvents(t *testing.T) {
	s := NewScheduler()
	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, s.Now())
		s.After(time.Millisecond, tick)
	}
	s.After(time.Millisecond, tick)
	s.RunUntil(3 * time.Millisecond)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, at)
}

func TestSchedulerBurn(t *testing.T) {
	s := NewScheduler()
	var ranAt time.Duration
	s.At(10*time.Microsecond, func() { ranAt = s.Now() })

	s.Burn(25 * time.Microsecond)
	assert.Zero(t, ranAt, "burn must not run events")
	s.RunUntil(s.Now())
	assert.Equal(t, 25*time.Microsecond, ranAt, "late event runs at the current time")
}

func TestMicrosAndBusyClock(t *testing.T) {
	s := NewScheduler()
	s.RunUntil(1500 * time.Microsecond)
	assert.Equal(t, core.Tick(1500), s.Micros().Now())

	busy := s.Busy()
	assert.Equal(t, core.Tick(1501), busy.Now())
	assert.Equal(t, core.Tick(1502), busy.Now())

	start := s.Now()
	core.SpinWait(busy, 10)
	assert.GreaterOrEqual(t, int64(s.Now()-start), int64(10*time.Microsecond))
}

func TestTimerDrivesTickSource(t *testing.T) {
	s := NewScheduler()
	d := core.NewDispatcher()
	timer := NewTimer(s, TimerHz)
	ticks, err := core.NewTickSource(timer, d)
	require.NoError(t, err)
	timer.SetOverflow(ticks.Overflow)

	require.NoError(t, ticks.Configure(time.Millisecond))
	div, reload := ticks.Divider()
	assert.EqualValues(t, 1, div)
	assert.EqualValues(t, 1000, reload)
	assert.Equal(t, time.Millisecond, timer.Period())

	require.NoError(t, ticks.Start())
	s.RunUntil(10 * time.Millisecond)
	assert.Equal(t, core.Tick(10), ticks.Now())
	assert.EqualValues(t, 10, d.Count(core.EventTick))

	ticks.Stop()
	s.RunUntil(20 * time.Millisecond)
	assert.Equal(t, core.Tick(10), ticks.Now())
	assert.Zero(t, ticks.Overruns())
}

func TestTimerRejectsZeroReload(t *testing.T) {
	timer := NewTimer(NewScheduler(), TimerHz)
	assert.ErrorIs(t, timer.Program(1, 0), core.ErrConfiguration)
}
