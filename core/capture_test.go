package core

import (
	"errors"
	"testing"
)

func TestClockCounter(t *testing.T) {
	clk := &mockClock{now: 1000}
	d := NewDispatcher()
	overflows := 0
	d.Register(EventEchoOverflow, func() { overflows++ })

	cc, err := NewClockCounter(clk, 256, d)
	if err != nil {
		t.Fatal(err)
	}

	cc.Reset()
	cc.Start()
	clk.now = 1000 + 2*256 + 10
	if cc.Count() != 10 {
		t.Errorf("running Count() = %d, want 10", cc.Count())
	}

	// Overflows are delivered from handler context before Stop returns
	state := disableInterrupts()
	cc.Stop()
	restoreInterrupts(state)

	if overflows != 2 {
		t.Errorf("overflows = %d, want 2", overflows)
	}
	if cc.Count() != 10 {
		t.Errorf("stopped Count() = %d, want 10", cc.Count())
	}

	// Frozen while stopped
	clk.now += 500
	if cc.Count() != 10 {
		t.Errorf("Count() moved while stopped: %d", cc.Count())
	}

	cc.Reset()
	if cc.Count() != 0 {
		t.Errorf("Count() after Reset = %d", cc.Count())
	}
}

func TestClockCounterWithEcho(t *testing.T) {
	fine := &mockClock{}
	d := NewDispatcher()
	cc, _ := NewClockCounter(fine, 256, d)
	gpio := newMockGPIO()
	e, err := NewEcho(EchoConfig{TriggerPin: 1, EchoPin: 2, CounterHz: 1000000}, gpio, newMockEdges(), cc, fine, d)
	if err != nil {
		t.Fatal(err)
	}
	e.Enable()

	fine.now = 50
	d.Raise(EventEchoRising)
	// 2 ms round trip: about 34.3 cm
	fine.now = 2050
	d.Raise(EventEchoFalling)

	if got := e.Distance(); !approxEqual(got, 34.3) {
		t.Errorf("distance = %v, want 34.3", got)
	}
}

func TestClockCounterErrors(t *testing.T) {
	if _, err := NewClockCounter(nil, 256, NewDispatcher()); !errors.Is(err, ErrNullReference) {
		t.Errorf("nil clock error = %v", err)
	}
	if _, err := NewClockCounter(&mockClock{}, 0, NewDispatcher()); !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero width error = %v", err)
	}
}
