package core

import (
	"errors"
	"testing"
	"time"
)

// avrTimer0 mirrors an 8-bit timer on a 16 MHz part
func avrTimer0() *mockTimer {
	return &mockTimer{clockHz: 16000000, width: 8, dividers: []uint32{1, 8, 64, 256, 1024}}
}

func TestTickSourceConfigure(t *testing.T) {
	tests := []struct {
		name        string
		period      time.Duration
		wantDivider uint32
		wantReload  uint32
	}{
		// 1 ms at 16 MHz: /1024 gives 15 counts, the coarsest that fits
		{"1ms", time.Millisecond, 1024, 15},
		// 16 ms at /1024 = 250 counts
		{"16ms", 16 * time.Millisecond, 1024, 250},
		// 1 us at /1024 rounds to 0; /8 gives 2 counts
		{"1us", time.Microsecond, 8, 2},
		// 100 ns at /1 gives 1 count
		{"100ns", 100 * time.Nanosecond, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := avrTimer0()
			ts, err := NewTickSource(drv, NewDispatcher())
			if err != nil {
				t.Fatalf("NewTickSource failed: %v", err)
			}
			if err := ts.Configure(tt.period); err != nil {
				t.Fatalf("Configure(%v) failed: %v", tt.period, err)
			}
			if drv.divider != tt.wantDivider || drv.reload != tt.wantReload {
				t.Errorf("Configure(%v) = /%d reload %d, want /%d reload %d",
					tt.period, drv.divider, drv.reload, tt.wantDivider, tt.wantReload)
			}
		})
	}
}

func TestTickSourceConfigureRejects(t *testing.T) {
	periods := []time.Duration{
		0,
		10 * time.Nanosecond, // below one 16 MHz clock
		time.Second,          // 15625 counts at /1024 does not fit 8 bits
	}
	for _, p := range periods {
		drv := avrTimer0()
		ts, _ := NewTickSource(drv, NewDispatcher())
		err := ts.Configure(p)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("Configure(%v) error = %v, want ErrConfiguration", p, err)
		}
		if drv.programmed {
			t.Errorf("Configure(%v) programmed the timer", p)
		}
	}
}

func TestTickSourceNilCollaborators(t *testing.T) {
	if _, err := NewTickSource(nil, NewDispatcher()); !errors.Is(err, ErrNullReference) {
		t.Errorf("nil timer error = %v", err)
	}
	if _, err := NewTickSource(avrTimer0(), nil); !errors.Is(err, ErrNullReference) {
		t.Errorf("nil dispatcher error = %v", err)
	}
}

func TestTickSourceStartRequiresConfigure(t *testing.T) {
	drv := avrTimer0()
	ts, _ := NewTickSource(drv, NewDispatcher())
	if err := ts.Start(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Start before Configure error = %v", err)
	}
	if err := ts.Configure(16 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := ts.Start(); err != nil {
		t.Fatal(err)
	}
	if !drv.started || !ts.Running() {
		t.Error("timer not started")
	}
	ts.Stop()
	if drv.started || ts.Running() {
		t.Error("timer not stopped")
	}
}

func TestTickSourceOverflow(t *testing.T) {
	d := NewDispatcher()
	ts, _ := NewTickSource(&mockTimer{clockHz: 1000000, width: 32, dividers: []uint32{1}}, d)
	if err := ts.Configure(time.Millisecond); err != nil {
		t.Fatal(err)
	}

	var seen []Tick
	if err := d.Register(EventTick, func() { seen = append(seen, ts.Now()) }); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		ts.Overflow()
	}

	if ts.Now() != 3 {
		t.Errorf("Now() = %d, want 3", ts.Now())
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("handler saw %v, want [1 2 3]", seen)
	}
	if d.Count(EventTick) != 3 {
		t.Errorf("dispatch count = %d, want 3", d.Count(EventTick))
	}
	if ts.Rate() != 1000 {
		t.Errorf("Rate() = %d, want 1000", ts.Rate())
	}
	if got := ts.TicksFor(5 * time.Second); got != 5000 {
		t.Errorf("TicksFor(5s) = %d, want 5000", got)
	}
}

func TestTickSourceOverrun(t *testing.T) {
	d := NewDispatcher()
	ts, _ := NewTickSource(&mockTimer{clockHz: 1000000, width: 32, dividers: []uint32{1}}, d)

	// Simulate an overflow arriving while the tick handler is still busy
	ts.busy = 1
	ts.Overflow()
	ts.busy = 0

	if ts.Now() != 1 {
		t.Errorf("Now() = %d, want 1", ts.Now())
	}
	if ts.Overruns() != 1 {
		t.Errorf("Overruns() = %d, want 1", ts.Overruns())
	}
	if d.Count(EventTick) != 0 {
		t.Errorf("handlers ran during overrun")
	}
}

func TestTickWraps(t *testing.T) {
	ts, _ := NewTickSource(avrTimer0(), NewDispatcher())
	ts.ticks = uint32(MaxTick)
	ts.Overflow()
	if ts.Now() != 0 {
		t.Errorf("Now() after wrap = %d, want 0", ts.Now())
	}
}
