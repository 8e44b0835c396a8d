package core

import (
	"fmt"
	"math"
	"math/bits"
	"sync/atomic"
	"time"
)

// Tick is one overflow period of the tick source, the system's base time unit.
// The counter wraps at its width.
type Tick uint32

// MaxTick is the largest value the tick counter holds before wrapping
const MaxTick Tick = math.MaxUint32

// DefaultTickPeriod is the tick period used by the firmware targets
const DefaultTickPeriod = time.Millisecond

// TickSource turns a free-running hardware counter into a periodic tick.
// The counter is written only by Overflow and read everywhere else through
// Now, so the tick value is a single-word hand-off.
type TickSource struct {
	drv        TimerDriver
	dispatcher *Dispatcher

	ticks    uint32 // atomic
	busy     uint32 // atomic, 1 while the tick handlers run
	overruns uint32 // atomic

	divider    uint32
	reload     uint32
	period     time.Duration
	configured bool
	running    bool
}

// NewTickSource binds a tick source to its timer hardware and the dispatcher
// that receives EventTick on every overflow.
func NewTickSource(drv TimerDriver, d *Dispatcher) (*TickSource, error) {
	if drv == nil {
		return nil, fmt.Errorf("tick source timer: %w", ErrNullReference)
	}
	if d == nil {
		return nil, fmt.Errorf("tick source dispatcher: %w", ErrNullReference)
	}
	return &TickSource{drv: drv, dispatcher: d}, nil
}

// Configure computes the divider and reload value for the requested period.
// The coarsest divider whose reload value is representable in the counter
// width wins; the period is rejected when no divider can represent it.
func (ts *TickSource) Configure(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("tick period %v: %w", period, ErrConfiguration)
	}
	clock := uint64(ts.drv.ClockHz())
	if clock == 0 {
		return fmt.Errorf("timer clock is 0 Hz: %w", ErrConfiguration)
	}
	width := ts.drv.Width()
	if width == 0 || width > 32 {
		return fmt.Errorf("timer width %d: %w", width, ErrConfiguration)
	}
	maxReload := uint64(1) << width

	dividers := ts.drv.Dividers()
	tooShort := true
	for i := len(dividers) - 1; i >= 0; i-- {
		div := uint64(dividers[i])
		if div == 0 {
			continue
		}
		reload, ok := reloadFor(period, clock, div)
		if !ok {
			tooShort = false
			continue
		}
		if reload == 0 {
			// Finer dividers may still resolve it
			continue
		}
		tooShort = false
		if reload > maxReload {
			// A coarser divider already failed to fit; a finer one never will
			break
		}

		if err := ts.drv.Program(uint32(div), uint32(reload)); err != nil {
			return err
		}
		ts.divider = uint32(div)
		ts.reload = uint32(reload)
		ts.period = time.Duration(reload * div * uint64(time.Second) / clock)
		ts.configured = true
		return nil
	}

	if tooShort {
		return fmt.Errorf("tick period %v is shorter than one timer clock: %w", period, ErrConfiguration)
	}
	return fmt.Errorf("tick period %v does not fit a %d-bit timer: %w", period, width, ErrConfiguration)
}

// reloadFor returns period*clock/(div*1s) in counts. ok is false when the
// result does not fit in 64 bits.
func reloadFor(period time.Duration, clock, div uint64) (uint64, bool) {
	hi, lo := bits.Mul64(uint64(period), clock)
	den := div * uint64(time.Second)
	if hi >= den {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, true
}

// Start enables the tick
func (ts *TickSource) Start() error {
	if !ts.configured {
		return fmt.Errorf("tick source not configured: %w", ErrConfiguration)
	}
	ts.drv.Start()
	ts.running = true
	return nil
}

// Stop disables the tick. The counter keeps its value.
func (ts *TickSource) Stop() {
	ts.drv.Stop()
	ts.running = false
}

// Running reports whether the tick is enabled
func (ts *TickSource) Running() bool {
	return ts.running
}

// Overflow is called by the timer driver on every counter overflow. The
// counter advances exactly once per call; the handlers are skipped (and the
// overrun counted) if the previous overflow is still being handled.
func (ts *TickSource) Overflow() {
	atomic.AddUint32(&ts.ticks, 1)

	if !atomic.CompareAndSwapUint32(&ts.busy, 0, 1) {
		atomic.AddUint32(&ts.overruns, 1)
		return
	}
	ts.dispatcher.Raise(EventTick)
	atomic.StoreUint32(&ts.busy, 0)
}

// Now returns the current tick count
func (ts *TickSource) Now() Tick {
	return Tick(atomic.LoadUint32(&ts.ticks))
}

// Overruns returns how many overflows arrived while handlers were running
func (ts *TickSource) Overruns() uint32 {
	return atomic.LoadUint32(&ts.overruns)
}

// Period returns the achieved tick period (0 until configured)
func (ts *TickSource) Period() time.Duration {
	return ts.period
}

// Divider returns the selected divider and reload value
func (ts *TickSource) Divider() (divider, reload uint32) {
	return ts.divider, ts.reload
}

// Rate returns the number of ticks per second
func (ts *TickSource) Rate() uint32 {
	if ts.period == 0 {
		return 0
	}
	return uint32(time.Second / ts.period)
}

// TicksFor converts a duration to whole ticks, rounding down
func (ts *TickSource) TicksFor(d time.Duration) Tick {
	if ts.period == 0 || d <= 0 {
		return 0
	}
	return Tick(d / ts.period)
}
