package nav

import "sync/atomic"

// Latch is a boolean shared between a button handler and the control loop.
// It is a single atomic word, so either side may flip or read it at any time.
type Latch struct {
	v uint32
}

// Toggle flips the latch. Its signature matches core.Handler so it can be
// registered directly on a button event.
func (l *Latch) Toggle() {
	for {
		old := atomic.LoadUint32(&l.v)
		if atomic.CompareAndSwapUint32(&l.v, old, old^1) {
			return
		}
	}
}

// Set forces the latch value
func (l *Latch) Set(on bool) {
	var v uint32
	if on {
		v = 1
	}
	atomic.StoreUint32(&l.v, v)
}

// Get reads the latch value
func (l *Latch) Get() bool {
	return atomic.LoadUint32(&l.v) == 1
}
