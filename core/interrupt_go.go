//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// On regular Go the "interrupt" handlers are goroutines (Linux edge readers,
// ticker loops, the simulator), so the critical section is a process-wide
// mutex. It is not reentrant: handler code already inside a critical section
// must use Dispatch, never Raise.
var criticalSection sync.Mutex

// disableInterrupts enters the critical section
func disableInterrupts() State {
	criticalSection.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	criticalSection.Unlock()
}
