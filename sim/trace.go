package sim

import (
	"fmt"
	"io"
	"time"

	"obstacar/nav"
)

// Sample is the board as seen after one control loop iteration
type Sample struct {
	At       time.Duration
	Truth    float64 // true distance ahead in cm
	Measured float32 // last published echo distance in cm
	Status   nav.Status
}

// Change is one status report from the machine
type Change struct {
	At     time.Duration
	Status nav.Status
}

// Trace records a run. It is the machine's status sink.
type Trace struct {
	s       *Scheduler
	Samples []Sample
	Changes []Change
}

// NewTrace creates a trace stamped with the scheduler's time
func NewTrace(s *Scheduler) *Trace {
	return &Trace{s: s}
}

func (t *Trace) Report(st nav.Status) {
	t.Changes = append(t.Changes, Change{At: t.s.Now(), Status: st})
}

// Add records a sample
func (t *Trace) Add(sample Sample) {
	t.Samples = append(t.Samples, sample)
}

// States returns the sequence of states reported, repeats collapsed
func (t *Trace) States() []nav.State {
	var out []nav.State
	for _, c := range t.Changes {
		if len(out) == 0 || out[len(out)-1] != c.Status.State {
			out = append(out, c.Status.State)
		}
	}
	return out
}

// Visited reports whether the machine ever reported state s
func (t *Trace) Visited(s nav.State) bool {
	for _, c := range t.Changes {
		if c.Status.State == s {
			return true
		}
	}
	return false
}

// WriteTo prints every status change, one per line
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, c := range t.Changes {
		n, err := fmt.Fprintf(w, "%9.3fs  %-11s %-5s %s\n",
			c.At.Seconds(), c.Status.State, c.Status.Turn, c.Status)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
