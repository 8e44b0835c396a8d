package core

import "errors"

// Setup-time failures. Both are fatal: the caller must not start the control
// loop once either is returned. Run-time measurement anomalies are never
// reported as errors; they surface as clamped or stale values.
var (
	// ErrConfiguration reports an invalid period, frequency, duty cycle or
	// table slot at setup.
	ErrConfiguration = errors.New("configuration rejected")

	// ErrNullReference reports a required collaborator that was not supplied.
	ErrNullReference = errors.New("missing collaborator")
)
