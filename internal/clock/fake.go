package clock

import "time"

// Fake is a manually driven clock for tests.
// Not safe for concurrent use.
type Fake struct {
	now Millis
}

// NewFake creates a Fake reading start.
func NewFake(start Millis) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (f *Fake) Now() Millis {
	return f.now
}

// Set moves the clock to t. Moving backwards is allowed; the state machines
// treat it like any other wrapped reading.
func (f *Fake) Set(t Millis) {
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
