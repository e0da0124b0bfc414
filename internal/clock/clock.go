// Package clock provides the millisecond time base used by the actuator
// state machines. Deadlines are stored as wrapping 32-bit tick counts, so
// every comparison has to survive rollover.
package clock

import "time"

// Millis is a millisecond tick count. It wraps to zero after 2^32 ms
// (about 49.7 days).
type Millis uint32

// Add returns t advanced by d, wrapping at 2^32.
func (t Millis) Add(d time.Duration) Millis {
	return t + Millis(d.Milliseconds())
}

// Sub returns the signed distance t-u. The result is only meaningful when
// the two ticks are less than 2^31 ms apart.
func (t Millis) Sub(u Millis) time.Duration {
	return time.Duration(int32(t-u)) * time.Millisecond
}

// Reached reports whether t is at or past deadline, modulo 2^32.
func (t Millis) Reached(deadline Millis) bool {
	return int32(t-deadline) >= 0
}

// Clock is a monotonic millisecond source.
type Clock interface {
	Now() Millis
}

// Monotonic derives Millis from Go's monotonic clock reading.
type Monotonic struct {
	start  time.Time
	offset Millis
}

// NewMonotonic returns a clock that reads 0 now.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// NewMonotonicAt returns a clock that reads offset now. Useful for running
// close to the 2^32 rollover.
func NewMonotonicAt(offset Millis) *Monotonic {
	return &Monotonic{start: time.Now(), offset: offset}
}

// Now returns the milliseconds elapsed since construction plus the offset,
// truncated to 32 bits.
func (m *Monotonic) Now() Millis {
	return m.offset + Millis(time.Since(m.start).Milliseconds())
}
