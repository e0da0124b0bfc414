// Package gpio provides relay outputs and sensor inputs with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import "time"

// Output drives a relay. Set(true) energizes it.
type Output interface {
	Set(on bool) error
}

// Input reads a sensor. Read reports whether the input is logically active,
// after any active-low inversion.
type Input interface {
	Read() (bool, error)
}

// DefaultChip is the gpiochip the Raspberry Pi header is exposed on.
const DefaultChip = "gpiochip0"

// LineConfig describes one requested line.
type LineConfig struct {
	Pin       int           // BCM line offset
	ActiveLow bool          // logical on = electrical low
	Debounce  time.Duration // inputs only; 0 disables kernel debounce
}

// Lines requests relay and sensor lines. Chip and FakeChip implement it.
type Lines interface {
	Output(cfg LineConfig) (Output, error)
	Input(cfg LineConfig) (Input, error)
}
