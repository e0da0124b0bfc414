//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Relay is not implemented on non-Linux platforms.
func (c *Chip) Relay(cfg LineConfig) (*Relay, error) {
	return nil, errUnsupported
}

// Sensor is not implemented on non-Linux platforms.
func (c *Chip) Sensor(cfg LineConfig) (*Sensor, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// Relay is not available on non-Linux platforms.
type Relay struct{}

// Set is not implemented on non-Linux platforms.
func (r *Relay) Set(on bool) error {
	return errUnsupported
}

// Sensor is not available on non-Linux platforms.
type Sensor struct{}

// Read is not implemented on non-Linux platforms.
func (s *Sensor) Read() (bool, error) {
	return false, errUnsupported
}

// Output is not implemented on non-Linux platforms.
func (c *Chip) Output(cfg LineConfig) (Output, error) {
	return nil, errUnsupported
}

// Input is not implemented on non-Linux platforms.
func (c *Chip) Input(cfg LineConfig) (Input, error) {
	return nil, errUnsupported
}
