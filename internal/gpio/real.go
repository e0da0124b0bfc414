//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip owns a GPIO chip and every line requested from it.
type Chip struct {
	chip    *gpiocdev.Chip
	outputs []*gpiocdev.Line
	inputs  []*gpiocdev.Line
}

// OpenChip opens the named gpiochip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// Relay requests an output line, initially released.
func (c *Chip) Relay(cfg LineConfig) (*Relay, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.chip.RequestLine(cfg.Pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request relay pin %d: %w", cfg.Pin, err)
	}
	c.outputs = append(c.outputs, line)
	return &Relay{line: line, pin: cfg.Pin}, nil
}

// Sensor requests an input line with pull-up. Contacts are expected to
// short the line to ground, so most sensors want ActiveLow.
func (c *Chip) Sensor(cfg LineConfig) (*Sensor, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	if cfg.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(cfg.Debounce))
	}
	line, err := c.chip.RequestLine(cfg.Pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request sensor pin %d: %w", cfg.Pin, err)
	}
	c.inputs = append(c.inputs, line)
	return &Sensor{line: line, pin: cfg.Pin}, nil
}

// Close releases all lines and the chip.
// Outputs are driven inactive and every line is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing, so relays do not
// stay energized across a restart.
func (c *Chip) Close() error {
	var errs []error

	for _, line := range c.outputs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release line %d: %w", line.Offset(), err))
		}
	}
	for _, line := range append(c.outputs, c.inputs...) {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", line.Offset(), err))
		}
	}
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Relay is an output line.
type Relay struct {
	line *gpiocdev.Line
	pin  int
}

// Set energizes (true) or releases (false) the relay.
func (r *Relay) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay pin %d: %w", r.pin, err)
	}
	return nil
}

// Sensor is an input line.
type Sensor struct {
	line *gpiocdev.Line
	pin  int
}

// Read returns the logical value of the line.
func (s *Sensor) Read() (bool, error) {
	v, err := s.line.Value()
	if err != nil {
		return false, fmt.Errorf("read sensor pin %d: %w", s.pin, err)
	}
	return v == 1, nil
}

// Output implements Lines.
func (c *Chip) Output(cfg LineConfig) (Output, error) {
	r, err := c.Relay(cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Input implements Lines.
func (c *Chip) Input(cfg LineConfig) (Input, error) {
	s, err := c.Sensor(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
