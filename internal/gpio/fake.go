package gpio

import (
	"errors"
	"fmt"
)

// FakeRelay is a test double that records every Set call.
type FakeRelay struct {
	// On is the current output state.
	On bool

	// History contains every value passed to Set, in order.
	History []bool

	// SetError, if set, will be returned by Set. The state is still updated
	// so callers can assert that a failing write was attempted.
	SetError error
}

// NewFakeRelay creates a released FakeRelay.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the new output state.
func (f *FakeRelay) Set(on bool) error {
	f.On = on
	f.History = append(f.History, on)
	return f.SetError
}

// Activations returns how many times the relay went from released to
// energized.
func (f *FakeRelay) Activations() int {
	n := 0
	prev := false
	for _, v := range f.History {
		if v && !prev {
			n++
		}
		prev = v
	}
	return n
}

// FakeSensor is a test double that returns scripted values.
type FakeSensor struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read.
	Reads int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...bool) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSensor) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// SetValue replaces the script with a single repeating value.
func (f *FakeSensor) SetValue(v bool) {
	f.Samples = []bool{v}
	f.index = 0
}

// Reset resets the sensor to the beginning of samples.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeChip hands out fake lines keyed by pin, so tests can reach the relay
// or sensor a component was wired to.
type FakeChip struct {
	Relays  map[int]*FakeRelay
	Sensors map[int]*FakeSensor

	// Configs records every requested line, in order.
	Configs []LineConfig

	// RequestError, if set, will be returned by Output and Input.
	RequestError error
}

// NewFakeChip creates an empty FakeChip.
func NewFakeChip() *FakeChip {
	return &FakeChip{
		Relays:  make(map[int]*FakeRelay),
		Sensors: make(map[int]*FakeSensor),
	}
}

// Output returns a new FakeRelay for cfg.Pin. A pin can only be requested once.
func (f *FakeChip) Output(cfg LineConfig) (Output, error) {
	if err := f.request(cfg); err != nil {
		return nil, err
	}
	r := NewFakeRelay()
	f.Relays[cfg.Pin] = r
	return r, nil
}

// Input returns a new FakeSensor reading false for cfg.Pin.
func (f *FakeChip) Input(cfg LineConfig) (Input, error) {
	if err := f.request(cfg); err != nil {
		return nil, err
	}
	s := NewFakeSensor(false)
	f.Sensors[cfg.Pin] = s
	return s, nil
}

func (f *FakeChip) request(cfg LineConfig) error {
	if f.RequestError != nil {
		return f.RequestError
	}
	if _, ok := f.Relays[cfg.Pin]; ok {
		return fmt.Errorf("pin %d already requested", cfg.Pin)
	}
	if _, ok := f.Sensors[cfg.Pin]; ok {
		return fmt.Errorf("pin %d already requested", cfg.Pin)
	}
	f.Configs = append(f.Configs, cfg)
	return nil
}
