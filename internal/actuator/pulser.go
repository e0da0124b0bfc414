package actuator

import (
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/actuator-node/internal/clock"
)

// PulserCounts tracks Pulser activity since startup.
type PulserCounts struct {
	Triggers int
	Pulses   int
}

// Pulser energizes one relay for a fixed time, e.g. a door strike.
type Pulser struct {
	relay  Relay
	pulse  time.Duration
	clock  clock.Clock
	notify Notifier
	log    logr.Logger

	energized bool
	deadline  clock.Millis
	counts    PulserCounts
}

// NewPulser creates a released Pulser. A nil notify is allowed.
func NewPulser(pulse time.Duration, relay Relay, clk clock.Clock, notify Notifier, opts ...Option) (*Pulser, error) {
	if pulse <= 0 {
		return nil, errors.New("pulse duration must be positive")
	}
	if relay == nil {
		return nil, errors.New("pulser relay is required")
	}
	if clk == nil {
		return nil, errors.New("pulser clock is required")
	}
	o := buildOptions(opts)
	return &Pulser{
		relay:  relay,
		pulse:  pulse,
		clock:  clk,
		notify: orNop(notify),
		log:    o.log,
	}, nil
}

// Trigger energizes the relay and (re)starts the pulse. Triggering an
// energized relay only moves the deadline.
func (p *Pulser) Trigger() {
	if err := p.relay.Set(true); err != nil {
		p.log.Error(err, "door relay", "action", "energize")
	}
	p.energized = true
	p.deadline = p.clock.Now().Add(p.pulse)
	p.counts.Triggers++
	p.log.V(1).Info("door pulse started", "pulse", p.pulse)
}

// Process releases the relay once the pulse has elapsed.
func (p *Pulser) Process() {
	if !p.energized || !p.clock.Now().Reached(p.deadline) {
		return
	}
	if err := p.relay.Set(false); err != nil {
		p.log.Error(err, "door relay", "action", "release")
	}
	p.energized = false
	p.counts.Pulses++
	p.log.V(1).Info("door pulse finished")
	p.notify.Notify(SignalDoorState, true)
}

// Energized reports whether the relay is currently driven.
func (p *Pulser) Energized() bool {
	return p.energized
}

// Counts returns a copy of the activity counters.
func (p *Pulser) Counts() PulserCounts {
	return p.counts
}
