package actuator

import (
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/actuator-node/internal/clock"
)

// GateConfig holds the timing of a Gate.
type GateConfig struct {
	// Poll is the interval between sensor reads.
	Poll time.Duration
	// Sustain is how long a new reading must hold before it is committed.
	Sustain time.Duration
}

// GateCounts tracks Gate activity since startup.
type GateCounts struct {
	Changes   int
	Cancelled int
}

// Gate folds several gate sensors into one occupancy flag. A change is
// committed only after the OR of the sensors has differed from the stable
// value on every poll for the whole Sustain window; any poll that agrees
// with the stable value cancels the pending change.
type Gate struct {
	cfg     GateConfig
	sensors []Sensor
	clock   clock.Clock
	notify  Notifier
	log     logr.Logger

	stable         bool
	pending        bool
	changeDeadline clock.Millis
	polled         bool
	nextPoll       clock.Millis
	counts         GateCounts
}

// NewGate creates a Gate whose stable state starts false. A nil notify is
// allowed.
func NewGate(cfg GateConfig, sensors []Sensor, clk clock.Clock, notify Notifier, opts ...Option) (*Gate, error) {
	if len(sensors) == 0 {
		return nil, errors.New("gate needs at least one sensor")
	}
	if cfg.Poll <= 0 {
		return nil, errors.New("gate poll interval must be positive")
	}
	if cfg.Sustain < 0 {
		return nil, errors.New("gate sustain window must not be negative")
	}
	if clk == nil {
		return nil, errors.New("gate clock is required")
	}
	o := buildOptions(opts)
	return &Gate{
		cfg:     cfg,
		sensors: sensors,
		clock:   clk,
		notify:  orNop(notify),
		log:     o.log,
	}, nil
}

// Process polls the sensors when the poll interval has elapsed and commits
// a sustained change. Calls between polls return immediately.
func (g *Gate) Process() {
	now := g.clock.Now()
	if g.polled && !now.Reached(g.nextPoll) {
		return
	}
	g.polled = true
	g.nextPoll = now.Add(g.cfg.Poll)

	observed, ok := g.observe()
	if !ok {
		return
	}

	if observed == g.stable {
		if g.pending {
			g.counts.Cancelled++
			g.log.V(1).Info("gate change reverted", "stable", g.stable)
		}
		g.pending = false
		return
	}

	if !g.pending {
		g.pending = true
		g.changeDeadline = now.Add(g.cfg.Sustain)
		g.log.V(1).Info("gate change pending", "observed", observed)
	}

	if now.Reached(g.changeDeadline) {
		g.stable = observed
		g.pending = false
		g.counts.Changes++
		g.log.V(1).Info("gate change committed", "occupied", g.stable)
		g.notify.Notify(SignalGateState, true)
	}
}

// observe returns the OR of all readable sensors. ok is false when no
// sensor could be read.
func (g *Gate) observe() (observed, ok bool) {
	for i, s := range g.sensors {
		v, err := s.Read()
		if err != nil {
			g.log.Error(err, "read gate sensor", "index", i)
			continue
		}
		ok = true
		if v {
			return true, true
		}
	}
	return false, ok
}

// State returns the committed occupancy.
func (g *Gate) State() bool {
	return g.stable
}

// Pending reports whether a change is waiting out the sustain window.
func (g *Gate) Pending() bool {
	return g.pending
}

// Counts returns a copy of the activity counters.
func (g *Gate) Counts() GateCounts {
	return g.counts
}
