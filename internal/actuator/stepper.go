package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/actuator-node/internal/clock"
)

// StepperConfig holds the timing of a stepped window opener.
type StepperConfig struct {
	// Steps is the fully open position N.
	Steps int
	// OpenStep is the open relay time per position step.
	OpenStep time.Duration
	// CloseStep is the close relay time per position step, used when
	// closing to a partially open position.
	CloseStep time.Duration
	// FullClose is the close relay time for a move to Closed.
	FullClose time.Duration
	// CloseMargin is added to FullClose.
	CloseMargin time.Duration
	// CloseExtension is granted once per close, at the first poll where
	// the sensor does not report the closed end.
	CloseExtension time.Duration
}

// Validate checks the configuration.
func (c StepperConfig) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", c.Steps)
	}
	if c.OpenStep <= 0 || c.CloseStep <= 0 || c.FullClose <= 0 {
		return errors.New("open step, close step and full close durations must be positive")
	}
	if c.CloseMargin < 0 || c.CloseExtension < 0 {
		return errors.New("close margin and close extension must not be negative")
	}
	return nil
}

// StepperHardware binds a Stepper to its I/O.
type StepperHardware struct {
	// ClosedSensor reads true when the window is at the closed end.
	ClosedSensor Sensor
	Open         Relay
	Close        Relay
}

// StepperCounts tracks Stepper activity since startup.
type StepperCounts struct {
	Transitions int
	Extensions  int
	Rejected    int
}

// Stepper moves a window across discrete positions by timing its open and
// close relays. Position is open-loop: the only feedback is the closed-end
// sensor, which can stretch a close to Closed by one extension.
type Stepper struct {
	cfg    StepperConfig
	hw     StepperHardware
	clock  clock.Clock
	notify Notifier
	log    logr.Logger

	position Position
	target   Position
	state    TransitionState
	active   Relay
	closing  bool // moving to Closed on the sensor-confirmed path
	extended bool // close extension already granted this transition
	deadline clock.Millis
	counts   StepperCounts
}

// NewStepper creates an idle Stepper at Closed. A nil notify is allowed.
func NewStepper(cfg StepperConfig, hw StepperHardware, clk clock.Clock, notify Notifier, opts ...Option) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stepper config: %w", err)
	}
	if hw.Open == nil || hw.Close == nil || hw.ClosedSensor == nil {
		return nil, errors.New("stepper hardware: open relay, close relay and closed sensor are required")
	}
	if clk == nil {
		return nil, errors.New("stepper clock is required")
	}
	o := buildOptions(opts)
	return &Stepper{
		cfg:    cfg,
		hw:     hw,
		clock:  clk,
		notify: orNop(notify),
		log:    o.log,
	}, nil
}

// SetState records a new target position and starts driving the relay.
// It reports whether the command was accepted.
//
// Without force, the command is ignored when the window is already at
// target or a transition is in progress. With force, an in-flight
// transition is re-targeted: the active relay is released before the new
// one is energized. A forced command for the last confirmed position
// stops an in-flight transition there.
func (s *Stepper) SetState(target Position, force bool) bool {
	if target < Closed || int(target) > s.cfg.Steps {
		s.counts.Rejected++
		s.log.Info("window target out of range", "target", target, "steps", s.cfg.Steps)
		return false
	}
	if !force && (target == s.position || s.state == Moving) {
		s.counts.Rejected++
		return false
	}

	delta := int(target - s.position)
	if target != Closed && delta == 0 {
		if s.state == Moving {
			s.stop()
			return true
		}
		s.counts.Rejected++
		s.log.Info("forced window command already at target", "target", target)
		return false
	}

	var relay Relay
	var d time.Duration
	closing := false
	switch {
	case target == Closed:
		relay = s.hw.Close
		d = s.cfg.FullClose + s.cfg.CloseMargin
		closing = true
	case delta > 0:
		relay = s.hw.Open
		d = time.Duration(delta) * s.cfg.OpenStep
	default:
		relay = s.hw.Close
		d = time.Duration(-delta) * s.cfg.CloseStep
	}

	if s.active != nil && s.active != relay {
		s.setRelay(s.active, false, "release")
	}
	s.setRelay(relay, true, "energize")

	now := s.clock.Now()
	s.active = relay
	s.target = target
	s.state = Moving
	s.closing = closing
	s.extended = false
	s.deadline = now.Add(d)

	s.log.V(1).Info("window moving", "from", s.position, "to", target, "duration", d, "force", force)
	return true
}

// Process advances an in-flight transition. It must be called every loop
// iteration and is a no-op while idle.
func (s *Stepper) Process() {
	if s.state == Idle {
		return
	}

	if s.closing && !s.extended && !s.confirmedClosed() {
		s.extended = true
		s.counts.Extensions++
		s.deadline = s.deadline.Add(s.cfg.CloseExtension)
		s.log.V(1).Info("window close not confirmed, extending", "extension", s.cfg.CloseExtension, "deadline", s.deadline)
	}

	if !s.clock.Now().Reached(s.deadline) {
		return
	}

	s.position = s.target
	s.settle()
	s.counts.Transitions++

	s.log.V(1).Info("window transition complete", "position", s.position)
	s.notify.Notify(SignalWindowState, false)
}

// stop abandons the in-flight transition at the last confirmed position.
func (s *Stepper) stop() {
	s.log.Info("window transition stopped", "position", s.position, "target", s.target)
	s.target = s.position
	s.settle()
	s.notify.Notify(SignalWindowState, false)
}

// settle releases the active relay and returns to Idle.
func (s *Stepper) settle() {
	s.setRelay(s.active, false, "release")
	s.active = nil
	s.state = Idle
	s.closing = false
	s.deadline = 0
}

func (s *Stepper) confirmedClosed() bool {
	closed, err := s.hw.ClosedSensor.Read()
	if err != nil {
		s.log.Error(err, "read window closed sensor")
		return false
	}
	return closed
}

func (s *Stepper) setRelay(r Relay, on bool, action string) {
	if err := r.Set(on); err != nil {
		s.log.Error(err, "window relay", "action", action)
	}
}

// State returns the last confirmed position.
func (s *Stepper) State() Position {
	return s.position
}

// Target returns the position being moved to, or the current position when
// idle.
func (s *Stepper) Target() Position {
	if s.state == Idle {
		return s.position
	}
	return s.target
}

// Transition returns Idle or Moving.
func (s *Stepper) Transition() TransitionState {
	return s.state
}

// Moving reports whether a transition is in progress.
func (s *Stepper) Moving() bool {
	return s.state == Moving
}

// Deadline returns the completion deadline of the current transition, or
// zero while idle.
func (s *Stepper) Deadline() clock.Millis {
	return s.deadline
}

// Steps returns N.
func (s *Stepper) Steps() int {
	return s.cfg.Steps
}

// Counts returns a copy of the activity counters.
func (s *Stepper) Counts() StepperCounts {
	return s.counts
}
