// Package actuator contains the timing and debounce state machines that
// drive relays from commanded state and sensor feedback.
//
// Nothing here blocks, spawns goroutines or touches MQTT, GPIO or the OS.
// Time comes from an injected clock.Clock and hardware is reached through
// the small Relay and Sensor interfaces, so every machine can be driven
// step by step from tests.
package actuator

import (
	"strings"

	"github.com/go-logr/logr"
)

// Position is a discrete window position in [0, Steps]. 0 is fully closed.
type Position int

// Closed is the fully closed position.
const Closed Position = 0

// TransitionState is the motion state of a Stepper.
type TransitionState int

const (
	Idle TransitionState = iota
	Moving
)

func (s TransitionState) String() string {
	if s == Moving {
		return "MOVING"
	}
	return "IDLE"
}

// Relay is a binary output. Set(true) energizes it.
type Relay interface {
	Set(on bool) error
}

// Sensor is a debounced binary input. Read reports whether the input is
// active.
type Sensor interface {
	Read() (bool, error)
}

// Signal identifies what changed when a machine notifies its sink.
// Values are bit flags so a sink can accept a set of them.
type Signal uint8

const (
	SignalDoorState Signal = 1 << iota
	SignalWindowState
	SignalGateState
	SignalDeviceReady
	SignalDeviceOK
	SignalPing
)

var signalNames = []struct {
	sig  Signal
	name string
}{
	{SignalDoorState, "DOOR_STATE"},
	{SignalWindowState, "WINDOW_STATE"},
	{SignalGateState, "GATE_STATE"},
	{SignalDeviceReady, "DEVICE_READY"},
	{SignalDeviceOK, "DEVICE_OK"},
	{SignalPing, "PING"},
}

func (s Signal) String() string {
	var parts []string
	for _, n := range signalNames {
		if s&n.sig != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Notifier receives confirmed transitions. It is called synchronously from
// Process and must return promptly. currentOnly asks the sink to publish
// just the signalled value rather than a full status payload.
type Notifier interface {
	Notify(sig Signal, currentOnly bool)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(sig Signal, currentOnly bool)

// Notify calls f.
func (f NotifierFunc) Notify(sig Signal, currentOnly bool) {
	f(sig, currentOnly)
}

// Nop is a Notifier that drops every notification.
var Nop Notifier = NotifierFunc(func(Signal, bool) {})

func orNop(n Notifier) Notifier {
	if n == nil {
		return Nop
	}
	return n
}

// Option configures a state machine.
type Option func(*options)

type options struct {
	log logr.Logger
}

// WithLogger sets the logger used for relay and sensor faults and for
// transition traces at V(1).
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
