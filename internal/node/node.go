// Package node ties the actuator state machines to MQTT and the status
// tracker. A Node is the notification sink of every actuator it owns and
// is driven from a single host loop goroutine.
package node

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/actuator-node/internal/actuator"
	"github.com/sweeney/actuator-node/internal/clock"
	"github.com/sweeney/actuator-node/internal/mqtt"
	"github.com/sweeney/actuator-node/internal/status"
)

// Lifecycle event names carried in status payloads.
const (
	EventStartup  = "STARTUP"
	EventShutdown = "SHUTDOWN"
)

// Options configures a Node.
type Options struct {
	Topics  mqtt.Topics
	Tracker *status.Tracker

	// Ping is the interval between "ok" liveness publications. Zero disables.
	Ping time.Duration

	Log logr.Logger
}

// Node owns the actuators of one device and publishes their confirmed
// state. It is not safe for concurrent use; only Commands may be called
// from other goroutines.
type Node struct {
	window *actuator.Stepper
	door   *actuator.Pulser
	gate   *actuator.Gate

	pub     mqtt.Publisher
	conn    mqtt.ConnectionStatus
	topics  mqtt.Topics
	tracker *status.Tracker
	clk     clock.Clock
	log     logr.Logger

	ping     time.Duration
	nextPing clock.Millis
	started  bool
}

// New creates a Node with no actuators. Add them with AddWindow, AddDoor
// and AddGate before calling Start.
func New(pub mqtt.Publisher, clk clock.Clock, o Options) (*Node, error) {
	if pub == nil {
		return nil, errors.New("node: publisher is required")
	}
	if o.Topics.Base == "" {
		return nil, errors.New("node: base topic is required")
	}
	if o.Ping < 0 {
		return nil, fmt.Errorf("node: ping interval %v is negative", o.Ping)
	}
	log := o.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	n := &Node{
		pub:     pub,
		topics:  o.Topics,
		tracker: o.Tracker,
		clk:     clk,
		ping:    o.Ping,
		log:     log,
	}
	if cs, ok := pub.(mqtt.ConnectionStatus); ok {
		n.conn = cs
	}
	return n, nil
}

// AddWindow fits a stepped window opener.
func (n *Node) AddWindow(cfg actuator.StepperConfig, hw actuator.StepperHardware) error {
	s, err := actuator.NewStepper(cfg, hw, n.clk, n, actuator.WithLogger(n.log.WithName(mqtt.NameWindow)))
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	n.window = s
	return nil
}

// AddDoor fits a pulsed door strike.
func (n *Node) AddDoor(pulse time.Duration, relay actuator.Relay) error {
	p, err := actuator.NewPulser(pulse, relay, n.clk, n, actuator.WithLogger(n.log.WithName(mqtt.NameDoor)))
	if err != nil {
		return fmt.Errorf("door: %w", err)
	}
	n.door = p
	return nil
}

// AddGate fits a debounced occupancy gate.
func (n *Node) AddGate(cfg actuator.GateConfig, sensors []actuator.Sensor) error {
	g, err := actuator.NewGate(cfg, sensors, n.clk, n, actuator.WithLogger(n.log.WithName(mqtt.NameGate)))
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	n.gate = g
	return nil
}

// Window returns the window opener, or nil when none is fitted.
func (n *Node) Window() *actuator.Stepper { return n.window }

// Door returns the door strike, or nil when none is fitted.
func (n *Node) Door() *actuator.Pulser { return n.door }

// Gate returns the gate monitor, or nil when none is fitted.
func (n *Node) Gate() *actuator.Gate { return n.gate }

// Commands subscribes to every command topic and forwards decoded commands
// to out. The handler runs on the MQTT client's goroutine, so it never
// touches the actuators; a full channel drops the command.
func (n *Node) Commands(out chan<- mqtt.Command) error {
	handler := func(topic string, payload []byte) {
		cmd, err := mqtt.ParseCommand(n.topics, topic, payload)
		if err != nil {
			n.log.Info("ignoring command", "topic", topic, "error", err.Error())
			return
		}
		select {
		case out <- cmd:
		default:
			n.log.Info("command queue full, dropping", "topic", topic)
		}
	}
	for _, filter := range n.topics.CommandFilters() {
		if err := n.pub.Subscribe(filter, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", filter, err)
		}
	}
	return nil
}

// Start re-homes the window with a forced close and announces the device.
func (n *Node) Start() {
	if n.window != nil {
		n.window.SetState(actuator.Closed, true)
	}
	n.started = true
	n.nextPing = n.clk.Now().Add(n.ping)
	if n.tracker != nil {
		n.tracker.SetReady(true)
	}
	n.refresh()
	n.Notify(actuator.SignalDeviceReady, false)
	n.log.Info("started", "window", n.window != nil, "door", n.door != nil, "gate", n.gate != nil)
}

// Handle applies one decoded command. It reports whether the command
// changed anything.
func (n *Node) Handle(cmd mqtt.Command) bool {
	switch cmd.Kind {
	case mqtt.CommandWindow:
		if n.window == nil {
			n.log.Info("no window fitted, ignoring command")
			return false
		}
		target := actuator.Position(cmd.Position)
		if cmd.FullyOpen {
			target = actuator.Position(n.window.Steps())
		}
		ok := n.window.SetState(target, cmd.Force)
		n.log.V(1).Info("window command", "target", int(target), "force", cmd.Force, "accepted", ok)
		return ok

	case mqtt.CommandDoor:
		if n.door == nil {
			n.log.Info("no door fitted, ignoring command")
			return false
		}
		if !cmd.On {
			return false
		}
		n.door.Trigger()
		n.Notify(actuator.SignalDoorState, true)
		return true

	case mqtt.CommandPing:
		n.Notify(actuator.SignalPing, false)
		return true
	}
	n.log.Info("unknown command", "kind", cmd.Kind.String())
	return false
}

// Process advances every actuator, emits the periodic "ok" and refreshes
// the status tracker. Called once per host loop iteration.
func (n *Node) Process() {
	if n.window != nil {
		n.window.Process()
	}
	if n.door != nil {
		n.door.Process()
	}
	if n.gate != nil {
		n.gate.Process()
	}

	if n.started && n.ping > 0 {
		now := n.clk.Now()
		if now.Reached(n.nextPing) {
			n.nextPing = now.Add(n.ping)
			n.Notify(actuator.SignalDeviceOK, true)
		}
	}

	n.refresh()
}

// Shutdown publishes a final status event and marks the device offline.
func (n *Node) Shutdown(reason string) {
	n.refresh()
	if n.tracker != nil {
		n.tracker.SetReady(false)
		n.publish(mqtt.Message{
			Topic:   n.topics.Status(),
			Payload: status.FormatStatusEvent(n.tracker.Snapshot(), EventShutdown, reason),
		})
	}
	n.publish(mqtt.Message{Topic: n.topics.Device(), Payload: []byte(mqtt.PayloadOffline), Retained: true})
	n.log.Info("shutdown", "reason", reason)
}

// Notify implements actuator.Notifier. Each signalled value is published
// on its own topic; unless currentOnly, a status snapshot follows.
func (n *Node) Notify(sig actuator.Signal, currentOnly bool) {
	if sig&actuator.SignalWindowState != 0 && n.window != nil {
		n.publishState(mqtt.NameWindow, strconv.Itoa(int(n.window.State())))
	}
	if sig&actuator.SignalDoorState != 0 && n.door != nil {
		n.publishState(mqtt.NameDoor, status.OnOff(n.door.Energized()))
	}
	if sig&actuator.SignalGateState != 0 && n.gate != nil {
		n.publishState(mqtt.NameGate, status.OnOff(n.gate.State()))
	}
	if sig&actuator.SignalDeviceReady != 0 {
		n.publish(mqtt.Message{Topic: n.topics.Device(), Payload: []byte(mqtt.PayloadReady), Retained: true})
	}
	if sig&actuator.SignalDeviceOK != 0 {
		n.publish(mqtt.Message{Topic: n.topics.Device(), Payload: []byte(mqtt.PayloadOK), Retained: true})
	}
	if sig&actuator.SignalPing != 0 {
		n.publish(mqtt.Message{Topic: n.topics.Device(), Payload: []byte(mqtt.PayloadPing)})
	}

	if !currentOnly && n.tracker != nil {
		n.refresh()
		event := sig.String()
		if sig&actuator.SignalDeviceReady != 0 {
			event = EventStartup
		}
		n.publish(mqtt.Message{
			Topic:   n.topics.Status(),
			Payload: status.FormatStatusEvent(n.tracker.Snapshot(), event, ""),
		})
	}
}

func (n *Node) publishState(name, value string) {
	n.log.Info("state", "actuator", name, "value", value)
	n.publish(mqtt.Message{Topic: n.topics.State(name), Payload: []byte(value), Retained: true})
	if n.tracker != nil {
		n.tracker.AddNotification()
	}
}

func (n *Node) publish(msg mqtt.Message) {
	if err := n.pub.Publish(msg); err != nil {
		n.log.Error(err, "publish failed", "topic", msg.Topic)
	}
}

// Devices returns the current state of the fitted actuators.
func (n *Node) Devices() status.Devices {
	var d status.Devices
	if s := n.window; s != nil {
		c := s.Counts()
		d.Window = &status.Window{
			Position:    int(s.State()),
			Target:      int(s.Target()),
			Steps:       s.Steps(),
			Moving:      s.Moving(),
			Transitions: c.Transitions,
			Extensions:  c.Extensions,
			Rejected:    c.Rejected,
		}
	}
	if p := n.door; p != nil {
		c := p.Counts()
		d.Door = &status.Door{Energized: p.Energized(), Triggers: c.Triggers, Pulses: c.Pulses}
	}
	if g := n.gate; g != nil {
		c := g.Counts()
		d.Gate = &status.Gate{Occupied: g.State(), Pending: g.Pending(), Changes: c.Changes, Cancelled: c.Cancelled}
	}
	return d
}

func (n *Node) refresh() {
	if n.tracker == nil {
		return
	}
	n.tracker.Update(n.Devices())
	if n.conn != nil {
		n.tracker.SetMQTTConnected(n.conn.IsConnected())
	}
}
