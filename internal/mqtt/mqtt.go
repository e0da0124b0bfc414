// Package mqtt provides MQTT publishing and command intake with abstraction
// for testing.
package mqtt

import "strings"

// Topic names below the base topic.
const (
	NameWindow = "window"
	NameDoor   = "door"
	NameGate   = "gate"
	NamePing   = "ping"
	NameDevice = "state"
	NameStatus = "status"
)

// Command topic suffixes.
const (
	SuffixSet   = "set"
	SuffixForce = "force"
)

// Payload words.
const (
	PayloadOn      = "on"
	PayloadOff     = "off"
	PayloadOpen    = "open"
	PayloadClose   = "close"
	PayloadReady   = "ready"
	PayloadOK      = "ok"
	PayloadPing    = "ping"
	PayloadOffline = "offline"
)

// Topics builds topic names under a base topic such as "flat/bedroom1".
type Topics struct {
	Base string
}

// State returns the state topic of an actuator, e.g. "flat/bedroom1/window".
func (t Topics) State(name string) string {
	return t.Base + "/" + name
}

// Device returns the lifecycle topic (ready/ok/ping/offline).
func (t Topics) Device() string {
	return t.State(NameDevice)
}

// Status returns the topic carrying full JSON status snapshots.
func (t Topics) Status() string {
	return t.State(NameStatus)
}

// Command returns the command topic of an actuator.
func (t Topics) Command(name string, force bool) string {
	if force {
		return t.State(name) + "/" + SuffixForce
	}
	return t.State(name) + "/" + SuffixSet
}

// CommandFilters returns the subscriptions covering every command topic.
func (t Topics) CommandFilters() []string {
	return []string{
		t.Base + "/+/" + SuffixSet,
		t.Base + "/+/" + SuffixForce,
	}
}

// Message is one MQTT publication.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Handler receives inbound messages. It runs on the client's goroutine.
type Handler func(topic string, payload []byte)

// Publisher publishes and subscribes on the broker.
type Publisher interface {
	// Publish sends a message. It must not block on the network; failures
	// are returned or logged but never crash the process.
	Publish(msg Message) error

	// Subscribe registers handler for a topic filter. Subscriptions survive
	// reconnects.
	Subscribe(filter string, handler Handler) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Match reports whether topic matches an MQTT subscription filter with
// "+" and "#" wildcards.
func Match(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
