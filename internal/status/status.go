// Package status provides a thread-safe status tracker for the actuator
// node. The host loop writes it; HTTP handlers, metrics and MQTT status
// payloads read snapshots of it.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	LoopMs    int64
	PingMs    int64
	Broker    string
	BaseTopic string
	ClientID  string
	HTTPAddr  string
}

// Window is the state of the stepped window opener.
type Window struct {
	Position    int
	Target      int
	Steps       int
	Moving      bool
	Transitions int
	Extensions  int
	Rejected    int
}

// Door is the state of the door strike.
type Door struct {
	Energized bool
	Triggers  int
	Pulses    int
}

// Gate is the state of the ventilation gate monitor.
type Gate struct {
	Occupied  bool
	Pending   bool
	Changes   int
	Cancelled int
}

// Devices holds the configured actuators; nil means not fitted.
type Devices struct {
	Window *Window
	Door   *Door
	Gate   *Gate
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Devices
	Ready         bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Notifications int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the wall clock used to stamp snapshots. For tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update replaces the actuator states. Called from the host loop on every
// iteration. The structs are copied so the caller may reuse them.
func (t *Tracker) Update(d Devices) {
	d = d.clone()
	t.mu.Lock()
	t.snap.Devices = d
	t.mu.Unlock()
}

// SetReady marks the node as having announced itself.
func (t *Tracker) SetReady(ready bool) {
	t.mu.Lock()
	t.snap.Ready = ready
	t.mu.Unlock()
}

// AddNotification counts one confirmed transition published to MQTT.
func (t *Tracker) AddNotification() {
	t.mu.Lock()
	t.snap.Notifications++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Devices = s.Devices.clone()
	s.Now = now()
	return s
}

func (d Devices) clone() Devices {
	var out Devices
	if d.Window != nil {
		w := *d.Window
		out.Window = &w
	}
	if d.Door != nil {
		dr := *d.Door
		out.Door = &dr
	}
	if d.Gate != nil {
		g := *d.Gate
		out.Gate = &g
	}
	return out
}
