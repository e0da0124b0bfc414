package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Window        *WindowJSON  `json:"window,omitempty"`
	Door          *DoorJSON    `json:"door,omitempty"`
	Gate          *GateJSON    `json:"gate,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// WindowJSON is the JSON representation of the window opener.
type WindowJSON struct {
	Position    int  `json:"position"`
	Target      int  `json:"target"`
	Steps       int  `json:"steps"`
	Moving      bool `json:"moving"`
	Transitions int  `json:"transitions"`
	Extensions  int  `json:"close_extensions"`
	Rejected    int  `json:"rejected_commands"`
}

// DoorJSON is the JSON representation of the door strike.
type DoorJSON struct {
	State    string `json:"state"`
	Triggers int    `json:"triggers"`
	Pulses   int    `json:"pulses"`
}

// GateJSON is the JSON representation of the gate monitor.
type GateJSON struct {
	State     string `json:"state"`
	Pending   bool   `json:"pending"`
	Changes   int    `json:"changes"`
	Cancelled int    `json:"cancelled"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected     bool   `json:"connected"`
	Broker        string `json:"broker"`
	BaseTopic     string `json:"base_topic"`
	ClientID      string `json:"client_id"`
	Notifications int    `json:"notifications"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LoopMs   int64  `json:"loop_ms"`
	PingMs   int64  `json:"ping_ms"`
	HTTPAddr string `json:"http_addr"`
}

// OnOff renders a boolean actuator state as the MQTT payload word.
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected:     snap.MQTTConnected,
			Broker:        snap.Config.Broker,
			BaseTopic:     snap.Config.BaseTopic,
			ClientID:      snap.Config.ClientID,
			Notifications: snap.Notifications,
		},
		Config: ConfigJSON{
			LoopMs:   snap.Config.LoopMs,
			PingMs:   snap.Config.PingMs,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}

	if w := snap.Window; w != nil {
		inner.Window = &WindowJSON{
			Position:    w.Position,
			Target:      w.Target,
			Steps:       w.Steps,
			Moving:      w.Moving,
			Transitions: w.Transitions,
			Extensions:  w.Extensions,
			Rejected:    w.Rejected,
		}
	}
	if d := snap.Door; d != nil {
		inner.Door = &DoorJSON{State: OnOff(d.Energized), Triggers: d.Triggers, Pulses: d.Pulses}
	}
	if g := snap.Gate; g != nil {
		inner.Gate = &GateJSON{State: OnOff(g.Occupied), Pending: g.Pending, Changes: g.Changes, Cancelled: g.Cancelled}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT status publication.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
