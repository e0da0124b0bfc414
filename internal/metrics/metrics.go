// Package metrics exposes the node's status as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/actuator-node/internal/status"
)

const namespace = "actuator"

var (
	upDesc            = prometheus.NewDesc(namespace+"_uptime_seconds", "Seconds since the daemon started.", nil, nil)
	mqttDesc          = prometheus.NewDesc(namespace+"_mqtt_connected", "1 when the MQTT connection is up.", nil, nil)
	notificationsDesc = prometheus.NewDesc(namespace+"_notifications_total", "Confirmed transitions published to MQTT.", nil, nil)

	windowPositionDesc    = prometheus.NewDesc(namespace+"_window_position", "Last confirmed window position.", nil, nil)
	windowMovingDesc      = prometheus.NewDesc(namespace+"_window_moving", "1 while a window transition is in progress.", nil, nil)
	windowTransitionsDesc = prometheus.NewDesc(namespace+"_window_transitions_total", "Completed window transitions.", nil, nil)
	windowExtensionsDesc  = prometheus.NewDesc(namespace+"_window_close_extensions_total", "Close extensions granted because the closed sensor had not confirmed.", nil, nil)
	windowRejectedDesc    = prometheus.NewDesc(namespace+"_window_rejected_commands_total", "Window commands absorbed as no-ops.", nil, nil)

	doorEnergizedDesc = prometheus.NewDesc(namespace+"_door_energized", "1 while the door relay is driven.", nil, nil)
	doorPulsesDesc    = prometheus.NewDesc(namespace+"_door_pulses_total", "Completed door pulses.", nil, nil)

	gateOccupiedDesc  = prometheus.NewDesc(namespace+"_gate_occupied", "Committed gate occupancy.", nil, nil)
	gatePendingDesc   = prometheus.NewDesc(namespace+"_gate_pending", "1 while a gate change waits out the sustain window.", nil, nil)
	gateChangesDesc   = prometheus.NewDesc(namespace+"_gate_changes_total", "Committed gate changes.", nil, nil)
	gateCancelledDesc = prometheus.NewDesc(namespace+"_gate_cancelled_total", "Gate changes that reverted before the sustain window.", nil, nil)
)

// Collector reads a status.Tracker on every scrape.
type Collector struct {
	tracker *status.Tracker
}

// NewCollector returns a Collector for tracker.
func NewCollector(tracker *status.Tracker) *Collector {
	return &Collector{tracker: tracker}
}

// NewRegistry returns a registry holding a Collector for tracker.
func NewRegistry(tracker *status.Tracker) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(tracker))
	return reg
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		upDesc, mqttDesc, notificationsDesc,
		windowPositionDesc, windowMovingDesc, windowTransitionsDesc, windowExtensionsDesc, windowRejectedDesc,
		doorEnergizedDesc, doorPulsesDesc,
		gateOccupiedDesc, gatePendingDesc, gateChangesDesc, gateCancelledDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Actuators that are not fitted
// produce no series.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.tracker.Snapshot()

	gauge(ch, upDesc, snap.Uptime().Seconds())
	gauge(ch, mqttDesc, b2f(snap.MQTTConnected))
	counter(ch, notificationsDesc, snap.Notifications)

	if w := snap.Window; w != nil {
		gauge(ch, windowPositionDesc, float64(w.Position))
		gauge(ch, windowMovingDesc, b2f(w.Moving))
		counter(ch, windowTransitionsDesc, w.Transitions)
		counter(ch, windowExtensionsDesc, w.Extensions)
		counter(ch, windowRejectedDesc, w.Rejected)
	}
	if d := snap.Door; d != nil {
		gauge(ch, doorEnergizedDesc, b2f(d.Energized))
		counter(ch, doorPulsesDesc, d.Pulses)
	}
	if g := snap.Gate; g != nil {
		gauge(ch, gateOccupiedDesc, b2f(g.Occupied))
		gauge(ch, gatePendingDesc, b2f(g.Pending))
		counter(ch, gateChangesDesc, g.Changes)
		counter(ch, gateCancelledDesc, g.Cancelled)
	}
}

func gauge(ch chan<- prometheus.Metric, d *prometheus.Desc, v float64) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
}

func counter(ch chan<- prometheus.Metric, d *prometheus.Desc, n int) {
	ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(n))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
