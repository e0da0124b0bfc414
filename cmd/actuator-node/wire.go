package main

import (
	"fmt"

	"github.com/sweeney/actuator-node/internal/actuator"
	"github.com/sweeney/actuator-node/internal/config"
	"github.com/sweeney/actuator-node/internal/gpio"
	"github.com/sweeney/actuator-node/internal/node"
)

// fitActuators requests the lines of every configured actuator and adds
// the actuator to n.
func fitActuators(n *node.Node, lines gpio.Lines, cfg config.Config) error {
	if w := cfg.Window; w != nil {
		open, err := lines.Output(gpio.LineConfig{Pin: w.OpenPin, ActiveLow: w.RelayActiveLow})
		if err != nil {
			return fmt.Errorf("window open relay: %w", err)
		}
		closeRelay, err := lines.Output(gpio.LineConfig{Pin: w.ClosePin, ActiveLow: w.RelayActiveLow})
		if err != nil {
			return fmt.Errorf("window close relay: %w", err)
		}
		sensor, err := lines.Input(windowSensorLine(w))
		if err != nil {
			return fmt.Errorf("window closed sensor: %w", err)
		}
		hw := actuator.StepperHardware{ClosedSensor: sensor, Open: open, Close: closeRelay}
		if err := n.AddWindow(w.Stepper(), hw); err != nil {
			return err
		}
	}

	if d := cfg.Door; d != nil {
		relay, err := lines.Output(gpio.LineConfig{Pin: d.RelayPin, ActiveLow: d.RelayActiveLow})
		if err != nil {
			return fmt.Errorf("door relay: %w", err)
		}
		if err := n.AddDoor(d.Pulse, relay); err != nil {
			return err
		}
	}

	if g := cfg.Gate; g != nil {
		sensors, err := gateSensors(lines, g)
		if err != nil {
			return err
		}
		in := make([]actuator.Sensor, len(sensors))
		for i, s := range sensors {
			in[i] = s
		}
		if err := n.AddGate(g.Debouncer(), in); err != nil {
			return err
		}
	}
	return nil
}

func windowSensorLine(w *config.Window) gpio.LineConfig {
	return gpio.LineConfig{Pin: w.SensorPin, ActiveLow: w.SensorActiveLow, Debounce: w.SensorDebounce}
}

func gateSensors(lines gpio.Lines, g *config.Gate) ([]gpio.Input, error) {
	out := make([]gpio.Input, 0, len(g.Pins))
	for _, pin := range g.Pins {
		s, err := lines.Input(gpio.LineConfig{Pin: pin, ActiveLow: g.SensorActiveLow, Debounce: g.SensorDebounce})
		if err != nil {
			return nil, fmt.Errorf("gate sensor: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
