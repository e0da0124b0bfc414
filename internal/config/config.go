// Package config loads and saves the node's settings file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/actuator-node/internal/actuator"
	"github.com/sweeney/actuator-node/internal/gpio"
)

// DefaultPath is where the daemon looks for its settings file.
const DefaultPath = "/etc/actuator-node/config.yaml"

// Config is the full settings file. Actuator sections are optional; a
// present section enables that actuator.
type Config struct {
	MQTT   MQTT          `yaml:"mqtt"`
	HTTP   string        `yaml:"http"`
	Chip   string        `yaml:"chip"`
	Loop   time.Duration `yaml:"loop"`
	Ping   time.Duration `yaml:"ping"`
	Window *Window       `yaml:"window,omitempty"`
	Door   *Door         `yaml:"door,omitempty"`
	Gate   *Gate         `yaml:"gate,omitempty"`
}

// MQTT holds broker connection settings.
type MQTT struct {
	Server    string `yaml:"server"`
	Port      string `yaml:"port"`
	ClientID  string `yaml:"client_id"`
	User      string `yaml:"user,omitempty"`
	Pass      string `yaml:"pass,omitempty"`
	BaseTopic string `yaml:"base_topic"`
}

// Broker returns the paho broker URL.
func (m MQTT) Broker() string {
	return "tcp://" + net.JoinHostPort(m.Server, m.Port)
}

// Window configures the stepped window opener.
type Window struct {
	OpenPin         int           `yaml:"open_pin"`
	ClosePin        int           `yaml:"close_pin"`
	SensorPin       int           `yaml:"sensor_pin"`
	RelayActiveLow  bool          `yaml:"relay_active_low"`
	SensorActiveLow bool          `yaml:"sensor_active_low"`
	SensorDebounce  time.Duration `yaml:"sensor_debounce"`
	Steps           int           `yaml:"steps"`
	OpenStep        time.Duration `yaml:"open_step"`
	CloseStep       time.Duration `yaml:"close_step"`
	FullClose       time.Duration `yaml:"full_close"`
	CloseMargin     time.Duration `yaml:"close_margin"`
	CloseExtension  time.Duration `yaml:"close_extension"`
}

// Stepper returns the actuator timing for this window.
func (w Window) Stepper() actuator.StepperConfig {
	return actuator.StepperConfig{
		Steps:          w.Steps,
		OpenStep:       w.OpenStep,
		CloseStep:      w.CloseStep,
		FullClose:      w.FullClose,
		CloseMargin:    w.CloseMargin,
		CloseExtension: w.CloseExtension,
	}
}

// Door configures the door strike.
type Door struct {
	RelayPin       int           `yaml:"relay_pin"`
	RelayActiveLow bool          `yaml:"relay_active_low"`
	Pulse          time.Duration `yaml:"pulse"`
}

// Gate configures the ventilation gate monitor.
type Gate struct {
	Pins            []int         `yaml:"pins"`
	SensorActiveLow bool          `yaml:"sensor_active_low"`
	SensorDebounce  time.Duration `yaml:"sensor_debounce"`
	Poll            time.Duration `yaml:"poll"`
	Sustain         time.Duration `yaml:"sustain"`
}

// Debouncer returns the actuator timing for this gate.
func (g Gate) Debouncer() actuator.GateConfig {
	return actuator.GateConfig{Poll: g.Poll, Sustain: g.Sustain}
}

// Default returns the settings used when no file exists. No actuators are
// enabled.
func Default() Config {
	return Config{
		MQTT: MQTT{
			Server:    "localhost",
			Port:      "1883",
			BaseTopic: "flat/bedroom1",
		},
		HTTP: ":80",
		Chip: gpio.DefaultChip,
		Loop: 50 * time.Millisecond,
		Ping: 30 * time.Second,
	}
}

// DefaultWindow returns the timing of the three-step ventilation window:
// 23 s full open, 25 s full close and 5 s of additional run time.
func DefaultWindow() Window {
	return Window{
		OpenPin:         17,
		ClosePin:        27,
		SensorPin:       22,
		SensorActiveLow: true,
		SensorDebounce:  10 * time.Millisecond,
		Steps:           3,
		OpenStep:        stepOf(23*time.Second, 3),
		CloseStep:       stepOf(25*time.Second, 3),
		FullClose:       25 * time.Second,
		CloseMargin:     5 * time.Second,
		CloseExtension:  5 * time.Second,
	}
}

// stepOf splits a full travel time into whole-millisecond steps, rounding
// up by one millisecond so N steps never fall short of full travel.
func stepOf(full time.Duration, steps int) time.Duration {
	return (full / time.Duration(steps)).Truncate(time.Millisecond) + time.Millisecond
}

// DefaultDoor returns a 10 s door strike pulse.
func DefaultDoor() Door {
	return Door{RelayPin: 23, Pulse: 10 * time.Second}
}

// DefaultGate returns two gate sensors polled every 2 s with a 20 s
// sustain window.
func DefaultGate() Gate {
	return Gate{
		Pins:            []int{5, 6},
		SensorActiveLow: true,
		SensorDebounce:  10 * time.Millisecond,
		Poll:            2 * time.Second,
		Sustain:         20 * time.Second,
	}
}

// Example returns Default with every actuator enabled.
func Example() Config {
	c := Default()
	w, d, g := DefaultWindow(), DefaultDoor(), DefaultGate()
	c.Window, c.Door, c.Gate = &w, &d, &g
	return c
}

// Load reads path over Default. Actuator sections are filled from their
// defaults before the file's values are applied, so a file only needs to
// name what differs.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a settings document over Default.
func Parse(data []byte) (Config, error) {
	var probe struct {
		Window *yaml.Node `yaml:"window"`
		Door   *yaml.Node `yaml:"door"`
		Gate   *yaml.Node `yaml:"gate"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	c := Default()
	if probe.Window != nil {
		w := DefaultWindow()
		c.Window = &w
	}
	if probe.Door != nil {
		d := DefaultDoor()
		c.Door = &d
	}
	if probe.Gate != nil {
		g := DefaultGate()
		c.Gate = &g
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Save writes c to path as YAML.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ClientID returns the configured MQTT client id, or a random one derived
// from a UUID when none is set.
func (c Config) ClientID() string {
	if c.MQTT.ClientID != "" {
		return c.MQTT.ClientID
	}
	return "actuator-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Validate checks the settings for values the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.MQTT.Server == "" {
		errs = append(errs, errors.New("mqtt.server is required"))
	}
	if c.MQTT.Port == "" {
		errs = append(errs, errors.New("mqtt.port is required"))
	}
	if c.MQTT.BaseTopic == "" || strings.ContainsAny(c.MQTT.BaseTopic, "+#") {
		errs = append(errs, fmt.Errorf("mqtt.base_topic %q is not a valid topic prefix", c.MQTT.BaseTopic))
	}
	if c.Loop <= 0 {
		errs = append(errs, errors.New("loop must be positive"))
	}
	if c.Ping < 0 {
		errs = append(errs, errors.New("ping must not be negative"))
	}
	if c.Window == nil && c.Door == nil && c.Gate == nil {
		errs = append(errs, errors.New("no actuator configured (window, door or gate)"))
	}

	if c.Window != nil {
		if err := c.Window.Stepper().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("window: %w", err))
		}
		if c.Window.OpenPin == c.Window.ClosePin {
			errs = append(errs, errors.New("window: open and close relays must use different pins"))
		}
	}
	if c.Door != nil && c.Door.Pulse <= 0 {
		errs = append(errs, errors.New("door: pulse must be positive"))
	}
	if c.Gate != nil {
		if len(c.Gate.Pins) == 0 {
			errs = append(errs, errors.New("gate: at least one pin is required"))
		}
		if c.Gate.Poll <= 0 || c.Gate.Sustain < 0 {
			errs = append(errs, errors.New("gate: poll must be positive and sustain not negative"))
		}
	}

	return errors.Join(errs...)
}
