package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWindowMatchesTravelTimes(t *testing.T) {
	w := DefaultWindow()
	assert.Equal(t, 7667*time.Millisecond, w.OpenStep)
	assert.Equal(t, 8334*time.Millisecond, w.CloseStep)
	assert.NoError(t, w.Stepper().Validate())
}

func TestExampleValidates(t *testing.T) {
	assert.NoError(t, Example().Validate())
}

func TestDefaultNeedsAnActuator(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actuator configured")
}

func TestParsePartialWindow(t *testing.T) {
	c, err := Parse([]byte(`
mqtt:
  server: broker.lan
  base_topic: flat/kitchen
window:
  steps: 4
  open_step: 5s
`))
	require.NoError(t, err)

	assert.Equal(t, "broker.lan", c.MQTT.Server)
	assert.Equal(t, "1883", c.MQTT.Port, "default kept")
	assert.Equal(t, "flat/kitchen", c.MQTT.BaseTopic)
	assert.Equal(t, "tcp://broker.lan:1883", c.MQTT.Broker())

	require.NotNil(t, c.Window)
	assert.Equal(t, 4, c.Window.Steps)
	assert.Equal(t, 5*time.Second, c.Window.OpenStep)
	assert.Equal(t, 25*time.Second, c.Window.FullClose, "window default kept")
	assert.Nil(t, c.Door)
	assert.Nil(t, c.Gate)
	assert.NoError(t, c.Validate())
}

func TestParseEmptySectionEnablesDefaults(t *testing.T) {
	c, err := Parse([]byte("door: {}\n"))
	require.NoError(t, err)
	require.NotNil(t, c.Door)
	assert.Equal(t, 10*time.Second, c.Door.Pulse)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("mqtt: [unterminated"))
	assert.Error(t, err)
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte("loop: soon\n"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	c := Example()
	c.MQTT.BaseTopic = "flat/#"
	c.Loop = 0
	c.Window.ClosePin = c.Window.OpenPin
	c.Gate.Pins = nil

	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"base_topic", "loop", "different pins", "at least one pin"} {
		assert.Contains(t, msg, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := Example()
	want.MQTT.User = "node"

	require.NoError(t, Save(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestClientID(t *testing.T) {
	c := Default()
	c.MQTT.ClientID = "bedroom1-node"
	assert.Equal(t, "bedroom1-node", c.ClientID())

	c.MQTT.ClientID = ""
	id := c.ClientID()
	assert.True(t, strings.HasPrefix(id, "actuator-"))
	assert.Len(t, id, len("actuator-")+8)
	assert.NotEqual(t, id, c.ClientID())
}
