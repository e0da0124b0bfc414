// Command actuator-node drives window, door and gate relays from MQTT
// commands and publishes their confirmed state.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/sweeney/actuator-node/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// flags holds the values shared by every subcommand.
type flags struct {
	configPath string
	verbosity  int
	broker     string
	baseTopic  string
	httpAddr   string
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	command := &cobra.Command{
		Use:   "actuator-node",
		Short: "Relay actuator node",
		Long: `actuator-node drives a stepped window opener, a pulsed door strike and a
ventilation gate monitor over GPIO, taking commands from and reporting
state to MQTT.

Write a settings file, edit it, then run the daemon:
    actuator-node config init
    actuator-node run
`,
		SilenceUsage: true,
	}

	pf := command.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", config.DefaultPath, "settings file")
	pf.IntVarP(&f.verbosity, "verbose", "v", 0, "log verbosity (0 info, 1 transitions)")
	pf.StringVar(&f.broker, "broker", "", "MQTT broker host or host:port (overrides the settings file)")
	pf.StringVar(&f.baseTopic, "base-topic", "", "MQTT base topic (overrides the settings file)")
	pf.StringVar(&f.httpAddr, "http", "", `HTTP status address (overrides the settings file, "off" disables)`)

	command.AddCommand(newRunCommand(f))
	command.AddCommand(newStateCommand(f))
	command.AddCommand(newConfigCommand(f))
	return command
}

func newLogger(verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// loadConfig reads the settings file and applies command line overrides.
// A missing file yields the defaults when allowMissing is set.
func (f *flags) loadConfig(allowMissing bool) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
		cfg = config.Default()
	}
	if err := f.apply(&cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *flags) apply(cfg *config.Config) error {
	if f.broker != "" {
		host, port, err := net.SplitHostPort(f.broker)
		if err != nil {
			host, port = f.broker, cfg.MQTT.Port
		}
		if host == "" {
			return fmt.Errorf("--broker %q: missing host", f.broker)
		}
		cfg.MQTT.Server, cfg.MQTT.Port = host, port
	}
	if f.baseTopic != "" {
		cfg.MQTT.BaseTopic = f.baseTopic
	}
	switch f.httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = f.httpAddr
	}
	return nil
}
