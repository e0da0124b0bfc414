package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/actuator-node/internal/config"
	"github.com/sweeney/actuator-node/internal/gpio"
	"github.com/sweeney/actuator-node/internal/status"
)

func newStateCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the configured sensors and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(false)
			if err != nil {
				return err
			}
			chip, err := gpio.OpenChip(cfg.Chip)
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer chip.Close()
			return printState(cmd.OutOrStdout(), chip, cfg)
		},
	}
}

// printState reads every configured sensor once. Relays are not requested,
// so running it beside the daemon leaves the outputs alone.
func printState(w io.Writer, lines gpio.Lines, cfg config.Config) error {
	if cfg.Window == nil && cfg.Gate == nil {
		fmt.Fprintln(w, "no sensors configured")
		return nil
	}
	if win := cfg.Window; win != nil {
		s, err := lines.Input(windowSensorLine(win))
		if err != nil {
			return fmt.Errorf("window closed sensor: %w", err)
		}
		v, err := s.Read()
		if err != nil {
			return fmt.Errorf("read window closed sensor: %w", err)
		}
		fmt.Fprintf(w, "window closed (pin %d): %s\n", win.SensorPin, status.OnOff(v))
	}
	if g := cfg.Gate; g != nil {
		sensors, err := gateSensors(lines, g)
		if err != nil {
			return err
		}
		for i, s := range sensors {
			v, err := s.Read()
			if err != nil {
				return fmt.Errorf("read gate sensor pin %d: %w", g.Pins[i], err)
			}
			fmt.Fprintf(w, "gate (pin %d): %s\n", g.Pins[i], status.OnOff(v))
		}
	}
	return nil
}
