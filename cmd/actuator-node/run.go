package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sweeney/actuator-node/internal/clock"
	"github.com/sweeney/actuator-node/internal/config"
	"github.com/sweeney/actuator-node/internal/gpio"
	"github.com/sweeney/actuator-node/internal/metrics"
	"github.com/sweeney/actuator-node/internal/mqtt"
	"github.com/sweeney/actuator-node/internal/node"
	"github.com/sweeney/actuator-node/internal/status"
	"github.com/sweeney/actuator-node/internal/web"
)

// commandQueue bounds commands waiting for the host loop.
const commandQueue = 16

func newRunCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the actuator daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(false)
			if err != nil {
				return err
			}
			return run(cfg, newLogger(f.verbosity))
		},
	}
}

func run(cfg config.Config, log logr.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize GPIO
	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := chip.Close(); err != nil {
			log.Error(err, "release gpio")
		}
	}()

	// Initialize MQTT. The broker reports the node offline if it drops off.
	topics := mqtt.Topics{Base: cfg.MQTT.BaseTopic}
	clientID := cfg.ClientID()
	client, err := mqtt.NewRealClient(mqtt.ClientOptions{
		Broker:   cfg.MQTT.Broker(),
		ClientID: clientID,
		Username: cfg.MQTT.User,
		Password: cfg.MQTT.Pass,
		Will: &mqtt.Message{
			Topic:    topics.Device(),
			Payload:  []byte(mqtt.PayloadOffline),
			QoS:      1,
			Retained: true,
		},
		Log: log.WithName("mqtt"),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		LoopMs:    cfg.Loop.Milliseconds(),
		PingMs:    cfg.Ping.Milliseconds(),
		Broker:    cfg.MQTT.Broker(),
		BaseTopic: cfg.MQTT.BaseTopic,
		ClientID:  clientID,
		HTTPAddr:  cfg.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	n, err := node.New(client, clock.NewMonotonic(), node.Options{
		Topics:  topics,
		Tracker: tracker,
		Ping:    cfg.Ping,
		Log:     log.WithName("node"),
	})
	if err != nil {
		return err
	}
	if err := fitActuators(n, chip, cfg); err != nil {
		return fmt.Errorf("init actuators: %w", err)
	}

	cmds := make(chan mqtt.Command, commandQueue)
	if err := n.Commands(cmds); err != nil {
		return fmt.Errorf("init commands: %w", err)
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, metrics.NewRegistry(tracker), log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error(err, "http server")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTP)
	}

	log.Info("started", "loop", cfg.Loop, "broker", cfg.MQTT.Broker(), "base_topic", cfg.MQTT.BaseTopic, "client_id", clientID)

	ticker := time.NewTicker(cfg.Loop)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(n, log, ticker.C, cmds, sigCh)
}

// runLoop is the only goroutine that touches the actuators. Commands from
// the MQTT client arrive on cmds and are applied between ticks.
func runLoop(n *node.Node, log logr.Logger, tick <-chan time.Time, cmds <-chan mqtt.Command, sig <-chan os.Signal) error {
	n.Start()

	for {
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", s.String())
			n.Shutdown(signalName(s))
			return nil

		case cmd := <-cmds:
			n.Handle(cmd)

		case <-tick:
			n.Process()
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
