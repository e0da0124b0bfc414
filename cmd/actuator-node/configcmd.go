package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/actuator-node/internal/config"
)

func newConfigCommand(f *flags) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}
	command.AddCommand(newConfigInitCommand(f))
	command.AddCommand(newConfigShowCommand(f))
	return command
}

func newConfigInitCommand(f *flags) *cobra.Command {
	var force bool
	command := &cobra.Command{
		Use:   "init",
		Short: "Write an example settings file with every actuator enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(f, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.configPath)
			return nil
		},
	}
	command.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return command
}

func initConfig(f *flags, force bool) error {
	if !force {
		if _, err := os.Stat(f.configPath); err == nil {
			return fmt.Errorf("%s exists, use --force to overwrite", f.configPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg := config.Example()
	if err := f.apply(&cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return config.Save(f.configPath, cfg)
}

func newConfigShowCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(true)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
