package main

import (
	"os"
	"os/signal"

	"github.com/merliot/sonar"
	"github.com/merliot/sonar/console"
	"github.com/spf13/cobra"
)

func newConsoleCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive sensor console",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := sonar.NewLogger(os.Stderr, cfg.Verbose)
			sensor, closeSensor, err := openSensor(cfg, log)
			if err != nil {
				return err
			}
			defer closeSensor()
			if err := sensor.Init(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return console.New(sensor, cmd.OutOrStdout()).Run(ctx, cmd.InOrStdin())
		},
	}
}
