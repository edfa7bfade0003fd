package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/merliot/sonar"
	"github.com/merliot/sonar/ultrasonic"
	"github.com/spf13/cobra"
)

func newReadCmd(cfg *Config) *cobra.Command {
	var count int
	var inches bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print distance readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if count <= 0 {
				return errors.New("count must be greater than 0")
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
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				s, err := sensor.Await(cmd.Context(), cfg.Timeout)
				stale := ""
				if errors.Is(err, ultrasonic.ErrStale) {
					stale = " (stale)"
				} else if err != nil {
					return err
				}
				if inches {
					fmt.Fprintf(out, "%d in%s\n", s.Inches(), stale)
				} else {
					fmt.Fprintf(out, "%d cm%s\n", s.Centimeters(), stale)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of readings")
	cmd.Flags().BoolVar(&inches, "inches", false, "print inches instead of centimeters")
	return cmd
}
