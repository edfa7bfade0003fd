package main

import (
	"fmt"
	"os"

	"github.com/merliot/sonar"
	"github.com/spf13/cobra"
)

// set by -ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := sonar.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:           "sonar",
		Short:         "Ultrasonic range finder",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfg.bindSensor(rootCmd)

	rootCmd.AddCommand(
		newServeCmd(&cfg),
		newConsoleCmd(&cfg),
		newReadCmd(&cfg),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sonar %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
