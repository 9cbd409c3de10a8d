// Package cmd defines the floormon CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "floormon",
		Short: "Round-based progress tracker for the factory floor.",
		Long: `floormon tracks station and WIP completion events in production rounds,
persists everything to JSON files, and streams live updates to connected
dashboards over WebSocket.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults and FLOORMON_* env)")
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
