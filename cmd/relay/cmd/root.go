package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Real-time multi-room chat relay",
	Long: `Relay is a real-time multi-room chat server. Clients connect over a
websocket, join named rooms, post statements, and receive live updates from
everyone else in the room plus a historical backlog on join.

Use "relay [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
