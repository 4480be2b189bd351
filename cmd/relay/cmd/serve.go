package cmd

import (
	"github.com/nfrund/relay/internal/server"
	"github.com/spf13/cobra"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat relay server",
	Run: func(cmd *cobra.Command, args []string) {
		s := server.New()
		s.RegisterRoutes()
		if addr == "" {
			addr = s.Cfg.Addr
		}
		s.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to RELAY_ADDR or :8080)")
	rootCmd.AddCommand(serveCmd)
}
