package main

import (
	"github.com/spf13/cobra"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/server"
)

// homemanctl serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run(loadConfig())
	},
}
