package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/specgate/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the specgate HTTP server.

The server will:
  - Load configuration from specgate.yaml (or --config), falling back to
    SPECGATE_* environment variables
  - Read specs from the configured directories, the spec database and the
    built-in specs, in that order
  - Register every configured handler
  - Reload on SIGHUP and, when specs.watch is set, when spec files change

Examples:
  specgate serve
  specgate serve --config /etc/specgate/config.yaml
  SPECGATE_SERVER_PORT=9000 specgate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.New(bootstrap.Options{ConfigPath: cfgFile, Version: version})
	if err != nil {
		return err
	}
	return a.Run()
}
