package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/specgate/bootstrap"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "specgate",
	Short: "Spec-driven request dispatcher",
	Long: `specgate routes HTTP requests to operations described by JSON specs.

Every operation is bound under the methods and path templates its spec
declares, validates command payloads against the spec's JSON schemas and
answers introspection requests at <path>/_introspect.

Commands:
  specgate serve     # Start the HTTP server
  specgate validate  # Check specs without serving
  specgate routes    # Print the routing table
  specgate import    # Store a spec in the spec database`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "specgate.yaml", "config file path")
}

// newQuietApp builds the application for one-shot commands, logging only
// warnings and errors to stderr.
func newQuietApp() (*bootstrap.App, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	return bootstrap.New(bootstrap.Options{ConfigPath: cfgFile, Logger: &logger, Version: version})
}
