package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var importName string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a spec in the spec database",
	Long: `Check a spec file and store it as the newest revision in the spec database
configured by specs.database. The spec name defaults to the file name
without its .json extension.

Examples:
  specgate import ./specs/orders.json
  specgate import --name orders.v2 ./orders.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importName, "name", "n", "", "spec name (default: file name)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	document, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read spec: %w", err)
	}

	name := importName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	rev, err := a.ImportSpec(context.Background(), name, document)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %s (revision %s)\n", rev.Name, rev.ID)
	return nil
}
