package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [spec...]",
	Short: "Check specs the way registration would",
	Long: `Load each named spec, resolve its command schema references and check it
as registration would, without serving anything.

With no arguments, the specs of the configured handlers are checked.

Examples:
  specgate validate
  specgate validate core.echo my.service`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	out := cmd.OutOrStdout()
	failed := 0
	for _, c := range a.CheckSpecs(context.Background(), args) {
		if c.Err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n  %v\n", c.Name, c.Err)
			continue
		}
		fmt.Fprintf(out, "ok   %s\n", c.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d spec(s) invalid", failed)
	}
	return nil
}
