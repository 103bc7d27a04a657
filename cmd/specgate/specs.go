package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "List and manage stored specs",
	Long: `List the spec resources found in the configured spec directories, the spec
database and the built-in specs. Command schemas stored as separate resources
are listed too.

Commands:
  specgate specs                    # List spec names
  specgate specs revisions <name>   # Show the stored revisions of a spec
  specgate specs delete <name>      # Remove a spec from the spec database`,
	Args: cobra.NoArgs,
	RunE: runSpecs,
}

var specsRevisionsCmd = &cobra.Command{
	Use:   "revisions <name>",
	Short: "Show the stored revisions of a spec, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpecsRevisions,
}

var specsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove every stored revision of a spec",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpecsDelete,
}

func init() {
	rootCmd.AddCommand(specsCmd)
	specsCmd.AddCommand(specsRevisionsCmd)
	specsCmd.AddCommand(specsDeleteCmd)
}

func runSpecs(cmd *cobra.Command, args []string) error {
	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	names, err := a.SpecNames(context.Background())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runSpecsRevisions(cmd *cobra.Command, args []string) error {
	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	revs, err := a.SpecRevisions(context.Background(), args[0])
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		return fmt.Errorf("no stored revisions of %s", args[0])
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REVISION\tCREATED\tSIZE")
	fmt.Fprintln(w, "--------\t-------\t----")
	for _, rev := range revs {
		fmt.Fprintf(w, "%s\t%s\t%d\n", rev.ID, rev.CreatedAt.Format(time.RFC3339), len(rev.Document))
	}
	return w.Flush()
}

func runSpecsDelete(cmd *cobra.Command, args []string) error {
	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.DeleteSpec(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
