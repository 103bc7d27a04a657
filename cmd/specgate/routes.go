package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routesMethod string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the routing table",
	Long: `Register the configured handlers and print every bound route, including
the introspection routes generated for each operation.`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVarP(&routesMethod, "method", "m", "", "only list routes of this HTTP method")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	a, err := newQuietApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.RegisterHandlers(context.Background()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	base := a.Config().Server.BasePath
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tINTROSPECT\tDESCRIPTION")
	fmt.Fprintln(w, "------\t----\t----------\t-----------")

	for _, r := range a.Registry.Routes() {
		if routesMethod != "" && r.Method != routesMethod {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", r.Method, base+r.Template, r.Introspect, r.Description)
	}
	return w.Flush()
}
