package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/newtonopt/internal/optimization/functions"
)

func newFunctionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the objectives available to minimize",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIMENSION\tDEFAULT START\tDESCRIPTION")
			for _, def := range functions.Default().Definitions() {
				dim := "any"
				if def.Dimension > 0 {
					dim = fmt.Sprint(def.Dimension)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Name, dim, formatVector(def.DefaultStart), def.Description)
			}
			return w.Flush()
		},
	}
}
