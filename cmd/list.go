package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uiverify/internal/scenario"
)

func newListCmd() *cobra.Command {
	var (
		file    string
		verbose bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenarios that can be run",
		Args:  cobra.NoArgs,
		// Listing reads no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromFile []scenario.Scenario
			if file != "" {
				var err error
				if fromFile, err = scenario.LoadFile(file); err != nil {
					return err
				}
			}
			return printScenarios(cmd.OutOrStdout(), scenario.Builtins(), fromFile, verbose)
		},
	}
	listCmd.Flags().StringVarP(&file, "scenario-file", "s", "", "Also list scenarios from this YAML file")
	listCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every step")
	return listCmd
}

func printScenarios(out io.Writer, builtins, fromFile []scenario.Scenario, verbose bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tPATH\tSTEPS\tDESCRIPTION")

	shadowed := make(map[string]bool, len(fromFile))
	for _, sc := range fromFile {
		shadowed[sc.Name] = true
	}

	type entry struct {
		sc     scenario.Scenario
		source string
	}
	var entries []entry
	for _, sc := range fromFile {
		entries = append(entries, entry{sc, "file"})
	}
	for _, sc := range builtins {
		if !shadowed[sc.Name] {
			entries = append(entries, entry{sc, "builtin"})
		}
	}

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.sc.Name, e.source, e.sc.Path, len(e.sc.Steps), e.sc.Description)
		if verbose {
			for i, step := range e.sc.Steps {
				fmt.Fprintf(tw, "\t\t\t%d\t%s\n", i+1, step)
			}
		}
	}
	return tw.Flush()
}
