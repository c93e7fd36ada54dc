package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"entitymatch/internal"
	"entitymatch/internal/pipeline"
	"entitymatch/internal/report"
)

func newMatchCommand(cc *commandContext) *cobra.Command {
	var optionsPath string
	var sets []string
	var jsonOut bool
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match one reference record against a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(optionsPath, sets)
			if err != nil {
				return err
			}

			doc, release, err := src.open(cmd.Context(), cc.config, cc.log())
			if err != nil {
				return err
			}
			defer release()

			m := pipeline.NewMatcher(pipeline.WithLogger(cc.log()))
			res := m.RunOptions(cmd.Context(), doc, opts, cc.config.Defaults())

			if jsonOut {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), res)
			}
			if !res.Success {
				return fmt.Errorf("match failed: %s", res.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&optionsPath, "options", "o", "", "Options file (YAML or JSON)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a source entity value (key=value)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	src.register(cmd)
	return cmd
}

func printResult(w io.Writer, res internal.Result) {
	status := "ok"
	if res.ErrorKind != "" {
		status = string(res.ErrorKind)
	}
	fmt.Fprintf(w, "status: %s  container: %s  items: %d", status, yesNo(res.ContainerFound), res.ItemsFound)
	if res.Strategy != "" {
		fmt.Fprintf(w, " (%s)", res.Strategy)
	}
	fmt.Fprintf(w, "  invocation: %s  %dms\n", res.InvocationID, res.DurationMs)
	if res.Error != "" {
		fmt.Fprintf(w, "error: %s\n", res.Error)
	}

	if len(res.Matches) > 0 {
		fmt.Fprintln(w, report.MatchTable(res))
	}
	if sel := res.SelectedMatch; sel != nil {
		fmt.Fprintf(w, "selected: item %d aggregate %.3f\n", sel.Index, sel.Aggregate)
		for _, name := range sortedKeys(sel.Fields) {
			fmt.Fprintf(w, "  %s: %s\n", name, sel.Fields[name])
		}
	}
	if a := res.ActionResult; a != nil {
		fmt.Fprintf(w, "action: %s success=%s", a.Kind, yesNo(a.Success))
		if a.Value != nil {
			fmt.Fprintf(w, " value=%q", *a.Value)
		}
		if a.Error != "" {
			fmt.Fprintf(w, " error=%s", a.Error)
		}
		fmt.Fprintln(w)
	}
	for _, r := range res.Rejected {
		fmt.Fprintf(w, "rejected: item %d %s\n", r.Index, r.Reason)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
