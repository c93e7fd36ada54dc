package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"entitymatch/internal"
	"entitymatch/internal/pipeline"
	"entitymatch/internal/report"
)

type locatedItem struct {
	Index  int                                `json:"index"`
	Fields map[string]internal.ExtractedField `json:"fields"`
}

type locateOutput struct {
	ContainerFound bool                 `json:"containerFound"`
	Strategy       string               `json:"strategy,omitempty"`
	ItemsFound     int                  `json:"itemsFound"`
	Items          []locatedItem        `json:"items"`
	Rejected       []internal.Rejection `json:"rejected,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
}

func newLocateCommand(cc *commandContext) *cobra.Command {
	var optionsPath string
	var sets []string
	var jsonOut bool
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Show the items and fields the matcher would compare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(optionsPath, sets)
			if err != nil {
				return err
			}
			plan, err := opts.Plan(cc.config.Defaults())
			if err != nil {
				return err
			}

			doc, release, err := src.open(cmd.Context(), cc.config, cc.log())
			if err != nil {
				return err
			}
			defer release()

			m := pipeline.NewMatcher(pipeline.WithLogger(cc.log()))
			plan, located, extraction, err := m.Inspect(cmd.Context(), doc, plan)
			if err != nil {
				return err
			}

			out := locateOutput{
				ContainerFound: located.ContainerFound,
				Strategy:       located.Strategy,
				ItemsFound:     len(located.Items),
				Items:          make([]locatedItem, 0, len(extraction.Candidates)),
				Rejected:       extraction.Rejected,
				Warnings:       append(plan.Warnings, extraction.Warnings...),
			}
			for _, c := range extraction.Candidates {
				out.Items = append(out.Items, locatedItem{Index: c.Index, Fields: c.Fields})
			}

			if jsonOut {
				return writeJSON(cmd, out)
			}
			return printLocate(cmd, plan, out)
		},
	}

	cmd.Flags().StringVarP(&optionsPath, "options", "o", "", "Options file (YAML or JSON)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a source entity value (key=value)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the items as JSON")
	src.register(cmd)
	return cmd
}

func printLocate(cmd *cobra.Command, plan internal.Plan, out locateOutput) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "container: %s  items: %d  strategy: %s\n", yesNo(out.ContainerFound), out.ItemsFound, out.Strategy)

	names := make([]string, 0, len(plan.Fields))
	for _, f := range plan.Fields {
		names = append(names, f.Name)
	}
	rows := make([]map[string]string, 0, len(out.Items))
	for _, item := range out.Items {
		row := make(map[string]string, len(names))
		for _, name := range names {
			row[name] = item.Fields[name].Original
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, report.ItemTable(names, rows))
	}
	for _, r := range out.Rejected {
		fmt.Fprintf(w, "rejected: item %d %s\n", r.Index, r.Reason)
	}
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}
