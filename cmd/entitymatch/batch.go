package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entitymatch/internal"
	"entitymatch/internal/pipeline"
	"entitymatch/internal/reference"
	"entitymatch/internal/report"
)

type batchEntry struct {
	Reference string          `json:"reference"`
	Result    internal.Result `json:"result"`
}

func newBatchCommand(cc *commandContext) *cobra.Command {
	var optionsPath string
	var refsPath string
	var outPath string
	var jsonOut bool
	var refOpts reference.LoadOptions
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Match every record of a reference file against one document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadOptions(optionsPath, nil)
			if err != nil {
				return err
			}
			if refsPath == "" {
				return fmt.Errorf("--references is required")
			}
			records, err := reference.Load(refsPath, refOpts)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no reference records in %s", refsPath)
			}

			doc, release, err := src.open(cmd.Context(), cc.config, cc.log())
			if err != nil {
				return err
			}
			defer release()

			log := cc.log()
			m := pipeline.NewMatcher(pipeline.WithLogger(log))
			defaults := cc.config.Defaults()

			rows := make([]report.Row, 0, len(records))
			for _, rec := range records {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				res := m.RunOptions(cmd.Context(), doc, rec.Apply(base), defaults)
				log.Debug("batch record done",
					zap.String("reference", rec.Label),
					zap.Bool("success", res.Success),
					zap.Int("matches", len(res.Matches)))
				rows = append(rows, report.Row{Label: rec.Label, Result: res})
			}

			if outPath == "" {
				outPath = filepath.Join(cc.config.OutputDir, fmt.Sprintf("batch-%s.xlsx", time.Now().Format("20060102-150405")))
			}
			if err := report.WriteXLSX(rows, outPath); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			log.Info("batch report written", zap.String("path", outPath), zap.Int("records", len(rows)))

			if jsonOut {
				entries := make([]batchEntry, 0, len(rows))
				for _, row := range rows {
					entries = append(entries, batchEntry{Reference: row.Label, Result: row.Result})
				}
				return writeJSON(cmd, entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.BatchTable(rows))
			fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&optionsPath, "options", "o", "", "Options file (YAML or JSON); its sourceEntity is replaced per record")
	cmd.Flags().StringVarP(&refsPath, "references", "r", "", "Reference records (.yaml, .json, .xlsx, .db)")
	cmd.Flags().StringVar(&refOpts.Sheet, "sheet", "", "XLSX sheet name")
	cmd.Flags().StringVar(&refOpts.Table, "table", "", "SQLite table name")
	cmd.Flags().StringVar(&refOpts.LabelKey, "label-key", "", "Column used as the record label")
	cmd.Flags().IntVar(&refOpts.Limit, "limit", 0, "Maximum number of records")
	cmd.Flags().StringVar(&outPath, "out", "", "XLSX report path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	src.register(cmd)
	return cmd
}
