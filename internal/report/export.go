// Package report renders matcher results as XLSX workbooks and terminal
// tables.
package report

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"entitymatch/internal"
)

// Row pairs one batch reference with the result of matching it.
type Row struct {
	Label  string
	Result internal.Result
}

var fixedHeaders = []string{
	"reference", "success", "error_kind", "error", "strategy", "items_found", "matches",
	"selected_index", "aggregate", "action_performed", "action_value", "invocation_id", "duration_ms",
}

// WriteXLSX writes one row per reference. Extracted fields of the selected
// match follow the fixed columns, one "field:<name>" column per field name.
func WriteXLSX(rows []Row, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	fieldNames := selectedFieldNames(rows)
	headers := append([]string(nil), fixedHeaders...)
	for _, name := range fieldNames {
		headers = append(headers, "field:"+name)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		res := row.Result
		set(1, row.Label)
		set(2, res.Success)
		set(3, string(res.ErrorKind))
		set(4, res.Error)
		set(5, res.Strategy)
		set(6, res.ItemsFound)
		set(7, len(res.Matches))
		if sel := res.SelectedMatch; sel != nil {
			set(8, sel.Index)
			set(9, sel.Aggregate)
		} else {
			set(8, "")
			set(9, "")
		}
		set(10, res.ActionPerformed)
		set(11, actionValue(res.ActionResult))
		set(12, res.InvocationID)
		set(13, res.DurationMs)

		for j, name := range fieldNames {
			v := ""
			if res.SelectedMatch != nil {
				v = res.SelectedMatch.Fields[name]
			}
			set(len(fixedHeaders)+j+1, v)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func selectedFieldNames(rows []Row) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		if row.Result.SelectedMatch == nil {
			continue
		}
		for name := range row.Result.SelectedMatch.Fields {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func actionValue(a *internal.ActionResult) string {
	if a == nil || a.Value == nil {
		return ""
	}
	return *a.Value
}
