package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"entitymatch/internal"
)

type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

// MatchTable lists every match of res with its per-field similarities.
func MatchTable(res internal.Result) string {
	fields := similarityFields(res.Matches)
	headers := append([]string{"#", "Item", "Aggregate", "Selected"}, fields...)
	aligns := []alignment{alignRight, alignRight, alignRight, alignLeft}
	for range fields {
		aligns = append(aligns, alignRight)
	}

	rows := make([][]string, 0, len(res.Matches))
	for i, m := range res.Matches {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(m.Index),
			score(m.Aggregate),
			mark(m.Selected),
		}
		for _, f := range fields {
			if s, ok := m.Similarities[f]; ok {
				row = append(row, score(s))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}

// BatchTable summarizes a batch run, one line per reference.
func BatchTable(rows []Row) string {
	headers := []string{"Reference", "Status", "Items", "Matches", "Selected", "Aggregate", "Action"}
	aligns := []alignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		res := row.Result
		status := "ok"
		if res.ErrorKind != "" {
			status = string(res.ErrorKind)
		} else if !res.Success {
			status = "failed"
		}
		selected, aggregate := "-", "-"
		if res.SelectedMatch != nil {
			selected = strconv.Itoa(res.SelectedMatch.Index)
			aggregate = score(res.SelectedMatch.Aggregate)
		}
		out = append(out, []string{
			row.Label,
			status,
			strconv.Itoa(res.ItemsFound),
			strconv.Itoa(len(res.Matches)),
			selected,
			aggregate,
			actionSummary(res),
		})
	}
	return renderTable(headers, out, aligns)
}

// ItemTable shows the fields extracted from each located item.
func ItemTable(fields []string, items []map[string]string) string {
	headers := append([]string{"Item"}, fields...)
	aligns := []alignment{alignRight}
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		row := []string{strconv.Itoa(i)}
		for _, f := range fields {
			row = append(row, text.Trim(item[f], 60))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}

func renderTable(headers []string, rows [][]string, aligns []alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func similarityFields(matches []internal.MatchResult) []string {
	seen := map[string]struct{}{}
	for _, m := range matches {
		for f := range m.Similarities {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func actionSummary(res internal.Result) string {
	a := res.ActionResult
	switch {
	case a == nil:
		return "-"
	case !a.Success:
		return "failed: " + string(a.ErrorKind)
	case a.Value != nil:
		return text.Trim(*a.Value, 40)
	default:
		return string(a.Kind)
	}
}

func score(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
