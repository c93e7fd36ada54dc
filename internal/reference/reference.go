// Package reference loads batches of source-entity records for batch
// matching: YAML/JSON lists, an XLSX sheet, or a SQLite table.
package reference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"entitymatch/internal/config"
	"entitymatch/internal/storage"
)

var ErrUnsupportedSource = errors.New("unsupported reference source")

// Record is one source entity plus a label used in reports.
type Record struct {
	Label  string
	Values map[string]*string
}

// Apply returns a copy of opts with r as the source entity.
func (r Record) Apply(opts config.Options) config.Options {
	out := opts
	out.SourceEntity = make(map[string]*string, len(r.Values))
	for k, v := range r.Values {
		out.SourceEntity[k] = v
	}
	return out
}

type LoadOptions struct {
	// LabelKey names the column holding a record label. The column is
	// removed from the record values.
	LabelKey string
	// Sheet selects an XLSX sheet. Empty means the first sheet.
	Sheet string
	// Table selects the SQLite table. Optional when there is only one.
	Table string
	// Limit caps the number of records. Zero means no cap.
	Limit int
}

// Load dispatches on the file extension.
func Load(path string, o LoadOptions) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return LoadFile(path, o)
	case ".xlsx":
		return LoadXLSX(path, o)
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path, o)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}
}

// LoadFile reads a YAML or JSON list of flat objects, either at the top
// level or under a "records" key. Scalars keep their literal text.
func LoadFile(path string, o LoadOptions) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecords(data, o)
}

func ParseRecords(data []byte, o LoadOptions) ([]Record, error) {
	var list []map[string]*yaml.Node
	if err := yaml.Unmarshal(data, &list); err != nil {
		var wrapped struct {
			Records []map[string]*yaml.Node `yaml:"records"`
		}
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("reference: parse records: %w", err)
		}
		list = wrapped.Records
	}

	raw := make([]map[string]*string, 0, len(list))
	for i, item := range list {
		rec := make(map[string]*string, len(item))
		for k, node := range item {
			v, err := scalar(node)
			if err != nil {
				return nil, fmt.Errorf("reference: record %d key %q: %w", i+1, k, err)
			}
			rec[k] = v
		}
		raw = append(raw, rec)
	}
	return finish(raw, o), nil
}

// LoadXLSX reads one sheet. The first non-blank row holds the keys; blank
// cells become null values.
func LoadXLSX(path string, o LoadOptions) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := o.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reference: sheet %q: %w", sheet, err)
	}

	var header []string
	var raw []map[string]*string
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if header == nil {
			header = make([]string, len(row))
			for i, h := range row {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}
		rec := make(map[string]*string, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell == "" {
				rec[key] = nil
				continue
			}
			rec[key] = &cell
		}
		raw = append(raw, rec)
	}
	return finish(raw, o), nil
}

// LoadSQLite reads o.Table from a database opened read-only. An empty
// table name is allowed when the database holds exactly one table.
func LoadSQLite(path string, o LoadOptions) ([]Record, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	table := o.Table
	if table == "" {
		tables, err := db.Tables()
		if err != nil {
			return nil, err
		}
		if len(tables) != 1 {
			return nil, fmt.Errorf("reference: %s has %d tables, choose one", path, len(tables))
		}
		table = tables[0]
	}

	rows, err := db.ListRecords(table, o.Limit)
	if err != nil {
		return nil, err
	}
	return finish(rows, o), nil
}

func finish(raw []map[string]*string, o LoadOptions) []Record {
	if o.Limit > 0 && len(raw) > o.Limit {
		raw = raw[:o.Limit]
	}
	out := make([]Record, 0, len(raw))
	for i, values := range raw {
		label := fmt.Sprintf("#%d", i+1)
		if o.LabelKey != "" {
			if v, ok := values[o.LabelKey]; ok {
				if v != nil && *v != "" {
					label = *v
				}
				delete(values, o.LabelKey)
			}
		}
		out = append(out, Record{Label: label, Values: values})
	}
	return out
}

func scalar(node *yaml.Node) (*string, error) {
	if node == nil || node.ShortTag() == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected a scalar value")
	}
	v := node.Value
	return &v, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
