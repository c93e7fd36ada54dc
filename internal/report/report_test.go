package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"entitymatch/internal"
)

func sampleRows() []Row {
	href := "/p/1"
	selected := internal.MatchResult{
		Index:        2,
		Similarities: map[string]float64{"name": 1, "price": 0.8},
		Aggregate:    0.92,
		Selected:     true,
		Fields:       map[string]string{"name": "Acme Widget", "price": "19.99"},
	}
	return []Row{
		{
			Label: "acme",
			Result: internal.Result{
				Success:         true,
				Matches:         []internal.MatchResult{selected},
				SelectedMatch:   &selected,
				ContainerFound:  true,
				ItemsFound:      4,
				ActionPerformed: true,
				ActionResult:    &internal.ActionResult{Kind: internal.ActionExtract, Success: true, Value: &href},
				Strategy:        "direct-children",
				InvocationID:    "abc",
			},
		},
		{
			Label: "missing",
			Result: internal.Result{
				Error:     "container not found",
				ErrorKind: internal.KindContainerNotFound,
			},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "batch.xlsx")
	require.NoError(t, WriteXLSX(sampleRows(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "reference", header[0])
	assert.Equal(t, "field:name", header[len(fixedHeaders)])
	assert.Equal(t, "field:price", header[len(fixedHeaders)+1])

	first := rows[1]
	assert.Equal(t, "acme", first[0])
	assert.Equal(t, "TRUE", first[1])
	assert.Equal(t, "2", first[7])
	assert.Equal(t, "/p/1", first[10])
	assert.Equal(t, "Acme Widget", first[len(fixedHeaders)])

	second := rows[2]
	assert.Equal(t, "missing", second[0])
	assert.Equal(t, string(internal.KindContainerNotFound), second[2])
}

func TestMatchTable(t *testing.T) {
	out := MatchTable(sampleRows()[0].Result)
	assert.Contains(t, out, "Aggregate")
	assert.Contains(t, out, "price")
	assert.Contains(t, out, "0.920")
	assert.Contains(t, out, "yes")
}

func TestBatchTable(t *testing.T) {
	out := BatchTable(sampleRows())
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "/p/1")
	assert.Contains(t, out, string(internal.KindContainerNotFound))
}

func TestItemTable(t *testing.T) {
	out := ItemTable([]string{"name"}, []map[string]string{{"name": "Acme"}, {"name": "Globex"}})
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Globex")
	assert.Empty(t, renderTable(nil, nil, nil))
}
