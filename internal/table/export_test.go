package table

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type exportRec struct {
	Name    string
	Note    string
	Tags    []string
	Meta    map[string]any
	Created time.Time
	Count   *int
}

var exportColumns = MustColumns(
	Column[exportRec]{ID: "name", Label: "Name", Accessor: func(r exportRec) any { return r.Name },
		Render: func(r exportRec) string { return "<b>" + r.Name + "</b>" }},
	Column[exportRec]{ID: "note", Label: `Note "quoted"`, Accessor: func(r exportRec) any { return r.Note }},
	Column[exportRec]{ID: "tags", Label: "Tags", Accessor: func(r exportRec) any { return r.Tags }},
	Column[exportRec]{ID: "meta", Label: "Meta", Accessor: func(r exportRec) any { return r.Meta }},
	Column[exportRec]{ID: "created", Label: "Created", Accessor: func(r exportRec) any { return r.Created }},
	Column[exportRec]{ID: "count", Label: "Count", Accessor: func(r exportRec) any { return r.Count }},
)

func TestExportCSV_Format(t *testing.T) {
	n := 3
	recs := []exportRec{
		{
			Name:    "Alice",
			Note:    "said \"hi\", then left\nnext line",
			Tags:    []string{"a", "b"},
			Meta:    map[string]any{"k": 1},
			Created: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Count:   &n,
		},
		{Name: "Bob"},
	}

	out, err := ExportCSV(recs, exportColumns, ExportOptions{})
	require.NoError(t, err)

	want := `"Name","Note ""quoted""","Tags","Meta","Created","Count"` + "\n" +
		`"Alice","said ""hi"", then left` + "\n" + `next line","[""a"",""b""]","{""k"":1}","2024-03-01T12:00:00Z","3"` + "\n" +
		`"Bob","","","","",""` + "\n"
	assert.Equal(t, want, string(out))
}

func TestExportCSV_RoundTrip(t *testing.T) {
	recs := []exportRec{
		{Name: "Alice", Note: `comma, "quote"`},
		{Name: "Bob", Note: "line\nbreak"},
	}

	out, err := ExportCSV(recs, exportColumns, ExportOptions{ColumnIDs: []string{"note", "name"}})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{`Note "quoted"`, "Name"},
		{`comma, "quote"`, "Alice"},
		{"line\nbreak", "Bob"},
	}, rows)
}

func TestExportCSV_CRLFInsideField(t *testing.T) {
	recs := []exportRec{{Name: "x\r\ny"}}

	out, err := ExportCSV(recs, exportColumns, ExportOptions{ColumnIDs: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "\"Name\"\n\"x\r\ny\"\n", string(out), "written unchanged")

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name"}, {"x\ny"}}, rows, "encoding/csv folds the quoted CRLF")
}

func TestExportCSV_Empty(t *testing.T) {
	out, err := ExportCSV([]exportRec{}, exportColumns, ExportOptions{ColumnIDs: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "\"Name\"\n", string(out))
}

func TestExportXLSX(t *testing.T) {
	n := 7
	recs := []exportRec{
		{Name: "Alice", Count: &n},
		{Name: "Bob"},
	}

	data, err := ExportXLSX(recs, exportColumns, "People", ExportOptions{ColumnIDs: []string{"name", "count"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"People"}, f.GetSheetList())

	rows, err := f.GetRows("People")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Count"}, rows[0])
	assert.Equal(t, []string{"Alice", "7"}, rows[1])
	assert.Equal(t, "Bob", rows[2][0])
}

func TestFormatValue(t *testing.T) {
	type role string
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"named string", role("admin"), "admin"},
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"zero time", time.Time{}, ""},
		{"bytes", []byte("raw"), "raw"},
		{"slice", []int{1, 2}, "[1,2]"},
		{"typed nil", (*int)(nil), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}
