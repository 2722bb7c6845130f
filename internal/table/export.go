package table

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// ExportOptions controls which columns an export contains.
type ExportOptions struct {
	// ColumnIDs selects and orders the exported columns. Empty exports every
	// column in registry order. Unknown ids are skipped.
	ColumnIDs []string
}

// WriteCSV writes records as CSV: one header row of column labels followed by
// one row per record.
//
// Every field is wrapped in double quotes with embedded quotes doubled, and
// rows end in "\n". Values come from the column accessors (never the
// renderers) and are formatted with FormatValue. An empty records slice yields
// a header-only document.
//
// Values are written byte for byte, "\r\n" included. encoding/csv folds a
// quoted "\r\n" into "\n" when reading, so such fields do not round-trip
// exactly through that reader.
func WriteCSV[T any](w io.Writer, records []T, cols Columns[T], opts ExportOptions) error {
	selected := cols.Select(opts.ColumnIDs)
	bw := bufio.NewWriter(w)

	header := make([]string, len(selected))
	for i, col := range selected {
		header[i] = col.Label
	}
	if err := writeCSVRecord(bw, header); err != nil {
		return err
	}

	fields := make([]string, len(selected))
	for _, rec := range records {
		for i, col := range selected {
			fields[i] = FormatValue(col.Value(rec))
		}
		if err := writeCSVRecord(bw, fields); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ExportCSV returns the CSV document produced by WriteCSV.
func ExportCSV[T any](records []T, cols Columns[T], opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, cols, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSVRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quoteField(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// quoteField quotes a CSV field unconditionally.
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
