package table

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName names the worksheet when ExportXLSX is given none.
const DefaultSheetName = "Export"

// WriteXLSX writes records as a single-sheet workbook with the same header and
// columns as WriteCSV. Numeric and boolean values keep their cell type;
// everything else is written as FormatValue text.
func WriteXLSX[T any](w io.Writer, records []T, cols Columns[T], sheet string, opts ExportOptions) error {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	selected := cols.Select(opts.ColumnIDs)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, col := range selected {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Label); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}

	for r, rec := range records {
		for i, col := range selected {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, xlsxValue(col.Value(rec))); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportXLSX returns the workbook produced by WriteXLSX.
func ExportXLSX[T any](records []T, cols Columns[T], sheet string, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, records, cols, sheet, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxValue(v any) any {
	if isNil(v) {
		return ""
	}
	v = deref(v)
	if _, ok := v.(fmt.Stringer); ok {
		return FormatValue(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return FormatValue(v)
}
