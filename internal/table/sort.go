package table

import (
	"slices"

	"golang.org/x/text/language"
)

// Sort returns records ordered by the column columnID in direction dir.
//
// The sort is stable: records that compare equal keep their input order. When
// columnID is empty, unknown, or names a column with DisableSort set, records
// is returned unchanged. The input slice is never reordered in place.
func Sort[T any](records []T, cols Columns[T], columnID string, dir Direction, locale language.Tag) []T {
	if columnID == "" {
		return records
	}
	col, ok := cols.Get(columnID)
	if !ok || !col.Sortable() {
		return records
	}

	cmp := comparatorFor(col, locale)
	if dir == Desc {
		asc := cmp
		cmp = func(a, b T) int { return asc(b, a) }
	}

	out := slices.Clone(records)
	slices.SortStableFunc(out, cmp)
	return out
}

// comparatorFor returns the ascending comparator for col.
func comparatorFor[T any](col Column[T], locale language.Tag) func(a, b T) int {
	if col.Compare != nil {
		return col.Compare
	}
	vc := newValueComparer(locale)
	return func(a, b T) int {
		return vc.compare(col.Value(a), col.Value(b))
	}
}
