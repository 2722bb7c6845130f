package table

import "strings"

// Search returns the records matching term as a case-insensitive substring.
//
// When keys is non-empty a record matches if any of those fields contains the
// term. Fields are resolved through Fielder, or through the column with that
// id for records that do not implement Fielder. Without keys, every primitive
// (string or numeric) field of a Fielder record is searched, and for other
// records every column value is searched the same way.
//
// The term is trimmed before matching, so "bo " matches "Bob". A blank term
// returns records unchanged. nil values never match.
func Search[T any](records []T, cols Columns[T], keys []string, term string) []T {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return records
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if recordMatches(rec, cols, keys, needle) {
			out = append(out, rec)
		}
	}
	return out
}

func recordMatches[T any](rec T, cols Columns[T], keys []string, needle string) bool {
	f, isFielder := any(rec).(Fielder)

	if len(keys) > 0 {
		for _, key := range keys {
			var v any
			if isFielder {
				v, _ = f.FieldValue(key)
			} else if col, ok := cols.Get(key); ok {
				v = col.Value(rec)
			}
			if containsFold(v, needle) {
				return true
			}
		}
		return false
	}

	if isFielder {
		for _, name := range f.FieldNames() {
			v, _ := f.FieldValue(name)
			if isPrimitive(v) && containsFold(v, needle) {
				return true
			}
		}
		return false
	}

	for _, col := range cols.list {
		v := col.Value(rec)
		if isPrimitive(v) && containsFold(v, needle) {
			return true
		}
	}
	return false
}

// containsFold reports whether the lower-cased text of v contains needle.
// needle must already be lower case.
func containsFold(v any, needle string) bool {
	if isNil(v) {
		return false
	}
	return strings.Contains(strings.ToLower(FormatValue(v)), needle)
}
