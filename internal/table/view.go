package table

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Definition declares everything the engine and the presentation layer need
// to know about one list view.
type Definition[T any] struct {
	Key     string
	Columns Columns[T]
	Filters Filters[T]

	// SearchKeys restricts the search to these fields. Empty means every
	// primitive field.
	SearchKeys []string

	DefaultSort     string
	DefaultSortDir  Direction
	DefaultPageSize int

	// Locale drives string collation when sorting. The zero value is the
	// CLDR root collation.
	Locale language.Tag

	// Presentation callbacks. The engine passes them through untouched.
	RowClass func(T) string // CSS class for a row
	RowHref  func(T) string // Target when a row is clicked
}

// Validate checks the definition's cross-references.
func (d Definition[T]) Validate() error {
	var errs []error
	if d.Key == "" {
		errs = append(errs, errors.New("definition has no key"))
	}
	if d.Columns.Len() == 0 {
		errs = append(errs, fmt.Errorf("%w: definition %q has no columns", ErrInvalidColumn, d.Key))
	}
	if d.DefaultSort != "" {
		col, ok := d.Columns.Get(d.DefaultSort)
		if !ok || !col.Sortable() {
			errs = append(errs, fmt.Errorf("%w: default sort %q is not a sortable column", ErrInvalidColumn, d.DefaultSort))
		}
	}
	return errors.Join(errs...)
}

// NewQuery returns the initial query for the view: page 1, the default sort,
// and the default page size.
func (d Definition[T]) NewQuery() Query {
	q := NewQuery(d.DefaultPageSize)
	if d.DefaultSort != "" {
		q = q.WithSort(d.DefaultSort, d.DefaultSortDir)
	}
	return q
}

// View is the result of running a query over a record source.
type View[T any] struct {
	Rows      []T // searched, filtered and sorted; not paginated
	PageRows  []T // the requested page of Rows
	Total     int // len(Rows)
	Page      int // effective page after clamping
	PageCount int
	PageSize  int
	Query     Query // the query with Page and PageSize normalized
}

// HasPrev reports whether a previous page exists.
func (v View[T]) HasPrev() bool { return v.Page > 1 }

// HasNext reports whether a next page exists.
func (v View[T]) HasNext() bool { return v.Page < v.PageCount }

// FirstIndex returns the 1-based position of the first row on the page, or 0
// for an empty view.
func (v View[T]) FirstIndex() int {
	if v.Total == 0 {
		return 0
	}
	return (v.Page-1)*v.PageSize + 1
}

// LastIndex returns the 1-based position of the last row on the page.
func (v View[T]) LastIndex() int {
	return (v.Page-1)*v.PageSize + len(v.PageRows)
}

// ComputeView runs search, filter, sort and pagination over records.
// It is deterministic and does not modify records.
func ComputeView[T any](records []T, def Definition[T], q Query) View[T] {
	rows := Search(records, def.Columns, def.SearchKeys, q.Search)
	rows = ApplyFilters(rows, def.Filters, q.Filters)
	rows = Sort(rows, def.Columns, q.SortColumn, q.SortDir, def.Locale)

	size := q.PageSize
	if size < 1 {
		size = def.DefaultPageSize
	}
	if size < 1 {
		size = DefaultPageSize
	}

	pageRows, page, pageCount := Paginate(rows, q.Page, size)

	q.Page = page
	q.PageSize = size
	if q.SortDir != Desc {
		q.SortDir = Asc
	}

	return View[T]{
		Rows:      rows,
		PageRows:  pageRows,
		Total:     len(rows),
		Page:      page,
		PageCount: pageCount,
		PageSize:  size,
		Query:     q,
	}
}
