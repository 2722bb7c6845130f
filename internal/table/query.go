package table

import "strings"

// DefaultPageSize is used when a query carries no usable page size.
const DefaultPageSize = 25

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" (any case) and Asc otherwise.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Query is the user-controlled state of a list view.
//
// Query is a value type: the With* methods return a modified copy and never
// touch the receiver's Filters map. Changing the search term or a filter
// selection resets Page to 1; changing sort or page size keeps Page and relies
// on ComputeView to clamp it.
type Query struct {
	Search     string
	Filters    map[string]string // filter id -> selected value; absent means "All"
	SortColumn string            // empty means unsorted
	SortDir    Direction
	Page       int
	PageSize   int
}

// NewQuery returns a query on page 1 with the given page size.
func NewQuery(pageSize int) Query {
	return Query{Page: 1, PageSize: pageSize, SortDir: Asc}
}

// Selected returns the active selection for a filter.
func (q Query) Selected(filterID string) (string, bool) {
	v, ok := q.Filters[filterID]
	return v, ok
}

func (q Query) cloneFilters() map[string]string {
	out := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		out[k] = v
	}
	return out
}

// WithSearch sets the search term and resets to page 1.
func (q Query) WithSearch(term string) Query {
	q.Search = term
	q.Page = 1
	return q
}

// WithFilter selects value for a filter and resets to page 1.
func (q Query) WithFilter(filterID, value string) Query {
	q.Filters = q.cloneFilters()
	q.Filters[filterID] = value
	q.Page = 1
	return q
}

// WithoutFilter clears a filter back to "All" and resets to page 1.
func (q Query) WithoutFilter(filterID string) Query {
	q.Filters = q.cloneFilters()
	delete(q.Filters, filterID)
	q.Page = 1
	return q
}

// WithSort sets the sort column and direction. An empty column clears sorting.
func (q Query) WithSort(columnID string, dir Direction) Query {
	q.SortColumn = columnID
	if dir != Desc {
		dir = Asc
	}
	q.SortDir = dir
	return q
}

// ToggleSort sorts by columnID ascending, or flips the direction when the
// query is already sorted by that column.
func (q Query) ToggleSort(columnID string) Query {
	if q.SortColumn == columnID {
		return q.WithSort(columnID, q.SortDir.Reverse())
	}
	return q.WithSort(columnID, Asc)
}

// WithPage moves to page. Out-of-range values are clamped by ComputeView.
func (q Query) WithPage(page int) Query {
	q.Page = page
	return q
}

// WithPageSize changes the page size, keeping the current page.
func (q Query) WithPageSize(size int) Query {
	q.PageSize = size
	return q
}

// NextPage advances one page.
func (q Query) NextPage() Query {
	return q.WithPage(q.Page + 1)
}

// PrevPage goes back one page.
func (q Query) PrevPage() Query {
	return q.WithPage(q.Page - 1)
}
