package table

// State holds a record source and the query over it, recomputing the view
// synchronously after every change.
//
// State is not safe for concurrent use. Build one per request or per UI
// session.
type State[T any] struct {
	def     Definition[T]
	records []T
	query   Query
	view    View[T]
}

// NewState returns a State over records starting from q.
func NewState[T any](def Definition[T], records []T, q Query) *State[T] {
	s := &State[T]{def: def, records: records, query: q}
	s.recompute()
	return s
}

func (s *State[T]) recompute() {
	s.view = ComputeView(s.records, s.def, s.query)
	// Keep the stored query in range so Next/Prev step from the visible page.
	s.query = s.view.Query
}

func (s *State[T]) apply(q Query) View[T] {
	s.query = q
	s.recompute()
	return s.view
}

// View returns the current view.
func (s *State[T]) View() View[T] { return s.view }

// Query returns the current, clamped query.
func (s *State[T]) Query() Query { return s.query }

// Definition returns the view definition.
func (s *State[T]) Definition() Definition[T] { return s.def }

// SetRecords replaces the record source and returns to page 1.
func (s *State[T]) SetRecords(records []T) View[T] {
	s.records = records
	return s.apply(s.query.WithPage(1))
}

// SetSearch changes the search term and returns to page 1.
func (s *State[T]) SetSearch(term string) View[T] {
	return s.apply(s.query.WithSearch(term))
}

// SetFilter selects value for a filter and returns to page 1.
func (s *State[T]) SetFilter(filterID, value string) View[T] {
	return s.apply(s.query.WithFilter(filterID, value))
}

// ClearFilter resets a filter to "All" and returns to page 1.
func (s *State[T]) ClearFilter(filterID string) View[T] {
	return s.apply(s.query.WithoutFilter(filterID))
}

// SetSort sorts by columnID in dir, keeping the current page.
func (s *State[T]) SetSort(columnID string, dir Direction) View[T] {
	return s.apply(s.query.WithSort(columnID, dir))
}

// ToggleSort sorts by columnID, flipping direction on repeated calls.
func (s *State[T]) ToggleSort(columnID string) View[T] {
	return s.apply(s.query.ToggleSort(columnID))
}

// SetPageSize changes the page size, keeping the current page when it is
// still in range.
func (s *State[T]) SetPageSize(size int) View[T] {
	return s.apply(s.query.WithPageSize(size))
}

// SetPage moves to page, clamped into range.
func (s *State[T]) SetPage(page int) View[T] {
	return s.apply(s.query.WithPage(page))
}

// NextPage advances one page; on the last page it is a no-op.
func (s *State[T]) NextPage() View[T] {
	return s.apply(s.query.NextPage())
}

// PrevPage goes back one page; on page 1 it is a no-op.
func (s *State[T]) PrevPage() View[T] {
	return s.apply(s.query.PrevPage())
}
