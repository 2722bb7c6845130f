package table

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrInvalidColumn is returned when a column descriptor is malformed.
var ErrInvalidColumn = errors.New("invalid column")

// Fielder is implemented by records that expose named values.
// Key-based columns and the default search rely on it.
type Fielder interface {
	// FieldValue returns the value stored under key.
	FieldValue(key string) (any, bool)
	// FieldNames returns the record's own field names.
	FieldNames() []string
}

// Row is a loosely typed record keyed by field name.
type Row map[string]any

// FieldValue implements Fielder.
func (r Row) FieldValue(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// FieldNames implements Fielder. Names are sorted for deterministic iteration.
func (r Row) FieldNames() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Column describes how one column of T is extracted, labelled, sorted and rendered.
type Column[T any] struct {
	ID    string // Unique within a Columns registry
	Label string // Header text, also the CSV header

	// Exactly one of Key or Accessor must be set.
	Key      string      // Field name looked up through Fielder
	Accessor func(T) any // Computed value

	DisableSort bool             // Columns are sortable unless this is set
	Compare     func(a, b T) int // Optional ascending order; overrides the default value ordering
	Render      func(T) string   // Optional display text; never used for search, sort or export
}

// Value resolves the column's raw value for rec.
func (c Column[T]) Value(rec T) any {
	if c.Accessor != nil {
		return c.Accessor(rec)
	}
	if f, ok := any(rec).(Fielder); ok {
		v, _ := f.FieldValue(c.Key)
		return v
	}
	return nil
}

// Text returns the display text for rec: the renderer output when present,
// otherwise the formatted raw value.
func (c Column[T]) Text(rec T) string {
	if c.Render != nil {
		return c.Render(rec)
	}
	return FormatValue(c.Value(rec))
}

// Sortable reports whether the column may be used as a sort key.
func (c Column[T]) Sortable() bool {
	return !c.DisableSort
}

// Columns is an ordered, validated column registry.
type Columns[T any] struct {
	list  []Column[T]
	index map[string]int
}

// NewColumns validates cols and returns a registry preserving their order.
// Every column needs a unique, non-empty ID and exactly one of Key or Accessor.
// Key columns additionally require T to implement Fielder.
func NewColumns[T any](cols ...Column[T]) (Columns[T], error) {
	recType := reflect.TypeFor[T]()
	fielder := recType.Implements(reflect.TypeFor[Fielder]())

	index := make(map[string]int, len(cols))
	for i, col := range cols {
		if col.ID == "" {
			return Columns[T]{}, fmt.Errorf("%w: column %d has no id", ErrInvalidColumn, i)
		}
		if _, dup := index[col.ID]; dup {
			return Columns[T]{}, fmt.Errorf("%w: duplicate column id %q", ErrInvalidColumn, col.ID)
		}

		hasKey := col.Key != ""
		hasFunc := col.Accessor != nil
		switch {
		case hasKey && hasFunc:
			return Columns[T]{}, fmt.Errorf("%w: column %q sets both key and accessor", ErrInvalidColumn, col.ID)
		case !hasKey && !hasFunc:
			return Columns[T]{}, fmt.Errorf("%w: column %q has neither key nor accessor", ErrInvalidColumn, col.ID)
		case hasKey && !fielder:
			return Columns[T]{}, fmt.Errorf("%w: column %q uses key %q but %s does not implement Fielder",
				ErrInvalidColumn, col.ID, col.Key, recType)
		}

		index[col.ID] = i
	}

	list := make([]Column[T], len(cols))
	copy(list, cols)
	return Columns[T]{list: list, index: index}, nil
}

// MustColumns is like NewColumns but panics on error.
// Intended for package-level view definitions.
func MustColumns[T any](cols ...Column[T]) Columns[T] {
	c, err := NewColumns(cols...)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the columns in registry order.
func (c Columns[T]) All() []Column[T] {
	return c.list
}

// Len returns the number of columns.
func (c Columns[T]) Len() int {
	return len(c.list)
}

// Get returns the column with the given id.
func (c Columns[T]) Get(id string) (Column[T], bool) {
	i, ok := c.index[id]
	if !ok {
		return Column[T]{}, false
	}
	return c.list[i], true
}

// Labels returns the header labels in registry order.
func (c Columns[T]) Labels() []string {
	labels := make([]string, len(c.list))
	for i, col := range c.list {
		labels[i] = col.Label
	}
	return labels
}

// Select returns the columns named by ids, in that order, skipping unknown ids.
// An empty ids slice selects every column.
func (c Columns[T]) Select(ids []string) []Column[T] {
	if len(ids) == 0 {
		return c.list
	}
	out := make([]Column[T], 0, len(ids))
	for _, id := range ids {
		if col, ok := c.Get(id); ok {
			out = append(out, col)
		}
	}
	return out
}
