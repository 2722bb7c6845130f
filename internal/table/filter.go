package table

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned when a filter descriptor is malformed.
var ErrInvalidFilter = errors.New("invalid filter")

// Option is one selectable value of a filter.
type Option struct {
	Value string
	Label string
}

// Choice is an entry of a filter's option list as presented to the user.
// The leading "All" entry has All set and an empty Value.
type Choice struct {
	Option
	All bool
}

// Filter is a named, selectable predicate over records.
type Filter[T any] struct {
	ID      string
	Label   string
	Options []Option

	// Predicate reports whether rec satisfies the selected value.
	// It is only called for an active selection.
	Predicate func(rec T, selected string) bool
}

// Choices returns the filter's options preceded by the "All" choice.
func (f Filter[T]) Choices() []Choice {
	out := make([]Choice, 0, len(f.Options)+1)
	out = append(out, Choice{Option: Option{Label: "All"}, All: true})
	for _, o := range f.Options {
		out = append(out, Choice{Option: o})
	}
	return out
}

// OptionLabel returns the label for value, or value itself when it is not a
// known option.
func (f Filter[T]) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Filters is an ordered, validated filter registry.
type Filters[T any] struct {
	list  []Filter[T]
	index map[string]int
}

// NewFilters validates filters and returns a registry preserving their order.
func NewFilters[T any](filters ...Filter[T]) (Filters[T], error) {
	index := make(map[string]int, len(filters))
	for i, f := range filters {
		if f.ID == "" {
			return Filters[T]{}, fmt.Errorf("%w: filter %d has no id", ErrInvalidFilter, i)
		}
		if _, dup := index[f.ID]; dup {
			return Filters[T]{}, fmt.Errorf("%w: duplicate filter id %q", ErrInvalidFilter, f.ID)
		}
		if f.Predicate == nil {
			return Filters[T]{}, fmt.Errorf("%w: filter %q has no predicate", ErrInvalidFilter, f.ID)
		}
		index[f.ID] = i
	}

	list := make([]Filter[T], len(filters))
	copy(list, filters)
	return Filters[T]{list: list, index: index}, nil
}

// MustFilters is like NewFilters but panics on error.
func MustFilters[T any](filters ...Filter[T]) Filters[T] {
	f, err := NewFilters(filters...)
	if err != nil {
		panic(err)
	}
	return f
}

// All returns the filters in registry order.
func (f Filters[T]) All() []Filter[T] {
	return f.list
}

// Get returns the filter with the given id.
func (f Filters[T]) Get(id string) (Filter[T], bool) {
	i, ok := f.index[id]
	if !ok {
		return Filter[T]{}, false
	}
	return f.list[i], true
}

// ApplyFilters returns the records that satisfy every active selection.
//
// Selections whose id is not registered are ignored. With no active
// selections the input slice is returned as is.
func ApplyFilters[T any](records []T, filters Filters[T], selected map[string]string) []T {
	type active struct {
		pred  func(T, string) bool
		value string
	}

	var preds []active
	// Registry order keeps evaluation deterministic regardless of map order.
	for _, f := range filters.list {
		value, ok := selected[f.ID]
		if !ok {
			continue
		}
		preds = append(preds, active{pred: f.Predicate, value: value})
	}
	if len(preds) == 0 {
		return records
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		keep := true
		for _, p := range preds {
			if !p.pred(rec, p.value) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}
