package facet

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSearchInFlight is returned by Begin while an earlier search
	// has not finished yet.
	ErrSearchInFlight = errors.New("search already in flight")
	// ErrNoSearchInFlight is returned by Finish when no search was
	// begun.
	ErrNoSearchInFlight = errors.New("no search in flight")
)

// Provider executes a search for the given criteria.
type Provider[R any] func(ctx context.Context, criteria Criteria) ([]R, error)

// Controller owns the state of a faceted search: the active filter
// per facet, the cached results of the last successful search, and a
// flag that keeps at most one search in flight at a time.
//
// Controller is not safe for concurrent use. It is meant to be driven
// from a single event loop, with Begin called when a search starts
// and Finish called when its outcome arrives.
type Controller[R any] struct {
	facets    []Facet
	single    map[string]string
	multi     map[string][]string
	results   []R
	searching bool
}

// NewController builds a controller over the given facets. Duplicate
// names keep the first declaration.
func NewController[R any](facets ...Facet) *Controller[R] {
	c := &Controller[R]{
		single: make(map[string]string),
		multi:  make(map[string][]string),
	}
	for _, f := range facets {
		if f.Name == "" || c.known(f.Name) {
			continue
		}
		c.facets = append(c.facets, f)
	}
	return c
}

func (c *Controller[R]) known(name string) bool {
	for _, f := range c.facets {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (c *Controller[R]) facetOf(name string, card Cardinality) bool {
	for _, f := range c.facets {
		if f.Name == name {
			return f.Cardinality == card
		}
	}
	return false
}

// Facets returns the facet declarations in construction order.
func (c *Controller[R]) Facets() []Facet {
	out := make([]Facet, len(c.facets))
	copy(out, c.facets)
	return out
}

// SetSingle replaces the value of a single-valued facet. An empty
// value removes the filter. Unknown names and multi-valued facets are
// ignored.
func (c *Controller[R]) SetSingle(name, value string) {
	if !c.facetOf(name, CardinalitySingle) {
		return
	}
	if value == "" {
		delete(c.single, name)
		return
	}
	c.single[name] = value
}

// SingleValue reports the current value of a single-valued facet, or
// "" when the facet carries no filter.
func (c *Controller[R]) SingleValue(name string) string {
	return c.single[name]
}

// AddMulti adds a value to a multi-valued facet. Adding a value that
// is already present, an empty value, or a value for an unknown or
// single-valued facet changes nothing.
func (c *Controller[R]) AddMulti(name, value string) {
	if value == "" || !c.facetOf(name, CardinalityMulti) {
		return
	}
	for _, v := range c.multi[name] {
		if v == value {
			return
		}
	}
	c.multi[name] = append(c.multi[name], value)
}

// RemoveMulti removes a value from a multi-valued facet. Removing a
// value that is not present changes nothing.
func (c *Controller[R]) RemoveMulti(name, value string) {
	values := c.multi[name]
	for i, v := range values {
		if v != value {
			continue
		}
		values = append(values[:i], values[i+1:]...)
		if len(values) == 0 {
			delete(c.multi, name)
		} else {
			c.multi[name] = values
		}
		return
	}
}

// MultiValues returns the values of a multi-valued facet in the order
// they were added. The returned slice is a copy.
func (c *Controller[R]) MultiValues(name string) []string {
	values := c.multi[name]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// HasMulti reports whether value is currently part of the named
// multi-valued facet.
func (c *Controller[R]) HasMulti(name, value string) bool {
	for _, v := range c.multi[name] {
		if v == value {
			return true
		}
	}
	return false
}

// Clear resets every facet to its empty value and drops the cached
// result set. It does not touch a search that is already in flight;
// callers that care should check Searching first.
func (c *Controller[R]) Clear() {
	c.single = make(map[string]string)
	c.multi = make(map[string][]string)
	c.results = nil
}

// HasActiveFilters reports whether at least one facet carries a
// non-empty value.
func (c *Controller[R]) HasActiveFilters() bool {
	return len(c.single) > 0 || len(c.multi) > 0
}

// BuildCriteria snapshots the active facets. Facets with empty values
// are left out, and multi values are copied, so the returned Criteria
// stays valid however the controller changes afterwards.
func (c *Controller[R]) BuildCriteria() Criteria {
	criteria := make(Criteria)
	for _, f := range c.facets {
		switch f.Cardinality {
		case CardinalitySingle:
			if v := c.single[f.Name]; v != "" {
				criteria[f.Name] = Value{One: v}
			}
		case CardinalityMulti:
			if values := c.multi[f.Name]; len(values) > 0 {
				many := make([]string, len(values))
				copy(many, values)
				criteria[f.Name] = Value{Many: many}
			}
		}
	}
	return criteria
}

// Begin starts a search. It snapshots the current criteria and marks
// the controller as searching. While a search is in flight every
// further Begin fails with ErrSearchInFlight, so at most one search
// runs at a time.
func (c *Controller[R]) Begin() (Criteria, error) {
	if c.searching {
		return nil, ErrSearchInFlight
	}
	c.searching = true
	return c.BuildCriteria(), nil
}

// Finish completes the search begun by Begin. On success the cached
// result set is replaced; on failure it is kept as it was and the
// provider's error is returned wrapped. Calling Finish with no search
// in flight fails with ErrNoSearchInFlight.
func (c *Controller[R]) Finish(results []R, err error) error {
	if !c.searching {
		return ErrNoSearchInFlight
	}
	c.searching = false
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	c.results = results
	return nil
}

// Search runs a whole search synchronously: Begin, the provider, then
// Finish. Split UIs call Begin and Finish directly instead.
func (c *Controller[R]) Search(ctx context.Context, provider Provider[R]) error {
	criteria, err := c.Begin()
	if err != nil {
		return err
	}
	results, err := provider(ctx, criteria)
	return c.Finish(results, err)
}

// Results returns the result set cached by the last successful
// search. Callers must not mutate it.
func (c *Controller[R]) Results() []R {
	return c.results
}

// Searching reports whether a search is currently in flight.
func (c *Controller[R]) Searching() bool {
	return c.searching
}
