// Package facet tracks a set of named filter facets and the result set
// produced by searching with them. A facet is either single-valued
// (picking a new value replaces the old one) or multi-valued (values
// accumulate into a set). The zero value of every facet is "no filter".
package facet

// Cardinality says how many values a facet holds at once.
type Cardinality int

const (
	// CardinalitySingle facets hold at most one value.
	CardinalitySingle Cardinality = iota
	// CardinalityMulti facets hold an ordered set of values.
	CardinalityMulti
)

// Facet declares one filter dimension by name.
type Facet struct {
	Name        string
	Cardinality Cardinality
}

// Single declares a single-valued facet.
func Single(name string) Facet {
	return Facet{Name: name, Cardinality: CardinalitySingle}
}

// Multi declares a multi-valued facet.
func Multi(name string) Facet {
	return Facet{Name: name, Cardinality: CardinalityMulti}
}

// Value carries the current value of one active facet inside a
// Criteria map. Exactly one of One or Many is set, matching the
// facet's cardinality.
type Value struct {
	One  string
	Many []string
}

// Criteria maps facet names to their non-empty values. Facets without
// an active filter are absent, so an empty Criteria means an
// unfiltered search.
type Criteria map[string]Value
