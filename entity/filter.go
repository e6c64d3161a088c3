package entity

// Filter is one editable predicate, an ordered token sequence.
// Enabled filters are combined with an implicit and when a query is built.
type Filter struct {
	Tokens  []Token `yaml:"tokens"`
	Enabled bool    `yaml:"enabled"`
}

// Favourite is a named filter persisted per user.
type Favourite struct {
	Id     string  `json:"_id,omitempty" yaml:"id,omitempty"`
	Name   string  `json:"name" yaml:"name"`
	Tokens []Token `json:"filter" yaml:"filter"`
}

// Condition is a compiled query condition, a tree shaped after MongoDB query operators.
type Condition map[string]any

// Sort represents a sort directive for record queries.
type Sort struct {
	Field string `yaml:"field"` // Field name to sort by
	Desc  bool   `yaml:"desc"`  // Sort descending if true, ascending if false
}
