package domain

// ValidationResult carries the hard errors and advisory findings of a template check.
// Advisories never make a template invalid; they are returned for display as warnings.
type ValidationResult struct {
	// Errors holds the hard failures, in check order.
	Errors []error `json:"-"`

	// Unreachable lists node ids not reachable from the entry node, ascending.
	Unreachable []int `json:"unreachable,omitempty"`

	// HasCycle is true when at least one back-edge exists.
	HasCycle bool `json:"has_cycle"`

	// Cycle holds the nodes of the first cycle found, closed by its first node.
	Cycle []int `json:"cycle,omitempty"`

	// Terminal lists nodes without destinations, ascending.
	Terminal []int `json:"terminal,omitempty"`
}

// Valid reports whether no hard errors were found.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid template, or an *AggregateError with every hard error.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &AggregateError{Errors: r.Errors}
}

// Warnings reports whether any advisory finding is present.
func (r ValidationResult) Warnings() bool {
	return len(r.Unreachable) > 0 || r.HasCycle
}
