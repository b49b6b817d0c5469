package domain

import (
	"slices"
)

// TemplateNode represents one step in a template graph.
// Destinations are id references into the owning template's node set, not pointers,
// so cyclic graphs stay trivially serializable.
type TemplateNode struct {
	ID         int `json:"id" yaml:"id" mapstructure:"id"`
	TemplateID int `json:"template_id" yaml:"template_id,omitempty" mapstructure:"template_id"`

	// Description is the trimmed, non-empty label shown to the game master.
	Description string `json:"description" yaml:"description" mapstructure:"description" validate:"required"`

	// Destinations lists the reachable node ids in declared order.
	// An empty list marks a terminal node.
	Destinations []int `json:"destinations" yaml:"destinations" mapstructure:"destinations"`
}

// IsTerminal reports whether the node has no outgoing destinations.
func (n TemplateNode) IsTerminal() bool {
	return len(n.Destinations) == 0
}

// HasDestination reports whether id is one of the node's destinations.
func (n TemplateNode) HasDestination(id int) bool {
	return slices.Contains(n.Destinations, id)
}

// Clone returns a copy that does not share the destinations slice.
func (n TemplateNode) Clone() TemplateNode {
	n.Destinations = slices.Clone(n.Destinations)
	return n
}
