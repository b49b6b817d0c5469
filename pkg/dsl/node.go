package dsl

import "github.com/aretw0/questline/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.TemplateNode
	builder *Builder
}

// Text sets the description of the node.
func (n *NodeBuilder) Text(description string) *NodeBuilder {
	n.node.Description = description
	return n
}

// Go appends destinations to the node, in order.
func (n *NodeBuilder) Go(targets ...int) *NodeBuilder {
	n.node.Destinations = append(n.node.Destinations, targets...)
	return n
}

// Terminal marks the node as a terminal node (end of the flow).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Destinations = nil
	return n
}

// Build returns the underlying domain.TemplateNode.
func (n *NodeBuilder) Build() domain.TemplateNode {
	return n.node.Clone()
}
