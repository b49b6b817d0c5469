package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Template is a reusable, author-time definition of a node graph.
// It exclusively owns its nodes. The engine treats it as read-only; only the
// authoring methods below mutate it, and each of them advances UpdatedAt.
type Template struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name" validate:"required"`
	Nodes       map[int]TemplateNode `json:"nodes"`
	EntryNodeID int                  `json:"entry_node_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewTemplate creates an empty template. The entry node must be added before the
// template validates.
func NewTemplate(id int, name string, entryNodeID int, at time.Time) *Template {
	return &Template{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Nodes:       make(map[int]TemplateNode),
		EntryNodeID: entryNodeID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// Node looks up a node by id.
func (t *Template) Node(id int) (TemplateNode, bool) {
	n, ok := t.Nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in ascending order.
func (t *Template) NodeIDs() []int {
	return slices.Sorted(maps.Keys(t.Nodes))
}

// SortedNodes returns all nodes ordered by id.
func (t *Template) SortedNodes() []TemplateNode {
	nodes := make([]TemplateNode, 0, len(t.Nodes))
	for _, id := range t.NodeIDs() {
		nodes = append(nodes, t.Nodes[id])
	}
	return nodes
}

// Rename sets a new trimmed name.
func (t *Template) Rename(name string, at time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	t.Name = name
	t.touch(at)
	return nil
}

// AddNode inserts a new node. Its TemplateID is forced to the template's id.
// Destinations are not checked here; Validate reports dangling ones, which lets
// authors add nodes in any order.
func (t *Template) AddNode(n TemplateNode, at time.Time) error {
	if _, exists := t.Nodes[n.ID]; exists {
		return &NodeError{NodeID: n.ID, Err: ErrDuplicateNode}
	}
	n.Description = strings.TrimSpace(n.Description)
	if n.Description == "" {
		return &NodeError{NodeID: n.ID, Err: ErrEmptyDescription}
	}
	if t.Nodes == nil {
		t.Nodes = make(map[int]TemplateNode)
	}
	n = n.Clone()
	n.TemplateID = t.ID
	t.Nodes[n.ID] = n
	t.touch(at)
	return nil
}

// UpdateDescription replaces a node's label.
func (t *Template) UpdateDescription(id int, description string, at time.Time) error {
	n, ok := t.Nodes[id]
	if !ok {
		return &NodeError{NodeID: id, Err: ErrUnknownNode}
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return &NodeError{NodeID: id, Err: ErrEmptyDescription}
	}
	n.Description = description
	t.Nodes[id] = n
	t.touch(at)
	return nil
}

// RemoveNode deletes a node and every edge pointing at it.
// Removing the entry node is allowed; the template then fails validation with
// ErrInvalidEntryPoint until SetEntry is called.
func (t *Template) RemoveNode(id int, at time.Time) error {
	if _, ok := t.Nodes[id]; !ok {
		return &NodeError{NodeID: id, Err: ErrUnknownNode}
	}
	delete(t.Nodes, id)
	for nid, n := range t.Nodes {
		if n.HasDestination(id) {
			n.Destinations = slices.DeleteFunc(slices.Clone(n.Destinations), func(d int) bool { return d == id })
			t.Nodes[nid] = n
		}
	}
	t.touch(at)
	return nil
}

// Connect appends to as a destination of from. Connecting an existing edge is a no-op.
func (t *Template) Connect(from, to int, at time.Time) error {
	n, ok := t.Nodes[from]
	if !ok {
		return &NodeError{NodeID: from, Err: ErrUnknownNode}
	}
	if _, ok := t.Nodes[to]; !ok {
		return &DanglingReferenceError{NodeID: from, Destination: to}
	}
	if n.HasDestination(to) {
		return nil
	}
	n.Destinations = append(slices.Clone(n.Destinations), to)
	t.Nodes[from] = n
	t.touch(at)
	return nil
}

// Disconnect removes the edge from -> to, if present.
func (t *Template) Disconnect(from, to int, at time.Time) error {
	n, ok := t.Nodes[from]
	if !ok {
		return &NodeError{NodeID: from, Err: ErrUnknownNode}
	}
	if !n.HasDestination(to) {
		return nil
	}
	n.Destinations = slices.DeleteFunc(slices.Clone(n.Destinations), func(d int) bool { return d == to })
	t.Nodes[from] = n
	t.touch(at)
	return nil
}

// SetEntry designates the starting node.
func (t *Template) SetEntry(id int, at time.Time) error {
	if _, ok := t.Nodes[id]; !ok {
		return &EntryPointError{EntryNodeID: id}
	}
	t.EntryNodeID = id
	t.touch(at)
	return nil
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	next := *t
	next.Nodes = make(map[int]TemplateNode, len(t.Nodes))
	for id, n := range t.Nodes {
		next.Nodes[id] = n.Clone()
	}
	return &next
}

func (t *Template) touch(at time.Time) {
	if at.After(t.UpdatedAt) {
		t.UpdatedAt = at
	}
}
