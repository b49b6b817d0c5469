package domain

import (
	"maps"
	"slices"
	"time"
)

// Execution is a single record of a node being executed during a session.
// Seq is the session-wide step number, so two executions never compare equal.
type Execution struct {
	Seq int       `json:"seq"`
	At  time.Time `json:"at"`
}

// SessionNode is the per-session overlay for one template node.
type SessionNode struct {
	ID             int    `json:"id"`
	SessionID      int    `json:"session_id"`
	TemplateNodeID int    `json:"template_node_id"`
	Description    string `json:"description"` // Snapshot taken at session creation.

	// ExecutedAt is set by the first execution and never overwritten.
	ExecutedAt *time.Time `json:"executed_at,omitempty"`

	// Executions is append-only; revisits add records instead of rewriting history.
	Executions []Execution `json:"executions,omitempty"`
}

// Executed reports whether the node has run at least once in this session.
func (n SessionNode) Executed() bool {
	return n.ExecutedAt != nil
}

// Clone returns a copy that shares no mutable memory with n.
func (n SessionNode) Clone() SessionNode {
	if n.ExecutedAt != nil {
		at := *n.ExecutedAt
		n.ExecutedAt = &at
	}
	n.Executions = slices.Clone(n.Executions)
	return n
}

// Step is one traversal recorded in the session history.
type Step struct {
	Seq    int       `json:"seq"`
	NodeID int       `json:"node_id"`
	At     time.Time `json:"at"`
}

// GameSession is a run-time instantiation of a Template against a Discord guild.
// It exclusively owns its overlay and holds only a reference to its template.
type GameSession struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	TemplateID int    `json:"template_id"`
	GuildID    string `json:"guild_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Nodes maps a template node id to its overlay.
	Nodes map[int]SessionNode `json:"nodes"`

	// CurrentNodeID is the node the session is positioned at.
	CurrentNodeID int `json:"current_node_id"`

	// History is the ordered list of advances taken.
	History []Step `json:"history,omitempty"`
}

// Node returns the overlay for a template node id.
func (s *GameSession) Node(templateNodeID int) (SessionNode, bool) {
	n, ok := s.Nodes[templateNodeID]
	return n, ok
}

// Visited returns the distinct node ids present in the history, in first-visit order.
func (s *GameSession) Visited() []int {
	seen := make(map[int]bool, len(s.History))
	ids := make([]int, 0, len(s.History))
	for _, step := range s.History {
		if !seen[step.NodeID] {
			seen[step.NodeID] = true
			ids = append(ids, step.NodeID)
		}
	}
	return ids
}

// NodeIDs returns the overlay keys in ascending order.
func (s *GameSession) NodeIDs() []int {
	return slices.Sorted(maps.Keys(s.Nodes))
}

// Clone returns a deep copy, used to keep returned sessions independent of their inputs.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	next := *s
	next.Nodes = make(map[int]SessionNode, len(s.Nodes))
	for id, n := range s.Nodes {
		next.Nodes[id] = n.Clone()
	}
	next.History = slices.Clone(s.History)
	return &next
}
