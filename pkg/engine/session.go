package engine

import (
	"slices"

	"github.com/aretw0/questline/pkg/domain"
)

// CreateSessionOverlay snapshots every template node into an unexecuted SessionNode.
// Overlay ids are assigned 1..n in ascending template node id order.
func (e *Engine) CreateSessionOverlay(t *domain.Template) map[int]domain.SessionNode {
	overlay := make(map[int]domain.SessionNode, len(t.Nodes))
	for i, n := range t.SortedNodes() {
		overlay[n.ID] = domain.SessionNode{
			ID:             i + 1,
			TemplateNodeID: n.ID,
			Description:    n.Description,
		}
	}
	return overlay
}

// NewSession creates a session positioned at the template's entry node.
// The entry node is not marked executed; only Advance records executions.
func (e *Engine) NewSession(t *domain.Template, id int, name, guildID string) (*domain.GameSession, error) {
	if _, ok := t.Node(t.EntryNodeID); !ok {
		return nil, &domain.EntryPointError{EntryNodeID: t.EntryNodeID}
	}

	now := e.now()
	overlay := e.CreateSessionOverlay(t)
	for nid, n := range overlay {
		n.SessionID = id
		overlay[nid] = n
	}

	return &domain.GameSession{
		ID:            id,
		Name:          name,
		TemplateID:    t.ID,
		GuildID:       guildID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Nodes:         overlay,
		CurrentNodeID: t.EntryNodeID,
	}, nil
}

// Advance moves the session to toNodeID, which must be a destination of the
// current node. It returns a new session value; s is left untouched.
//
// Every call appends an execution record, so advancing twice to the same node
// yields two records. Callers that want idempotence must check the current node
// first.
func (e *Engine) Advance(t *domain.Template, s *domain.GameSession, toNodeID int) (*domain.GameSession, error) {
	if s.TemplateID != t.ID {
		return nil, domain.ErrTemplateMismatch
	}

	next, err := e.NextNodes(t, s.CurrentNodeID)
	if err != nil {
		return nil, err
	}

	allowed := make([]int, 0, len(next))
	for _, n := range next {
		allowed = append(allowed, n.ID)
	}
	if !slices.Contains(allowed, toNodeID) {
		return nil, &domain.TransitionError{From: s.CurrentNodeID, To: toNodeID, Allowed: allowed}
	}

	now := e.now()
	out := s.Clone()
	seq := len(out.History) + 1

	sn, ok := out.Nodes[toNodeID]
	if !ok {
		// The node was added to the template after the session started.
		target, _ := t.Node(toNodeID)
		sn = domain.SessionNode{
			ID:             nextOverlayID(out),
			SessionID:      out.ID,
			TemplateNodeID: toNodeID,
			Description:    target.Description,
		}
	}
	if sn.ExecutedAt == nil {
		at := now
		sn.ExecutedAt = &at
	}
	sn.Executions = append(sn.Executions, domain.Execution{Seq: seq, At: now})
	out.Nodes[toNodeID] = sn

	out.CurrentNodeID = toNodeID
	out.History = append(out.History, domain.Step{Seq: seq, NodeID: toNodeID, At: now})
	out.UpdatedAt = now

	return out, nil
}

// CanReach reports whether the session can still reach target from its current node.
func (e *Engine) CanReach(t *domain.Template, s *domain.GameSession, target int) (bool, error) {
	if _, ok := t.Node(target); !ok {
		return false, &domain.NodeError{NodeID: target, Err: domain.ErrUnknownNode}
	}
	set, err := e.ReachableSet(t, s.CurrentNodeID)
	if err != nil {
		return false, err
	}
	_, ok := set[target]
	return ok, nil
}

// IsComplete reports whether the session sits on a terminal node.
// Completion is derived from the template, never stored.
func (e *Engine) IsComplete(t *domain.Template, s *domain.GameSession) bool {
	node, ok := t.Node(s.CurrentNodeID)
	return ok && node.IsTerminal()
}

func nextOverlayID(s *domain.GameSession) int {
	highest := 0
	for _, n := range s.Nodes {
		highest = max(highest, n.ID)
	}
	return highest + 1
}
