package domain

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID int `json:"session_id"`

	CurrentNodeID *int `json:"current_node_id,omitempty"`

	// Executed contains only the history steps appended since the old snapshot.
	Executed []Step `json:"executed,omitempty"`

	// Nodes contains the overlays whose execution records changed.
	Nodes map[int]SessionNode `json:"nodes,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession (initial load).
func Diff(oldSession, newSession *GameSession) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{
		SessionID: newSession.ID,
	}

	if oldSession == nil || oldSession.CurrentNodeID != newSession.CurrentNodeID {
		current := newSession.CurrentNodeID
		diff.CurrentNodeID = &current
	}

	diff.Executed = diffHistory(oldSession, newSession)
	diff.Nodes = diffNodes(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// diffHistory assumes append-only history.
func diffHistory(old, new *GameSession) []Step {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return append([]Step(nil), new.History...)
	}
	if len(new.History) > len(old.History) {
		return append([]Step(nil), new.History[len(old.History):]...)
	}
	return nil
}

func diffNodes(old, new *GameSession) map[int]SessionNode {
	delta := make(map[int]SessionNode)
	for id, n := range new.Nodes {
		if old == nil {
			delta[id] = n.Clone()
			continue
		}
		prev, ok := old.Nodes[id]
		if !ok || len(prev.Executions) != len(n.Executions) {
			delta[id] = n.Clone()
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		len(d.Executed) == 0 &&
		len(d.Nodes) == 0
}
