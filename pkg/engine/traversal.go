package engine

import (
	"maps"
	"slices"

	"github.com/aretw0/questline/pkg/domain"
)

// NextNodes returns the destinations of fromNodeID in declared order.
func (e *Engine) NextNodes(t *domain.Template, fromNodeID int) ([]domain.TemplateNode, error) {
	node, ok := t.Node(fromNodeID)
	if !ok {
		return nil, &domain.NodeError{NodeID: fromNodeID, Err: domain.ErrUnknownNode}
	}

	next := make([]domain.TemplateNode, 0, len(node.Destinations))
	for _, id := range node.Destinations {
		dest, ok := t.Node(id)
		if !ok {
			return nil, &domain.DanglingReferenceError{NodeID: fromNodeID, Destination: id}
		}
		next = append(next, dest.Clone())
	}
	return next, nil
}

// ReachableSet returns every node reachable from fromNodeID, including itself.
// Destinations that do not resolve are skipped; Validate reports them.
func (e *Engine) ReachableSet(t *domain.Template, fromNodeID int) (map[int]struct{}, error) {
	if _, ok := t.Node(fromNodeID); !ok {
		return nil, &domain.NodeError{NodeID: fromNodeID, Err: domain.ErrUnknownNode}
	}
	return reachable(t, fromNodeID), nil
}

// Unreachable returns the ids of nodes that cannot be reached from the entry node,
// ascending. It returns nil when the entry node itself is missing.
func (e *Engine) Unreachable(t *domain.Template) []int {
	if _, ok := t.Node(t.EntryNodeID); !ok {
		return nil
	}
	seen := reachable(t, t.EntryNodeID)

	var ids []int
	for _, id := range t.NodeIDs() {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// HasCycle reports whether the template graph contains a cycle.
func (e *Engine) HasCycle(t *domain.Template) bool {
	return findCycle(t) != nil
}

// Terminal returns the ids of nodes without destinations, ascending.
func (e *Engine) Terminal(t *domain.Template) []int {
	var ids []int
	for _, n := range t.SortedNodes() {
		if n.IsTerminal() {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// reachable runs a breadth-first traversal. The visited set guarantees termination
// on cyclic graphs.
func reachable(t *domain.Template, start int) map[int]struct{} {
	visited := map[int]struct{}{start: {}}
	queue := []int{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node, ok := t.Node(current)
		if !ok {
			continue
		}
		for _, dest := range node.Destinations {
			if _, seen := visited[dest]; seen {
				continue
			}
			if _, exists := t.Node(dest); !exists {
				continue
			}
			visited[dest] = struct{}{}
			queue = append(queue, dest)
		}
	}
	return visited
}

type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully explored
)

// findCycle runs a depth-first traversal with three-state marking over every node,
// in ascending id order so the reported cycle is deterministic. A back-edge to a
// gray node closes a cycle; the returned path starts and ends with that node.
func findCycle(t *domain.Template) []int {
	colors := make(map[int]color, len(t.Nodes))
	var path []int
	var cycle []int

	var visit func(id int) bool
	visit = func(id int) bool {
		colors[id] = gray
		path = append(path, id)

		node := t.Nodes[id]
		for _, dest := range node.Destinations {
			if _, exists := t.Nodes[dest]; !exists {
				continue
			}
			switch colors[dest] {
			case gray:
				start := slices.Index(path, dest)
				cycle = append(slices.Clone(path[start:]), dest)
				return true
			case white:
				if visit(dest) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		colors[id] = black
		return false
	}

	for _, id := range slices.Sorted(maps.Keys(t.Nodes)) {
		if colors[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}
