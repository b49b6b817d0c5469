package engine

import (
	"github.com/aretw0/questline/pkg/domain"
)

// Validate checks a template's structural invariants.
//
// Hard errors are collected in this order: dangling destinations, a missing entry
// node, then self-loops (unless permitted). Unreachable nodes, cycles and terminal
// nodes are computed as advisory findings and never fail validation.
func (e *Engine) Validate(t *domain.Template) domain.ValidationResult {
	var res domain.ValidationResult
	nodes := t.SortedNodes()

	for _, n := range nodes {
		for _, dest := range n.Destinations {
			if _, ok := t.Node(dest); !ok {
				res.Errors = append(res.Errors, &domain.DanglingReferenceError{NodeID: n.ID, Destination: dest})
			}
		}
	}

	if _, ok := t.Node(t.EntryNodeID); !ok {
		res.Errors = append(res.Errors, &domain.EntryPointError{EntryNodeID: t.EntryNodeID})
	}

	if !e.allowSelfLoops {
		for _, n := range nodes {
			if n.HasDestination(n.ID) {
				res.Errors = append(res.Errors, &domain.SelfLoopError{NodeID: n.ID})
			}
		}
	}

	res.Unreachable = e.Unreachable(t)
	res.Cycle = findCycle(t)
	res.HasCycle = res.Cycle != nil
	res.Terminal = e.Terminal(t)

	return res
}
