package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Graph errors. Structured errors below match these via errors.Is.
var (
	ErrDanglingReference = errors.New("dangling reference")
	ErrInvalidEntryPoint = errors.New("invalid entry point")
	ErrIllegalSelfLoop   = errors.New("illegal self loop")
	ErrUnknownNode       = errors.New("unknown node")
	ErrIllegalTransition = errors.New("illegal transition")
)

// Authoring errors.
var (
	ErrDuplicateNode    = errors.New("duplicate node")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrTemplateMismatch = errors.New("session does not belong to template")
)

// Persistence errors.
var (
	// ErrTemplateNotFound is returned when a template ID cannot be found in the store.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTemplateDeleted is returned when a session refers to a template that no longer exists.
	ErrTemplateDeleted = errors.New("template deleted")

	// ErrNodeRemoved is returned when advancing a session whose current node
	// was removed by a later template revision.
	ErrNodeRemoved = errors.New("current node removed from template")
)

// DanglingReferenceError reports a destination id with no corresponding node.
type DanglingReferenceError struct {
	NodeID      int
	Destination int
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("node %d: destination %d does not exist", e.NodeID, e.Destination)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// EntryPointError reports an entry node id missing from the node set.
type EntryPointError struct {
	EntryNodeID int
}

func (e *EntryPointError) Error() string {
	return fmt.Sprintf("entry node %d does not exist", e.EntryNodeID)
}

func (e *EntryPointError) Unwrap() error { return ErrInvalidEntryPoint }

// SelfLoopError reports a node listing itself as destination.
type SelfLoopError struct {
	NodeID int
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("node %d lists itself as destination", e.NodeID)
}

func (e *SelfLoopError) Unwrap() error { return ErrIllegalSelfLoop }

// NodeError attaches a node id to an error.
type NodeError struct {
	NodeID int
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// TransitionError reports an advance to a node that is not adjacent to the current one.
type TransitionError struct {
	From    int
	To      int
	Allowed []int
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot advance from node %d to node %d (allowed: %v)", e.From, e.To, e.Allowed)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the members so errors.Is matches any of them.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
