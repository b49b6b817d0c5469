package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventNodeExecuted    EventType = "node_executed"
	EventSessionComplete EventType = "session_complete"
)

// SessionEvent is emitted by the session manager after a change has been persisted.
type SessionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionID  int       `json:"session_id"`
	TemplateID int       `json:"template_id"`
	NodeID     int       `json:"node_id"`
	Seq        int       `json:"seq,omitempty"`
}

// LifecycleHooks defines callbacks for session observability.
type LifecycleHooks struct {
	OnSessionStart    func(context.Context, *SessionEvent)
	OnNodeExecuted    func(context.Context, *SessionEvent)
	OnSessionComplete func(context.Context, *SessionEvent)
}
