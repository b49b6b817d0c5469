package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/questline/pkg/domain"
)

// subscriberBuffer is the per-client backlog before events are dropped.
const subscriberBuffer = 16

// StreamManager fans session lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[int]map[chan *domain.SessionEvent]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[int]map[chan *domain.SessionEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for sessionID. The returned function
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID int) (<-chan *domain.SessionEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan *domain.SessionEvent, subscriberBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan *domain.SessionEvent]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast delivers ev to every subscriber of its session without blocking.
func (sm *StreamManager) Broadcast(ev *domain.SessionEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping event", "session_id", ev.SessionID)
		}
	}
}

// Hooks broadcasts every lifecycle event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	broadcast := func(_ context.Context, ev *domain.SessionEvent) {
		cp := *ev
		sm.Broadcast(&cp)
	}
	return domain.LifecycleHooks{
		OnSessionStart:    broadcast,
		OnNodeExecuted:    broadcast,
		OnSessionComplete: broadcast,
	}
}

// sessionEvents streams lifecycle events of one session as Server-Sent Events.
// `?types=node_executed,session_complete` filters by event type. Idle streams
// receive a comment line every keep-alive interval.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if _, err := s.sessions.Load(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	types, err := listParam(r, "types")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var filter map[domain.EventType]bool
	if len(types) > 0 {
		filter = make(map[domain.EventType]bool, len(types))
		for _, t := range types {
			filter[domain.EventType(t)] = true
		}
	}

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Type] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
