package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/questline/internal/logging"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/engine"
	"github.com/aretw0/questline/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a session.
const DefaultLockTTL = 30 * time.Second

// Manager orchestrates session access, ensuring safe concurrent operations.
type Manager struct {
	templates ports.TemplateStore
	sessions  ports.SessionStore
	engine    ports.GraphEngine
	hooks     domain.LifecycleHooks

	locks   *locks
	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithEngine replaces the default engine.
func WithEngine(e ports.GraphEngine) Option {
	return func(m *Manager) {
		m.engine = e
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry. Non-positive values keep DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager over the given stores.
func NewManager(templates ports.TemplateStore, sessions ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		templates: templates,
		sessions:  sessions,
		engine:    engine.New(),
		locks:     newLocks(),
		lockTTL:   DefaultLockTTL,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the graph engine used by the manager.
func (m *Manager) Engine() ports.GraphEngine {
	return m.engine
}

// Snapshot is a session together with the template-derived facts about it.
type Snapshot struct {
	Session  *domain.GameSession   `json:"session"`
	Next     []domain.TemplateNode `json:"next"`
	Complete bool                  `json:"complete"`
}

// AdvanceResult is the outcome of a successful Advance.
type AdvanceResult struct {
	Snapshot
	Diff *domain.SessionDiff `json:"diff"`
}

// Start opens a session on templateID positioned at the entry node.
// Templates with hard validation errors cannot be played.
func (m *Manager) Start(ctx context.Context, templateID int, name, guildID string) (*Snapshot, error) {
	tpl, err := m.templates.Load(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Validate(tpl).Err(); err != nil {
		return nil, fmt.Errorf("template %d is not playable: %w", templateID, err)
	}

	id, err := m.sessions.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate session id: %w", err)
	}

	sess, err := m.engine.NewSession(tpl, id, name, guildID)
	if err != nil {
		return nil, err
	}
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Debug("session started", "session_id", id, "template_id", templateID)
	m.emit(ctx, m.hooks.OnSessionStart, &domain.SessionEvent{
		Type:       domain.EventSessionStart,
		SessionID:  id,
		TemplateID: templateID,
		NodeID:     sess.CurrentNodeID,
	})

	return m.snapshot(tpl, sess)
}

// Load returns the stored session.
func (m *Manager) Load(ctx context.Context, sessionID int) (*domain.GameSession, error) {
	return m.sessions.Load(ctx, sessionID)
}

// Get returns the session with its next nodes and completion flag.
func (m *Manager) Get(ctx context.Context, sessionID int) (*Snapshot, error) {
	sess, tpl, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.snapshot(tpl, sess)
}

// Template returns the template a session was started from.
func (m *Manager) Template(ctx context.Context, sessionID int) (*domain.Template, *domain.GameSession, error) {
	sess, tpl, err := m.load(ctx, sessionID)
	return tpl, sess, err
}

// Next lists the nodes the session may advance to.
func (m *Manager) Next(ctx context.Context, sessionID int) ([]domain.TemplateNode, error) {
	sess, tpl, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := tpl.Node(sess.CurrentNodeID); !ok {
		return []domain.TemplateNode{}, nil
	}
	return m.engine.NextNodes(tpl, sess.CurrentNodeID)
}

// Advance moves the session to toNodeID and persists it.
func (m *Manager) Advance(ctx context.Context, sessionID, toNodeID int) (*AdvanceResult, error) {
	var res *AdvanceResult
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, tpl, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, ok := tpl.Node(sess.CurrentNodeID); !ok {
			return fmt.Errorf("session %d: node %d: %w", sessionID, sess.CurrentNodeID, domain.ErrNodeRemoved)
		}

		next, err := m.engine.Advance(tpl, sess, toNodeID)
		if err != nil {
			return err
		}
		if err := m.sessions.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		snap, err := m.snapshot(tpl, next)
		if err != nil {
			return err
		}
		res = &AdvanceResult{Snapshot: *snap, Diff: domain.Diff(sess, next)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sess := res.Session
	seq := len(sess.History)
	m.logger.Debug("session advanced", "session_id", sessionID, "node_id", toNodeID, "seq", seq)
	m.emit(ctx, m.hooks.OnNodeExecuted, &domain.SessionEvent{
		Type:       domain.EventNodeExecuted,
		SessionID:  sessionID,
		TemplateID: sess.TemplateID,
		NodeID:     toNodeID,
		Seq:        seq,
	})
	if res.Complete {
		m.emit(ctx, m.hooks.OnSessionComplete, &domain.SessionEvent{
			Type:       domain.EventSessionComplete,
			SessionID:  sessionID,
			TemplateID: sess.TemplateID,
			NodeID:     toNodeID,
			Seq:        seq,
		})
	}
	return res, nil
}

// Delete removes the session.
func (m *Manager) Delete(ctx context.Context, sessionID int) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.sessions.Delete(ctx, sessionID)
	})
}

// List returns all session ids in ascending order.
func (m *Manager) List(ctx context.Context) ([]int, error) {
	return m.sessions.List(ctx)
}

// load fetches a session and its template. A session whose template is gone
// fails with ErrTemplateDeleted.
func (m *Manager) load(ctx context.Context, sessionID int) (*domain.GameSession, *domain.Template, error) {
	sess, err := m.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	tpl, err := m.templates.Load(ctx, sess.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, nil, fmt.Errorf("session %d: template %d: %w", sessionID, sess.TemplateID, domain.ErrTemplateDeleted)
		}
		return nil, nil, err
	}
	return sess, tpl, nil
}

// snapshot derives Next and Complete from tpl. A current node that a later
// revision removed yields no next nodes and an incomplete session.
func (m *Manager) snapshot(tpl *domain.Template, sess *domain.GameSession) (*Snapshot, error) {
	if _, ok := tpl.Node(sess.CurrentNodeID); !ok {
		return &Snapshot{Session: sess, Next: []domain.TemplateNode{}}, nil
	}
	next, err := m.engine.NextNodes(tpl, sess.CurrentNodeID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Session:  sess,
		Next:     next,
		Complete: m.engine.IsComplete(tpl, sess),
	}, nil
}

func (m *Manager) emit(ctx context.Context, hook func(context.Context, *domain.SessionEvent), ev *domain.SessionEvent) {
	if hook == nil {
		return
	}
	ev.Timestamp = m.now()
	hook(ctx, ev)
}
