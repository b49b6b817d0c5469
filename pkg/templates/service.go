// Package templates is the authoring service: it validates, stamps and stores
// templates. Writes with hard graph errors are rejected; advisories are returned
// alongside the stored template.
package templates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/questline/internal/logging"
	"github.com/aretw0/questline/internal/validation"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/engine"
	"github.com/aretw0/questline/pkg/ports"
)

// Service manages templates in a TemplateStore.
type Service struct {
	store  ports.TemplateStore
	engine ports.GraphEngine
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithEngine replaces the default engine.
func WithEngine(e ports.GraphEngine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service over store.
func NewService(store ports.TemplateStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine.New(),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the graph engine used by the service.
func (s *Service) Engine() ports.GraphEngine {
	return s.engine
}

// Result is a stored template with its advisory findings.
type Result struct {
	Template   *domain.Template        `json:"template"`
	Validation domain.ValidationResult `json:"validation"`
}

// Create validates in and stores it under a fresh id.
func (s *Service) Create(ctx context.Context, in Input) (*Result, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	now := s.now()
	tpl, err := in.build(0, now, now)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, tpl)
}

// Import stores a template built elsewhere (files, Loam, DSL) under a fresh id.
// Its own id is ignored.
func (s *Service) Import(ctx context.Context, tpl *domain.Template) (*Result, error) {
	if strings.TrimSpace(tpl.Name) == "" {
		return nil, domain.ErrEmptyName
	}
	return s.insert(ctx, tpl.Clone())
}

func (s *Service) insert(ctx context.Context, tpl *domain.Template) (*Result, error) {
	res := s.engine.Validate(tpl)
	if err := res.Err(); err != nil {
		return nil, err
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate template id: %w", err)
	}
	tpl = withID(tpl, id)

	if err := s.store.Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	s.logger.Info("template created", "template_id", id, "nodes", len(tpl.Nodes))
	return &Result{Template: tpl, Validation: res}, nil
}

// Get loads a template.
func (s *Service) Get(ctx context.Context, id int) (*domain.Template, error) {
	return s.store.Load(ctx, id)
}

// List loads every template in id order.
func (s *Service) List(ctx context.Context) ([]*domain.Template, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Template, 0, len(ids))
	for _, id := range ids {
		tpl, err := s.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %d: %w", id, err)
		}
		out = append(out, tpl)
	}
	return out, nil
}

// Replace overwrites template id with in, keeping CreatedAt.
func (s *Service) Replace(ctx context.Context, id int, in Input) (*Result, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	tpl, err := in.build(id, existing.CreatedAt, s.now())
	if err != nil {
		return nil, err
	}

	res := s.engine.Validate(tpl)
	if err := res.Err(); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	s.logger.Info("template replaced", "template_id", id, "nodes", len(tpl.Nodes))
	return &Result{Template: tpl, Validation: res}, nil
}

// Delete removes a template. Sessions started from it stay in their store and
// fail with ErrTemplateDeleted from then on.
func (s *Service) Delete(ctx context.Context, id int) error {
	if _, err := s.store.Load(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

// Validate runs the engine over a stored template.
func (s *Service) Validate(ctx context.Context, id int) (domain.ValidationResult, error) {
	tpl, err := s.store.Load(ctx, id)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return s.engine.Validate(tpl), nil
}

// Next returns the destinations of nodeID in template id.
func (s *Service) Next(ctx context.Context, id, nodeID int) ([]domain.TemplateNode, error) {
	tpl, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.NextNodes(tpl, nodeID)
}

// withID rebinds a template and its nodes to id.
func withID(tpl *domain.Template, id int) *domain.Template {
	tpl.ID = id
	for nid, n := range tpl.Nodes {
		n.TemplateID = id
		tpl.Nodes[nid] = n
	}
	return tpl
}
