package ports

import (
	"github.com/aretw0/questline/pkg/domain"
)

// GraphEngine is the template graph engine as consumed by adapters (HTTP, MCP, CLI).
// All methods are pure; none of them touch persistence.
type GraphEngine interface {
	Validate(t *domain.Template) domain.ValidationResult
	NextNodes(t *domain.Template, fromNodeID int) ([]domain.TemplateNode, error)
	ReachableSet(t *domain.Template, fromNodeID int) (map[int]struct{}, error)
	CreateSessionOverlay(t *domain.Template) map[int]domain.SessionNode
	NewSession(t *domain.Template, id int, name, guildID string) (*domain.GameSession, error)
	Advance(t *domain.Template, s *domain.GameSession, toNodeID int) (*domain.GameSession, error)
	CanReach(t *domain.Template, s *domain.GameSession, target int) (bool, error)
	IsComplete(t *domain.Template, s *domain.GameSession) bool
}
