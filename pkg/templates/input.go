package templates

import (
	"time"

	"github.com/aretw0/questline/pkg/domain"
)

// Input is the authoring payload for creating or replacing a template.
type Input struct {
	Name        string      `json:"name" validate:"notblank,max=200"`
	EntryNodeID int         `json:"entry_node_id" validate:"gte=0"`
	Nodes       []NodeInput `json:"nodes" validate:"required,min=1,dive"`
}

// NodeInput is one node of an Input.
type NodeInput struct {
	ID           int    `json:"id" validate:"gte=0"`
	Description  string `json:"description" validate:"notblank,max=2000"`
	Destinations []int  `json:"destinations" validate:"dive,gte=0"`
}

// FromTemplate converts a template back into an Input, nodes in id order.
func FromTemplate(t *domain.Template) Input {
	in := Input{Name: t.Name, EntryNodeID: t.EntryNodeID}
	for _, n := range t.SortedNodes() {
		in.Nodes = append(in.Nodes, NodeInput{
			ID:           n.ID,
			Description:  n.Description,
			Destinations: n.Destinations,
		})
	}
	return in
}

func (in Input) build(id int, created, at time.Time) (*domain.Template, error) {
	tpl := domain.NewTemplate(id, in.Name, in.EntryNodeID, created)
	for _, n := range in.Nodes {
		node := domain.TemplateNode{ID: n.ID, Description: n.Description, Destinations: n.Destinations}
		if err := tpl.AddNode(node, at); err != nil {
			return nil, err
		}
	}
	tpl.UpdatedAt = at
	return tpl, nil
}
