package http

import (
	"net/http"
	"time"

	"github.com/aretw0/questline/internal/presentation/graph"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/templates"
)

// TemplateSummary is a list entry.
type TemplateSummary struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	EntryNodeID int       `json:"entry_node_id"`
	Nodes       int       `json:"nodes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidationResponse is the JSON form of domain.ValidationResult.
type ValidationResponse struct {
	Valid       bool      `json:"valid"`
	Errors      []Problem `json:"errors"`
	Unreachable []int     `json:"unreachable"`
	HasCycle    bool      `json:"has_cycle"`
	Cycle       []int     `json:"cycle,omitempty"`
	Terminal    []int     `json:"terminal"`
}

// TemplateResponse is returned by create and replace.
type TemplateResponse struct {
	Template   *domain.Template   `json:"template"`
	Validation ValidationResponse `json:"validation"`
}

func newValidationResponse(res domain.ValidationResult) ValidationResponse {
	return ValidationResponse{
		Valid:       res.Valid(),
		Errors:      problems(res.Errors),
		Unreachable: nonNil(res.Unreachable),
		HasCycle:    res.HasCycle,
		Cycle:       res.Cycle,
		Terminal:    nonNil(res.Terminal),
	}
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := s.templates.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]TemplateSummary, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, TemplateSummary{
			ID:          t.ID,
			Name:        t.Name,
			EntryNodeID: t.EntryNodeID,
			Nodes:       len(t.Nodes),
			UpdatedAt:   t.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var in templates.Input
	if err := decode(w, r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	res, err := s.templates.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/templates/"+itoa(res.Template.ID))
	s.writeJSON(w, http.StatusCreated, TemplateResponse{
		Template:   res.Template,
		Validation: newValidationResponse(res.Validation),
	})
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	tpl, err := s.templates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) replaceTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var in templates.Input
	if err := decode(w, r, &in); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	res, err := s.templates.Replace(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TemplateResponse{
		Template:   res.Template,
		Validation: newValidationResponse(res.Validation),
	})
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := s.templates.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) validateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	res, err := s.templates.Validate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newValidationResponse(res))
}

func (s *Server) templateNext(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	nodeID, err := intParam(r, "nodeID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	next, err := s.templates.Next(r.Context(), id, nodeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, next)
}

func (s *Server) templateGraph(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "templateID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	tpl, err := s.templates.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeText(w, graph.GenerateMermaid(tpl, nil))
}
