package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/questline/internal/presentation/graph"
	"github.com/aretw0/questline/internal/validation"
)

// StartRequest opens a session.
type StartRequest struct {
	TemplateID int    `json:"template_id" validate:"gte=0"`
	Name       string `json:"name" validate:"max=200"`
	GuildID    string `json:"guild_id" validate:"max=64"`
}

// AdvanceRequest moves a session.
type AdvanceRequest struct {
	ToNodeID *int `json:"to_node_id" validate:"required"`
}

// SessionSummary is a list entry.
type SessionSummary struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	TemplateID    int       `json:"template_id"`
	GuildID       string    `json:"guild_id"`
	CurrentNodeID int       `json:"current_node_id"`
	Steps         int       `json:"steps"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func itoa(i int) string { return strconv.Itoa(i) }

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	guild, err := stringParam(r, "guild_id")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	ids, err := s.sessions.List(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if guild != "" && sess.GuildID != guild {
			continue
		}
		out = append(out, SessionSummary{
			ID:            sess.ID,
			Name:          sess.Name,
			TemplateID:    sess.TemplateID,
			GuildID:       sess.GuildID,
			CurrentNodeID: sess.CurrentNodeID,
			Steps:         len(sess.History),
			UpdatedAt:     sess.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decode(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.sessions.Start(r.Context(), req.TemplateID, req.Name, req.GuildID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+itoa(snap.Session.ID))
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	snap, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if _, err := s.sessions.Load(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) advanceSession(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var req AdvanceRequest
	if err := decode(w, r, &req); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.sessions.Advance(r.Context(), id, *req.ToNodeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) sessionNext(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	next, err := s.sessions.Next(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, next)
}

func (s *Server) sessionGraph(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "sessionID")
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	tpl, sess, err := s.sessions.Template(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeText(w, graph.GenerateMermaid(tpl, graph.SessionOverlay(sess)))
}
