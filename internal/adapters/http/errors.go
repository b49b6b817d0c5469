package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/questline/internal/validation"
	"github.com/aretw0/questline/pkg/domain"
)

// Problem is one machine-readable failure.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error    string                  `json:"error"`
	Code     string                  `json:"code"`
	Fields   []validation.FieldError `json:"fields,omitempty"`
	Problems []Problem               `json:"problems,omitempty"`
}

var codes = []struct {
	err  error
	code string
}{
	{domain.ErrDanglingReference, "dangling_reference"},
	{domain.ErrInvalidEntryPoint, "invalid_entry_point"},
	{domain.ErrIllegalSelfLoop, "illegal_self_loop"},
	{domain.ErrIllegalTransition, "illegal_transition"},
	{domain.ErrUnknownNode, "unknown_node"},
	{domain.ErrDuplicateNode, "duplicate_node"},
	{domain.ErrEmptyDescription, "empty_description"},
	{domain.ErrEmptyName, "empty_name"},
	{domain.ErrTemplateMismatch, "template_mismatch"},
}

// codeOf returns the code of the first sentinel err matches.
func codeOf(err error) (string, bool) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, true
		}
	}
	return "", false
}

// statusOf maps an error to its HTTP status and code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound, "template_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrTemplateDeleted):
		return http.StatusConflict, "template_deleted"
	case errors.Is(err, domain.ErrNodeRemoved):
		return http.StatusConflict, "node_removed"
	case errors.Is(err, validation.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	}
	if code, ok := codeOf(err); ok {
		return http.StatusUnprocessableEntity, code
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if errs := domain.ValidationErrors(err); len(errs) > 0 {
		resp.Problems = problems(errs)
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		resp.Error = "internal error"
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func problems(errs []error) []Problem {
	out := make([]Problem, 0, len(errs))
	for _, e := range errs {
		code, _ := codeOf(e)
		out = append(out, Problem{Code: code, Message: e.Error()})
	}
	return out
}
