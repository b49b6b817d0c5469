package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer when w is a terminal and a pass-through
// otherwise, so piped output stays plain markdown.
func NewRenderer(w io.Writer) Renderer {
	if !IsTerminal(w) {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ValidationReport formats a validation result as markdown.
func ValidationReport(source string, t *domain.Template, res domain.ValidationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", t.Name)
	fmt.Fprintf(&sb, "Source `%s` · %d nodes · entry `%d`\n\n", source, len(t.Nodes), t.EntryNodeID)

	if res.Valid() {
		sb.WriteString("**Valid**\n\n")
	} else {
		fmt.Fprintf(&sb, "**Invalid** (%d errors)\n\n", len(res.Errors))
		for _, err := range res.Errors {
			fmt.Fprintf(&sb, "- ❌ %s\n", err)
		}
		sb.WriteString("\n")
	}

	if len(res.Unreachable) > 0 {
		fmt.Fprintf(&sb, "- ⚠️ unreachable from entry: %s\n", joinInts(res.Unreachable))
	}
	if res.HasCycle {
		fmt.Fprintf(&sb, "- 🔁 cycle: %s\n", joinArrow(res.Cycle))
	}
	if len(res.Terminal) > 0 {
		fmt.Fprintf(&sb, "- 🏁 terminal nodes: %s\n", joinInts(res.Terminal))
	}
	return sb.String()
}

// SessionReport formats a session and its next options as markdown.
func SessionReport(s *domain.GameSession, next []domain.TemplateNode, complete bool) string {
	var sb strings.Builder
	title := s.Name
	if title == "" {
		title = fmt.Sprintf("Session %d", s.ID)
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Template `%d` · current node `%d` · %d steps\n\n", s.TemplateID, s.CurrentNodeID, len(s.History))

	if cur, ok := s.Node(s.CurrentNodeID); ok {
		fmt.Fprintf(&sb, "> %s\n\n", cur.Description)
	}

	if complete {
		sb.WriteString("**Complete**\n")
		return sb.String()
	}

	sb.WriteString("## Next\n\n")
	for _, n := range next {
		fmt.Fprintf(&sb, "- `%d` %s\n", n.ID, n.Description)
	}
	return sb.String()
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("`%d`", id)
	}
	return strings.Join(parts, ", ")
}

func joinArrow(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " → ")
}
