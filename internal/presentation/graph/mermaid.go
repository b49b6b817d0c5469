package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/questline/pkg/domain"
)

// maxLabel bounds description length in node labels.
const maxLabel = 40

// Overlay contains session state to visualize on the graph.
type Overlay struct {
	ExecutedNodes []int
	CurrentNode   int
}

// SessionOverlay builds an Overlay from a session's history and current node.
func SessionOverlay(s *domain.GameSession) *Overlay {
	return &Overlay{
		ExecutedNodes: s.Visited(),
		CurrentNode:   s.CurrentNodeID,
	}
}

// GenerateMermaid produces a Mermaid flowchart for a template.
// Shapes:
//   - Entry: ((Circle))
//   - Terminal: ([Stadium])
//   - Default: [Rectangle]
//
// Destinations without a node are drawn dashed into a "missing" placeholder.
func GenerateMermaid(t *domain.Template, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	missing := make(map[int]bool)
	for _, node := range t.SortedNodes() {
		id := mermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == t.EntryNodeID:
			opener, closer = "((", "))"
		case node.IsTerminal():
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%d: %s\"%s\n", id, opener, node.ID, label(node.Description), closer)

		for _, dest := range node.Destinations {
			if _, ok := t.Node(dest); !ok {
				missing[dest] = true
				fmt.Fprintf(&sb, "    %s -.-> %s\n", id, missingID(dest))
				continue
			}
			fmt.Fprintf(&sb, "    %s --> %s\n", id, mermaidID(dest))
		}
	}

	if len(missing) > 0 {
		sb.WriteString("\n    %% Dangling destinations\n")
		sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-dasharray:5 5,color:#000;\n")
		for _, id := range sortedKeys(missing) {
			fmt.Fprintf(&sb, "    %s[\"%d (missing)\"]\n", missingID(id), id)
			fmt.Fprintf(&sb, "    class %s missing;\n", missingID(id))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, id := range overlay.ExecutedNodes {
			// Nodes removed from the template since the session ran are skipped.
			if _, ok := t.Node(id); !ok || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", mermaidID(id))
		}

		if _, ok := t.Node(overlay.CurrentNode); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func mermaidID(id int) string {
	if id < 0 {
		return fmt.Sprintf("n_%d", -id)
	}
	return fmt.Sprintf("n%d", id)
}

func missingID(id int) string {
	return "missing_" + strings.TrimPrefix(mermaidID(id), "n")
}

// label escapes quotes and truncates long descriptions.
func label(desc string) string {
	desc = strings.Join(strings.Fields(desc), " ")
	if r := []rune(desc); len(r) > maxLabel {
		desc = string(r[:maxLabel-1]) + "…"
	}
	return strings.ReplaceAll(desc, "\"", "'")
}

func sortedKeys(m map[int]bool) []int {
	return slices.Sorted(maps.Keys(m))
}
