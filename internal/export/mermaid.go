package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// GenerateMermaid produces a Mermaid graph TD diagram of a run: the problem
// fans out to its perspectives, which feed the reduction step that yields
// the final solutions. Solutions that kept their perspective link are drawn
// from that perspective directly.
func GenerateMermaid(res *orchestrator.Result) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("  P[\"%s\"]\n", label(res.Problem)))

	perspectiveIDs := make(map[string]string, len(res.Perspectives))
	for i, p := range res.Perspectives {
		id := fmt.Sprintf("V%d", i)
		perspectiveIDs[p.ID] = id
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, label(p.Label)))
		sb.WriteString(fmt.Sprintf("  P --> %s\n", id))
	}

	reducer := string(res.Path)
	if res.Backend != "" {
		reducer += ": " + res.Backend
	}
	sb.WriteString(fmt.Sprintf("  R{{\"%s\"}}\n", label(reducer)))
	if len(res.Perspectives) == 0 {
		sb.WriteString("  P --> R\n")
	}
	for _, p := range res.Perspectives {
		sb.WriteString(fmt.Sprintf("  %s --> R\n", perspectiveIDs[p.ID]))
	}

	for i, s := range res.Solutions {
		id := fmt.Sprintf("S%d", i)
		sb.WriteString(fmt.Sprintf("  %s[\"%d. %s\"]\n", id, i+1, label(s.Name)))
		if src, ok := perspectiveIDs[s.PerspectiveID]; ok {
			sb.WriteString(fmt.Sprintf("  %s -.-> %s\n", src, id))
		}
		sb.WriteString(fmt.Sprintf("  R --> %s\n", id))
	}
	return sb.String()
}

// label makes s safe inside a quoted Mermaid label and keeps it short.
func label(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, `"`, "'")
	r := []rune(s)
	if len(r) > 40 {
		s = string(r[:40]) + "..."
	}
	return s
}
