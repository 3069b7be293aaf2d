package orchestrator

import (
	"fmt"
	"strings"
)

const solutionSchema = `{"solutions": [{"name": "short title", "description": "2-3 sentences", ` +
	`"advantages": ["..."], "complexity": "Low|Medium|High", "timeEstimate": "e.g. 2 weeks", ` +
	`"technologies": ["..."]}]}`

func expanderPrompt(problem string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrite the problem below as exactly %d alternative framings.\n", n)
	sb.WriteString("Each framing must take a genuinely different angle: for example target audience, ")
	sb.WriteString("delivery platform, or what the solution should emphasise. Do not solve the problem.\n\n")
	sb.WriteString("Problem:\n")
	sb.WriteString(problem)
	sb.WriteString("\n\nRespond with JSON only, no prose, in this shape:\n")
	sb.WriteString(`{"perspectives": [{"label": "short angle name", "prompt": "the problem restated from that angle"}]}`)
	return sb.String()
}

func candidatePrompt(problem string, p Perspective, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Propose exactly %d distinct solution approaches.\n\n", n)
	fmt.Fprintf(&sb, "Perspective: %s\n", p.Label)
	fmt.Fprintf(&sb, "Problem as seen from this perspective:\n%s\n\n", p.Prompt)
	fmt.Fprintf(&sb, "Original problem:\n%s\n\n", problem)
	sb.WriteString("Respond with JSON only, no prose, in this shape:\n")
	sb.WriteString(solutionSchema)
	return sb.String()
}

func judgePrompt(problem, summaries string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Below are candidate solutions to a problem, proposed from several perspectives. "+
		"Select, deduplicate and merge them into exactly %d final solutions. "+
		"Prefer a diverse set over near-duplicates.\n\n", n)
	fmt.Fprintf(&sb, "Problem:\n%s\n\n", problem)
	sb.WriteString("Candidates:\n")
	sb.WriteString(summaries)
	sb.WriteString("\nRespond with JSON only, no prose, in this shape:\n")
	sb.WriteString(solutionSchema)
	return sb.String()
}

func directPrompt(problem string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Propose exactly %d diverse solution approaches to the problem below.\n\n", n)
	fmt.Fprintf(&sb, "Problem:\n%s\n\n", problem)
	sb.WriteString("Respond with JSON only, no prose, in this shape:\n")
	sb.WriteString(solutionSchema)
	return sb.String()
}

// summarize renders one compact line per candidate. Descriptions are cut to
// maxChars runes. labels maps perspective ids to their labels.
func summarize(candidates []Solution, labels map[string]string, maxChars int) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s: %s", i+1, c.Name, truncateRunes(c.Description, maxChars))
		if c.Complexity != ComplexityUnspecified {
			fmt.Fprintf(&sb, " [complexity: %s]", c.Complexity)
		}
		if label := labels[c.PerspectiveID]; label != "" {
			fmt.Fprintf(&sb, " [perspective: %s]", label)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
