package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

func complexityColor(c orchestrator.Complexity, enabled bool) *color.Color {
	var col *color.Color
	switch c {
	case orchestrator.ComplexityLow:
		col = color.New(color.FgGreen)
	case orchestrator.ComplexityMedium:
		col = color.New(color.FgYellow)
	case orchestrator.ComplexityHigh:
		col = color.New(color.FgRed)
	default:
		col = color.New()
	}
	if enabled {
		col.EnableColor()
	} else {
		col.DisableColor()
	}
	return col
}

// WriteText renders res for a terminal. Complexity is colour-coded when
// colored is set; absent optional fields are omitted.
func WriteText(w io.Writer, res *orchestrator.Result, colored bool) error {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	if colored {
		bold.EnableColor()
		faint.EnableColor()
	} else {
		bold.DisableColor()
		faint.DisableColor()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", bold.Sprint("Problem:"), res.Problem)
	sb.WriteString(faint.Sprint(summaryLine(res)))
	sb.WriteString("\n\n")

	if len(res.Solutions) == 0 {
		sb.WriteString("No solutions.\n")
	}
	for i, s := range res.Solutions {
		fmt.Fprintf(&sb, "%d. %s", i+1, bold.Sprint(s.Name))
		if s.Complexity != orchestrator.ComplexityUnspecified {
			fmt.Fprintf(&sb, "  %s", complexityColor(s.Complexity, colored).Sprintf("[%s]", s.Complexity))
		}
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "   %s\n", s.Description)
		if len(s.Advantages) > 0 {
			fmt.Fprintf(&sb, "   Advantages: %s\n", strings.Join(s.Advantages, "; "))
		}
		if s.TimeEstimate != "" {
			fmt.Fprintf(&sb, "   Time: %s\n", s.TimeEstimate)
		}
		if len(s.Technologies) > 0 {
			fmt.Fprintf(&sb, "   Technologies: %s\n", strings.Join(s.Technologies, ", "))
		}
		if i < len(res.Solutions)-1 {
			sb.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func summaryLine(res *orchestrator.Result) string {
	via := string(res.Path)
	if res.Backend != "" {
		via += " via " + res.Backend
	}
	return fmt.Sprintf("run %s | %d perspectives | %d candidates | %s | %s",
		shortID(res.RunID), len(res.Perspectives), res.CandidateCount, via, res.Elapsed.Round(100*time.Millisecond))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WriteMarkdown renders res as a Markdown document.
func WriteMarkdown(w io.Writer, res *orchestrator.Result) error {
	var sb strings.Builder
	sb.WriteString("# Proposed solutions\n\n")
	for _, line := range strings.Split(res.Problem, "\n") {
		fmt.Fprintf(&sb, "> %s\n", line)
	}
	sb.WriteString("\n")

	sb.WriteString("| Run | Perspectives | Candidates | Path | Backend | Elapsed |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	backend := res.Backend
	if backend == "" {
		backend = "-"
	}
	fmt.Fprintf(&sb, "| `%s` | %d | %d | %s | %s | %s |\n\n",
		shortID(res.RunID), len(res.Perspectives), res.CandidateCount, res.Path, backend, res.Elapsed.Round(100*time.Millisecond))

	if len(res.Perspectives) > 0 {
		sb.WriteString("## Perspectives\n\n")
		for _, p := range res.Perspectives {
			fmt.Fprintf(&sb, "- **%s**: %s\n", p.Label, p.Prompt)
		}
		sb.WriteString("\n")
	}

	for i, s := range res.Solutions {
		fmt.Fprintf(&sb, "## %d. %s\n\n%s\n\n", i+1, s.Name, s.Description)
		if s.Complexity != orchestrator.ComplexityUnspecified {
			fmt.Fprintf(&sb, "- **Complexity:** %s\n", s.Complexity)
		}
		if s.TimeEstimate != "" {
			fmt.Fprintf(&sb, "- **Time estimate:** %s\n", s.TimeEstimate)
		}
		if len(s.Technologies) > 0 {
			fmt.Fprintf(&sb, "- **Technologies:** %s\n", strings.Join(s.Technologies, ", "))
		}
		if len(s.Advantages) > 0 {
			sb.WriteString("- **Advantages:**\n")
			for _, a := range s.Advantages {
				fmt.Fprintf(&sb, "  - %s\n", a)
			}
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, strings.TrimRight(sb.String(), "\n")+"\n")
	return err
}
