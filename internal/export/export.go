// Package export renders pipeline results for terminals, documents and
// machines.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// Format selects an output renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatMermaid  Format = "mermaid"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMarkdown, FormatMermaid}

// ParseFormat resolves a user-supplied format name. "md" and "yml" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "mermaid":
		return FormatMermaid, nil
	default:
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, joinFormats())
	}
}

func joinFormats() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Options tunes rendering.
type Options struct {
	// Color enables ANSI colours in text output.
	Color bool
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *orchestrator.Result, format Format, opts Options) error {
	switch format {
	case FormatText:
		return WriteText(w, res, opts.Color)
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteYAML(w, res)
	case FormatMarkdown:
		return WriteMarkdown(w, res)
	case FormatMermaid:
		_, err := io.WriteString(w, GenerateMermaid(res))
		return err
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}
}

// WriteJSON writes res as indented JSON followed by a newline.
func WriteJSON(w io.Writer, res *orchestrator.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// WriteYAML writes res as a YAML document.
func WriteYAML(w io.Writer, res *orchestrator.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return enc.Close()
}
