package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/dusk-indust/diverge/internal/backend"
)

// stringList decodes either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != "" {
		*l = []string{one}
	}
	return nil
}

type solutionWire struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Advantages   stringList `json:"advantages"`
	Complexity   string     `json:"complexity"`
	TimeEstimate string     `json:"timeEstimate"`
	Technologies stringList `json:"technologies"`
}

// parseSolutions decodes a solution list from completion text. Both
// {"solutions": [...]} and a bare array are accepted. Entries without a name
// or description are dropped, so an empty slice with a nil error is possible.
func parseSolutions(raw, backendID string) ([]Solution, error) {
	items, err := decodeList(raw, "solutions")
	if err != nil {
		return nil, err
	}

	out := make([]Solution, 0, len(items))
	for _, item := range items {
		var w solutionWire
		if json.Unmarshal(item, &w) != nil {
			continue
		}
		name := strings.TrimSpace(w.Name)
		desc := strings.TrimSpace(w.Description)
		if name == "" || desc == "" {
			continue
		}
		out = append(out, Solution{
			Name:         name,
			Description:  desc,
			Advantages:   compact(w.Advantages),
			Complexity:   ParseComplexity(w.Complexity),
			TimeEstimate: strings.TrimSpace(w.TimeEstimate),
			Technologies: compact(w.Technologies),
			Backend:      backendID,
		})
	}
	return out, nil
}

type perspectiveWire struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// parsePerspectives decodes expander output. A payload without the
// perspectives field yields an empty list. Entries with an empty prompt or a
// label already seen are dropped, and at most limit entries are kept.
func parsePerspectives(raw string, limit int) ([]Perspective, error) {
	items, err := decodeList(raw, "perspectives")
	if err != nil {
		if isMissingField(err) {
			return []Perspective{}, nil
		}
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	out := make([]Perspective, 0, len(items))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		var w perspectiveWire
		if json.Unmarshal(item, &w) != nil {
			continue
		}
		label := strings.TrimSpace(w.Label)
		prompt := strings.TrimSpace(w.Prompt)
		if prompt == "" {
			continue
		}
		if label == "" {
			label = "Perspective " + strconv.Itoa(len(out)+1)
		}
		key := strings.ToLower(label)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Perspective{
			ID:     "p" + strconv.Itoa(len(out)+1),
			Label:  label,
			Prompt: prompt,
		})
	}
	return out, nil
}

// missingFieldError marks an object payload that lacks the list field.
type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return "missing field " + e.field
}

func isMissingField(err error) bool {
	var mf *missingFieldError
	return errors.As(err, &mf)
}

// decodeList extracts the array stored under field, or the top-level array.
func decodeList(raw, field string) ([]json.RawMessage, error) {
	var doc json.RawMessage
	if err := backend.ExtractJSON(raw, &doc); err != nil {
		return nil, err
	}

	doc = bytes.TrimSpace(doc)
	if len(doc) > 0 && doc[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(doc, &items); err != nil {
			return nil, &backend.MalformedPayloadError{Reason: "invalid " + field + " array", Err: err}
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, &backend.MalformedPayloadError{Reason: "expected object or array", Err: err}
	}
	list, ok := obj[field]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return nil, &backend.MalformedPayloadError{Reason: "wrong shape", Err: &missingFieldError{field: field}}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, &backend.MalformedPayloadError{Reason: field + " is not an array", Err: err}
	}
	return items, nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
