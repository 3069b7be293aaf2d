package backend

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes a surrounding ```json / ``` fence and trims
// whitespace.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSON decodes the JSON document contained in raw completion text into
// v. Fences and leading or trailing prose are tolerated. Every failure is
// reported as a *MalformedPayloadError.
func ExtractJSON(raw string, v any) error {
	text := StripCodeFences(raw)
	if text == "" {
		return &MalformedPayloadError{Reason: "no content", Raw: raw}
	}

	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	// The model may have wrapped the document in prose; retry on the body of
	// an embedded fence first, then on the bracketed spans inside the text.
	var retries []string
	if block, ok := fencedBlock(text); ok && block != "" {
		retries = append(retries, block)
		retries = append(retries, outermostJSON(block)...)
	}
	retries = append(retries, outermostJSON(text)...)
	for _, span := range retries {
		if json.Unmarshal([]byte(span), v) == nil {
			return nil
		}
	}
	return &MalformedPayloadError{Reason: "invalid JSON", Raw: truncate(raw, 200), Err: err}
}

// fencedBlock returns the body of the first ``` fence in s. The opening
// fence line, including any language tag, is skipped.
func fencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	body := rest[nl+1:]
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// outermostJSON returns candidate spans running from the first '{' (or '[')
// to the last '}' (or ']'), earliest opening bracket first.
func outermostJSON(s string) []string {
	type span struct {
		start int
		text  string
	}
	var spans []span
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if start == 0 && end == len(s)-1 {
			continue
		}
		spans = append(spans, span{start: start, text: s[start : end+1]})
	}
	if len(spans) == 2 && spans[1].start < spans[0].start {
		spans[0], spans[1] = spans[1], spans[0]
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.text
	}
	return out
}
