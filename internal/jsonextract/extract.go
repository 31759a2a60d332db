// Package jsonextract recovers a JSON payload from free-form model output.
//
// Models wrap their answers in Markdown fences, prefix them with chatter or
// stop generating mid-object. Extract and ExtractArray locate the first
// balanced value that decodes as a payload, passing over bracketed prose;
// Repair salvages a truncated one.
package jsonextract

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNoJSONFound is returned when the text contains no opening delimiter.
	ErrNoJSONFound = errors.New("no JSON found in model output")

	// ErrUnclosedJSON is returned when a value opened before any payload
	// was found never closes.
	ErrUnclosedJSON = errors.New("unclosed JSON in model output")
)

const fence = "```"

// Extract returns the first balanced JSON object in raw that decodes.
// When none decodes and nothing is left open, the first balanced object is
// returned so the caller can report why it is malformed.
func Extract(raw string) (string, error) {
	return extract(raw, "{")
}

// ExtractArray returns the first balanced JSON object or array in raw that
// holds a payload: an object, or an array that is empty or carries at least
// one object.
func ExtractArray(raw string) (string, error) {
	return extract(raw, "{[")
}

func extract(raw, openers string) (string, error) {
	s := StripFences(raw)

	var first string
	for from := 0; from < len(s); {
		i := strings.IndexAny(s[from:], openers)
		if i < 0 {
			break
		}
		start := from + i

		end, ok := scanValue(s, start)
		if !ok {
			return "", ErrUnclosedJSON
		}

		span := s[start : end+1]
		if isPayload(span) {
			return span, nil
		}
		if first == "" {
			first = span
		}
		from = start + 1
	}

	if first != "" {
		return first, nil
	}
	return "", ErrNoJSONFound
}

// isPayload reports whether span decodes to an object, or to an array that
// is empty or holds at least one object. "[1]" in prose is not a payload.
func isPayload(span string) bool {
	var v any
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case map[string]any:
		return true
	case []any:
		if len(v) == 0 {
			return true
		}
		for _, item := range v {
			if _, ok := item.(map[string]any); ok {
				return true
			}
		}
	}
	return false
}

// StripFences removes a leading and a trailing Markdown code fence. The
// opening fence may carry a language tag such as ```json.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, fence) {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimLeft(s[len(fence):], "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)

	return strings.TrimSpace(s)
}

// scanValue walks s from the opener at start and returns the index of the
// delimiter that brings the nesting depth back to zero. Brackets inside
// string literals are ignored.
func scanValue(s string, start int) (int, bool) {
	var sc scanner
	for i := start; i < len(s); i++ {
		if sc.step(s[i]) && len(sc.stack) == 0 {
			return i, true
		}
	}
	return 0, false
}

// scanner tracks string and container state one byte at a time.
type scanner struct {
	stack    []byte
	inString bool
	escaped  bool
}

// step consumes c and reports whether it closed a container.
func (sc *scanner) step(c byte) bool {
	if sc.inString {
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\':
			sc.escaped = true
		case c == '"':
			sc.inString = false
		}
		return false
	}

	switch c {
	case '"':
		sc.inString = true
	case '{', '[':
		sc.stack = append(sc.stack, c)
	case '}', ']':
		if len(sc.stack) > 0 {
			sc.stack = sc.stack[:len(sc.stack)-1]
			return true
		}
	}
	return false
}

// closer returns the text that would close every container still open,
// terminating an open string first.
func (sc *scanner) closer() string {
	var sb strings.Builder
	if sc.inString {
		if sc.escaped {
			sb.WriteByte('\\')
		}
		sb.WriteByte('"')
	}
	for i := len(sc.stack) - 1; i >= 0; i-- {
		if sc.stack[i] == '{' {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}
