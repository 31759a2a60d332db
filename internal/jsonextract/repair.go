package jsonextract

import (
	"encoding/json"
	"strings"
)

// maxRepairAttempts bounds how many truncation points Repair tries.
const maxRepairAttempts = 64

// suffixes are tried in order after the computed closer fails.
var suffixes = []string{
	`"`,
	`}`,
	`]`,
	`"}`,
	`"]`,
	`}]`,
	`]}`,
	`"}]`,
	`}]}`,
	`"}]}`,
	`]}]`,
	`"]}`,
	`"]}]`,
	`}]}]`,
	`"}]}]`,
}

// Repair salvages a truncated object or array from raw model output.
//
// Balanced values that are not payloads, such as bracketed prose, are
// skipped, and a balanced payload is returned as is. At the first opener
// that never closes, Repair tries the whole tail, then shorter truncations
// ending at value boundaries, latest first. Each candidate is closed with
// the delimiters its open containers need and, failing that, with each
// entry of a fixed suffix table. The first candidate that is valid JSON
// wins. Repair reports false when nothing could be salvaged.
func Repair(raw string) (string, bool) {
	s := StripFences(raw)

	for from := 0; from < len(s); {
		i := strings.IndexAny(s[from:], "{[")
		if i < 0 {
			break
		}
		start := from + i

		if end, closed := scanValue(s, start); closed {
			if span := s[start : end+1]; isPayload(span) {
				return span, true
			}
			from = start + 1
			continue
		}

		body := strings.TrimSpace(s[start:])
		for _, candidate := range candidates(body) {
			if fixed, ok := terminate(candidate); ok {
				return fixed, true
			}
		}
		return "", false
	}
	return "", false
}

// candidates returns body followed by its truncations at value boundaries,
// longest first. A comma truncates before itself; a closing or opening
// delimiter truncates after itself.
func candidates(body string) []string {
	var (
		sc     scanner
		points []int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		wasString := sc.inString
		sc.step(c)
		if wasString || sc.inString {
			continue
		}
		switch c {
		case ',':
			points = append(points, i)
		case '{', '[', '}', ']':
			points = append(points, i+1)
		}
	}

	out := []string{body}
	for i := len(points) - 1; i >= 0 && len(out) < maxRepairAttempts; i-- {
		c := strings.TrimSpace(body[:points[i]])
		if c != "" && c != out[len(out)-1] {
			out = append(out, c)
		}
	}
	return out
}

// terminate tries the computed closer and then the suffix table on candidate.
func terminate(candidate string) (string, bool) {
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}

	var sc scanner
	for i := 0; i < len(candidate); i++ {
		sc.step(candidate[i])
	}
	if fixed := candidate + sc.closer(); json.Valid([]byte(fixed)) {
		return fixed, true
	}

	for _, suffix := range suffixes {
		if fixed := candidate + suffix; json.Valid([]byte(fixed)) {
			return fixed, true
		}
	}
	return "", false
}
