// Package jsonrepair recovers a JSON document from imperfect model output:
// Markdown-fenced text, trailing commas, or arrays truncated mid-element.
// It is a pure text transformation; schema validation stays with the caller.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

const previewLimit = 120

// Error reports that no repair strategy produced parseable JSON. It carries
// a bounded preview of the offending content for logs.
type Error struct {
	Preview string
}

func (e *Error) Error() string {
	return "no valid JSON document recovered from response: " + e.Preview
}

var trailingCommaRE = regexp.MustCompile(`,\s*([\]}])`)

// Repair extracts a parseable JSON document from raw and returns it.
// Already-valid JSON passes through unchanged (modulo surrounding
// whitespace), so the function is idempotent on its own output.
func Repair(raw string) (string, error) {
	s := stripFence(strings.TrimSpace(raw))
	if json.Valid([]byte(s)) {
		return s, nil
	}

	cleaned := trailingCommaRE.ReplaceAllString(s, "$1")
	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	if fixed, ok := repairArray(cleaned); ok {
		return fixed, nil
	}
	if m, ok := extractObject(cleaned); ok && json.Valid([]byte(m)) {
		return m, nil
	}

	return "", &Error{Preview: preview(raw)}
}

// stripFence removes exactly one surrounding Markdown fence pair
// (```json ... ``` or ``` ... ```), leaving inner fences alone.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", or empty) with the newline
		head := strings.TrimSpace(body[:nl])
		if head == "" || strings.EqualFold(head, "json") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// repairArray recovers the first array-shaped substring. A dangling
// trailing comma is dropped and the bracket closed; a truncated tail is
// cut back to the last syntactically complete element by tracking brace
// nesting outside quoted strings.
func repairArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	frag := strings.TrimSpace(s[start:])
	if json.Valid([]byte(frag)) {
		return frag, true
	}

	if trimmed := strings.TrimRight(frag, " \t\r\n"); strings.HasSuffix(trimmed, ",") {
		cand := strings.TrimRight(strings.TrimSuffix(trimmed, ","), " \t\r\n") + "]"
		if json.Valid([]byte(cand)) {
			return cand, true
		}
	}

	var (
		inString bool
		escaped  bool
		depth    int
		lastEnd  = -1
	)
	for i := 1; i < len(frag); i++ {
		c := frag[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				lastEnd = i
			}
		}
	}
	if lastEnd < 0 {
		return "", false
	}
	cand := frag[:lastEnd+1] + "]"
	if json.Valid([]byte(cand)) {
		return cand, true
	}
	return "", false
}

// extractObject returns the first balanced object-shaped substring,
// tracking brace nesting outside quoted strings so stray braces later in
// surrounding prose cannot extend the match.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	var (
		inString bool
		escaped  bool
		depth    int
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > previewLimit {
		return s[:previewLimit] + "..."
	}
	return s
}
