package utils

import (
	"strings"
	"unicode/utf8"
)

// ErrJSON produces the standard JSON error response body.
func ErrJSON(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}

// ErrDetailJSON produces a validation error body with a per-field breakdown.
func ErrDetailJSON(msg string, detail map[string]string) map[string]any {
	return map[string]any{
		"error":  msg,
		"detail": detail,
	}
}

// CleanJSON removes markdown code blocks from a string to extract raw JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			if strings.HasPrefix(lines[0], "```") {
				lines = lines[1:]
			}
			if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
				lines = lines[:len(lines)-1]
			}
			s = strings.Join(lines, "\n")
		}
	}
	return strings.TrimSpace(s)
}

// RuneLen counts characters, not bytes. Length targets are expressed in
// Japanese character counts, so byte length is never the right measure.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// LimitStr returns a string truncated to n runes with "..." appended if longer.
func LimitStr(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
