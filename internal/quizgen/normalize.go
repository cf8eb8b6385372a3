// Package quizgen turns raw generative-model output into persistable
// quiz questions. The stages are pure functions: Normalize strips
// formatting artifacts, Parse recovers candidate structures with
// graduated tolerance, Build filters and repairs candidates into
// questions that satisfy the domain rules.
package quizgen

import (
	"regexp"
	"strings"
)

// fenceRe matches one fenced code block, optionally tagged "json".
// Non-greedy so the match ends at the first closing fence.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Normalize strips formatting artifacts from raw model output. When a
// fenced code block is present, the content of the first block replaces
// the whole text (models like to wrap JSON in fences and chat around
// them); otherwise the text passes through unchanged. The result is
// whitespace-trimmed. Applying Normalize twice yields the same result
// as applying it once.
func Normalize(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
