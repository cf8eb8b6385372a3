package quizgen

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseable reports that every parsing strategy failed on the
// normalized text.
var ErrUnparseable = errors.New("quizgen: model output is not parseable")

// Candidate is a provisionally parsed question structure. Any field may
// be missing or inconsistent; Build applies the domain rules. Points is
// decoded when the model volunteers it but never trusted; point values
// come from the request configuration.
type Candidate struct {
	QuestionText  string   `json:"question_text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Points        *float64 `json:"points"`
}

// ParseStage identifies which strategy recovered the candidates.
type ParseStage int

const (
	StageDirect ParseStage = iota + 1
	StageRepair
	StageExtract
)

func (s ParseStage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageRepair:
		return "repair"
	case StageExtract:
		return "extract"
	default:
		return "none"
	}
}

var (
	// adjacentObjects matches a closing brace joined to the next opening
	// brace with nothing but whitespace between them.
	adjacentObjects = regexp.MustCompile(`\}\s*\{`)
	// flatObject matches a balanced single-level brace span.
	flatObject = regexp.MustCompile(`\{[^{}]*\}`)
)

// Parse recovers an ordered candidate sequence from normalized text.
// Three strategies run in strict fallback order, each tried exactly
// once, first success wins:
//
//  1. direct: the whole text as a JSON array, or as a single object
//     wrapped into a one-element sequence
//  2. repair: insert the separating comma between concatenated object
//     literals, wrap everything in an array, re-parse
//  3. extract: collect every flat brace span in the text, join them
//     into a synthetic array, parse that
//
// The graduated tolerance exists because the upstream generator gives
// no structural guarantee; strict parsing alone rejects a large share
// of salvageable outputs. Success always yields at least one candidate.
// When all strategies fail, Parse returns ErrUnparseable.
func Parse(text string) ([]Candidate, ParseStage, error) {
	if cands, ok := parseDirect(text); ok {
		return cands, StageDirect, nil
	}
	if cands, ok := parseRepaired(text); ok {
		return cands, StageRepair, nil
	}
	if cands, ok := parseExtracted(text); ok {
		return cands, StageExtract, nil
	}
	return nil, 0, ErrUnparseable
}

func parseDirect(text string) ([]Candidate, bool) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "[") {
		var cands []Candidate
		if err := json.Unmarshal([]byte(t), &cands); err == nil && len(cands) > 0 {
			return cands, true
		}
		return nil, false
	}
	if strings.HasPrefix(t, "{") {
		var single Candidate
		if err := json.Unmarshal([]byte(t), &single); err == nil {
			return []Candidate{single}, true
		}
	}
	return nil, false
}

func parseRepaired(text string) ([]Candidate, bool) {
	repaired := adjacentObjects.ReplaceAllString(strings.TrimSpace(text), "},{")
	wrapped := "[" + repaired + "]"

	var cands []Candidate
	if err := json.Unmarshal([]byte(wrapped), &cands); err == nil && len(cands) > 0 {
		return cands, true
	}
	return nil, false
}

func parseExtracted(text string) ([]Candidate, bool) {
	spans := flatObject.FindAllString(text, -1)
	if len(spans) == 0 {
		return nil, false
	}

	synthetic := "[" + strings.Join(spans, ",") + "]"

	var cands []Candidate
	if err := json.Unmarshal([]byte(synthetic), &cands); err == nil && len(cands) > 0 {
		return cands, true
	}
	return nil, false
}
