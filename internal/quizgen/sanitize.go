package quizgen

import (
	"errors"
	"strings"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// ErrNoUsableQuestions reports that the option-count filter dropped
// every candidate. A quiz with zero questions is not a meaningful
// artifact, so the whole request fails instead.
var ErrNoUsableQuestions = errors.New("quizgen: no candidate had enough options")

// DefaultPoints is assigned when the request carries no positive point
// configuration for a question's position.
const DefaultPoints = 100

// placeholderOptions substitutes for a malformed option set that
// reaches sanitization through a path the count filter did not cover.
var placeholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// BuildResult carries the sanitized questions plus filter diagnostics.
// Dropped counts candidates rejected by the option-count filter; the
// rejections themselves are silent per candidate and reported only in
// aggregate.
type BuildResult struct {
	Questions []model.Question
	Dropped   int
}

// Build filters and repairs candidates into persistable questions,
// applying each rule per candidate, independently:
//
//   - candidates with fewer than model.MinOptionCount options are
//     dropped and counted
//   - survivors keep their options verbatim; a survivor that still
//     lacks enough options receives the fixed placeholder set (a
//     second, independent safety net)
//   - the correct answer is kept only when it is a member of the final
//     option set, otherwise it is forced to the first option, so the
//     stored invariant holds unconditionally
//   - points come from cfg at the candidate's ordinal position when
//     present and positive, else DefaultPoints
//   - the type tag is pinned to multiple choice regardless of any hint
//     in the candidate
//
// Question order numbers follow the surviving candidates' original
// order. IDs and quiz binding are assigned at persistence time.
func Build(cands []Candidate, cfg []model.QuestionConfig) (BuildResult, error) {
	res := BuildResult{Questions: make([]model.Question, 0, len(cands))}

	for i, cand := range cands {
		if len(cand.Options) < model.MinOptionCount {
			res.Dropped++
			continue
		}
		res.Questions = append(res.Questions, sanitize(cand, pointsFor(cfg, i)))
	}

	if len(res.Questions) == 0 {
		return res, ErrNoUsableQuestions
	}

	for i := range res.Questions {
		res.Questions[i].OrderNum = i + 1
	}
	return res, nil
}

func sanitize(cand Candidate, points int) model.Question {
	opts := cand.Options
	if len(opts) < model.MinOptionCount {
		opts = append([]string(nil), placeholderOptions...)
	}

	answer := cand.CorrectAnswer
	if !containsOption(opts, answer) {
		answer = opts[0]
	}

	return model.Question{
		QuestionText:  strings.TrimSpace(cand.QuestionText),
		Type:          model.QuestionTypeMultipleChoice,
		Options:       opts,
		CorrectAnswer: answer,
		Points:        points,
	}
}

func pointsFor(cfg []model.QuestionConfig, ordinal int) int {
	if ordinal < len(cfg) && cfg[ordinal].Points > 0 {
		return cfg[ordinal].Points
	}
	return DefaultPoints
}

func containsOption(opts []string, s string) bool {
	for _, o := range opts {
		if o == s {
			return true
		}
	}
	return false
}
