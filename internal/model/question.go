package model

import "github.com/google/uuid"

// QuestionType tags the kind of question. Only multiple choice is
// supported by the ingestion pipeline; the tag exists so stored rows
// stay self-describing.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
)

// MinOptionCount is the smallest option set a stored question may carry.
const MinOptionCount = 4

// Question represents a single quiz question. Invariant: CorrectAnswer
// is always an element of Options; the sanitizer and the manual CRUD
// path both enforce it at creation and it is never relaxed afterwards.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	QuizID        uuid.UUID    `json:"quiz_id"`
	QuestionText  string       `json:"question_text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	OrderNum      int          `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question by hand.
// Order is assigned by the server: appended questions go last, and a
// bulk replace numbers questions by their array position.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=4,max=10,dive,required,max=500"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=500"`
	Points        int      `json:"points" binding:"required,min=1,max=10000"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a quiz's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,max=100,dive"`
}
