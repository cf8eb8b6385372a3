package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates the possible states of a quiz.
type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "DRAFT"
	QuizStatusPublished QuizStatus = "PUBLISHED"
)

// QuizSource records how a quiz came to exist.
type QuizSource string

const (
	QuizSourceManual    QuizSource = "MANUAL"
	QuizSourceGenerated QuizSource = "GENERATED"
)

// Quiz represents a quiz entity. TotalPoints is derived from the
// question set and recomputed on every question mutation; it is never
// written directly by callers.
type Quiz struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatedBy       int        `json:"created_by"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalPoints     int        `json:"total_points"`
	Status          QuizStatus `json:"status"`
	Source          QuizSource `json:"source"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateQuizRequest is the payload for creating a quiz by hand.
type CreateQuizRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// UpdateQuizRequest is the payload for updating a draft quiz.
type UpdateQuizRequest struct {
	Title           string `json:"title" binding:"omitempty,min=3,max=255"`
	Description     string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
}

// QuestionConfig carries per-question generation settings, indexed by
// question position.
type QuestionConfig struct {
	Points int `json:"points" binding:"required,min=1,max=10000"`
}

// GenerateQuizRequest is the payload for generating a quiz from a topic.
// Title is optional; the topic is used when absent.
type GenerateQuizRequest struct {
	Topic           string           `json:"topic" binding:"required,min=3,max=200"`
	Title           string           `json:"title" binding:"omitempty,min=3,max=255"`
	QuestionCount   int              `json:"question_count" binding:"required,min=1,max=50"`
	DurationMinutes int              `json:"duration_minutes" binding:"required,min=1,max=480"`
	QuestionConfig  []QuestionConfig `json:"question_config" binding:"omitempty,max=50,dive"`
}

// SessionPayload is the Redis-cached payload served to participants.
// Correct answers are stripped before caching.
type SessionPayload struct {
	SessionID       uuid.UUID                `json:"session_id"`
	QuizID          uuid.UUID                `json:"quiz_id"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	DurationMinutes int                      `json:"duration_minutes"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	Questions       []QuestionForParticipant `json:"questions"`
}

// QuestionForParticipant is a question without its correct answer.
type QuestionForParticipant struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	Points       int       `json:"points"`
	OrderNum     int       `json:"order_num"`
}
