package model

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one hosting of a quiz. Sessions are append-only:
// re-hosting a quiz creates a new row and never touches earlier ones.
// EndTime is always StartTime plus the quiz duration at hosting time.
type Session struct {
	ID        uuid.UUID `json:"id"`
	QuizID    uuid.UUID `json:"quiz_id"`
	JoinCode  string    `json:"join_code"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// JoinSessionRequest is the payload for a participant entering a session.
type JoinSessionRequest struct {
	JoinCode    string `json:"join_code" binding:"required,len=6,alphanum"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}
