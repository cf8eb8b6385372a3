package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
)

// The store interfaces below are satisfied by the pgx repositories in
// internal/repository. Services depend on them instead of the concrete
// types so the generation and hosting flows can run against in-memory
// stores in tests.

// UserStore provides host account persistence.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// QuizStore provides quiz persistence.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	ListByOwnerPaginated(ctx context.Context, ownerID, limit, offset int, search string, status model.QuizStatus) ([]model.Quiz, int, error)
	Create(ctx context.Context, quiz *model.Quiz) error
	Update(ctx context.Context, quiz *model.Quiz) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuizStatus) error
	RecomputeTotalPoints(ctx context.Context, quizID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionStore provides question persistence.
type QuestionStore interface {
	ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Question, error)
	Create(ctx context.Context, question *model.Question) error
	CreateBatch(ctx context.Context, questions []model.Question) error
	ReplaceAll(ctx context.Context, quizID uuid.UUID, questions []model.Question) error
}

// SessionStore provides session persistence.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	GetActiveByCode(ctx context.Context, code string) (*model.Session, error)
	Create(ctx context.Context, session *model.Session) error
	ListByQuizPaginated(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]model.Session, int, error)
	ListByHostPaginated(ctx context.Context, hostID, limit, offset int, activeOnly bool) ([]repository.HostedSession, int, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
