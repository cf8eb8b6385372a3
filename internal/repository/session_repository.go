package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// ErrDuplicateJoinCode reports that another active session already owns
// the join code. The partial unique index on active sessions is the
// final arbiter when two hosts race past the Redis claim.
var ErrDuplicateJoinCode = errors.New("repository: join code already active")

// HostedSession is a session joined with its quiz title for history
// listings across a host's quizzes.
type HostedSession struct {
	model.Session
	QuizTitle string `json:"quiz_title"`
}

// SessionRepository handles session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByID retrieves a session by its UUID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, join_code, start_time, end_time, is_active, created_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.QuizID, &s.JoinCode, &s.StartTime, &s.EndTime, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveByCode retrieves the active session holding a join code.
// At most one can exist thanks to the partial unique index.
func (r *SessionRepository) GetActiveByCode(ctx context.Context, code string) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, join_code, start_time, end_time, is_active, created_at
		 FROM sessions WHERE join_code = $1 AND is_active`, code,
	).Scan(&s.ID, &s.QuizID, &s.JoinCode, &s.StartTime, &s.EndTime, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session. Sessions are append-only: nothing here
// ever touches earlier rows for the same quiz. A conflict on the active
// join code index inserts nothing and surfaces as ErrDuplicateJoinCode
// so the caller can regenerate.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (quiz_id, join_code, start_time, end_time, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (join_code) WHERE is_active DO NOTHING
		 RETURNING id, created_at`,
		s.QuizID, s.JoinCode, s.StartTime, s.EndTime, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateJoinCode
	}
	return err
}

// ListByQuizPaginated retrieves a quiz's sessions, newest first.
func (r *SessionRepository) ListByQuizPaginated(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE quiz_id = $1`, quizID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, join_code, start_time, end_time, is_active, created_at
		 FROM sessions WHERE quiz_id = $1
		 ORDER BY start_time DESC
		 LIMIT $2 OFFSET $3`, quizID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.QuizID, &s.JoinCode, &s.StartTime, &s.EndTime,
			&s.IsActive, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

// ListByHostPaginated retrieves sessions across all of a host's
// quizzes, newest first, with an optional active-only filter.
func (r *SessionRepository) ListByHostPaginated(ctx context.Context, hostID, limit, offset int, activeOnly bool) ([]HostedSession, int, error) {
	where := ` FROM sessions s JOIN quizzes q ON s.quiz_id = q.id WHERE q.created_by = $1`
	args := []any{hostID}

	if activeOnly {
		where += ` AND s.is_active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT s.id, s.quiz_id, s.join_code, s.start_time, s.end_time, s.is_active, s.created_at, q.title` +
		where + fmt.Sprintf(` ORDER BY s.start_time DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []HostedSession
	for rows.Next() {
		var s HostedSession
		if err := rows.Scan(&s.ID, &s.QuizID, &s.JoinCode, &s.StartTime, &s.EndTime,
			&s.IsActive, &s.CreatedAt, &s.QuizTitle); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

// DeactivateExpired flips is_active off for every session whose window
// has closed and returns how many rows were swept.
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = false
		 WHERE is_active AND end_time <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
