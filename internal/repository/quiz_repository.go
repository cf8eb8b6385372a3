package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// QuizRepository handles quiz data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, created_by, duration_minutes,
		        total_points, status, source, created_at, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.Description, &q.CreatedBy, &q.DurationMinutes,
		&q.TotalPoints, &q.Status, &q.Source, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByOwnerPaginated retrieves an owner's quizzes with pagination and
// an optional title search and status filter.
func (r *QuizRepository) ListByOwnerPaginated(ctx context.Context, ownerID, limit, offset int, search string, status model.QuizStatus) ([]model.Quiz, int, error) {
	where := ` WHERE created_by = $1`
	args := []any{ownerID}

	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, title, description, created_by, duration_minutes,
	                 total_points, status, source, created_at, updated_at
	          FROM quizzes` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.CreatedBy, &q.DurationMinutes,
			&q.TotalPoints, &q.Status, &q.Source, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, rows.Err()
}

// Create inserts a new quiz. TotalPoints starts at zero and is only
// ever moved by RecomputeTotalPoints.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, created_by, duration_minutes, status, source)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, total_points, created_at, updated_at`,
		q.Title, q.Description, q.CreatedBy, q.DurationMinutes, q.Status, q.Source,
	).Scan(&q.ID, &q.TotalPoints, &q.CreatedAt, &q.UpdatedAt)
}

// Update changes a quiz's editable fields.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET title = $1, description = $2, duration_minutes = $3, updated_at = NOW()
		 WHERE id = $4`,
		q.Title, q.Description, q.DurationMinutes, q.ID)
	return err
}

// UpdateStatus updates a quiz's lifecycle status.
func (r *QuizRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuizStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// RecomputeTotalPoints derives total_points from the stored question
// set and returns the new value.
func (r *QuizRepository) RecomputeTotalPoints(ctx context.Context, id uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`UPDATE quizzes
		 SET total_points = COALESCE((SELECT SUM(points) FROM questions WHERE quiz_id = $1), 0),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING total_points`, id,
	).Scan(&total)
	return total, err
}

// Delete removes a quiz. Questions and sessions cascade in the schema.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

// DeleteAbandonedGenerated removes generated quizzes that never left
// draft state before the cutoff. Used by the reconciler job to clean up
// after failed generation pipelines.
func (r *QuizRepository) DeleteAbandonedGenerated(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM quizzes
		 WHERE source = $1 AND status = $2 AND created_at < $3`,
		model.QuizSourceGenerated, model.QuizStatusDraft, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
