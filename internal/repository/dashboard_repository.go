package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// DashboardRepository handles host dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves a host's high-level metrics.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context, hostID int) (totalQuizzes, totalQuestions, totalSessions, activeSessions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM quizzes WHERE created_by = $1),
			(SELECT COUNT(*) FROM questions qn JOIN quizzes qz ON qn.quiz_id = qz.id WHERE qz.created_by = $1),
			(SELECT COUNT(*) FROM sessions s JOIN quizzes qz ON s.quiz_id = qz.id WHERE qz.created_by = $1),
			(SELECT COUNT(*) FROM sessions s JOIN quizzes qz ON s.quiz_id = qz.id WHERE qz.created_by = $1 AND s.is_active)`,
		hostID,
	).Scan(&totalQuizzes, &totalQuestions, &totalSessions, &activeSessions)
	return
}

// GetQuizStatusCounts retrieves the distribution of a host's quizzes by status.
func (r *DashboardRepository) GetQuizStatusCounts(ctx context.Context, hostID int) (map[model.QuizStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM quizzes WHERE created_by = $1 GROUP BY status`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.QuizStatus]int)
	for rows.Next() {
		var status model.QuizStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardRecentSession is a compact recent-activity row.
type DashboardRecentSession struct {
	ID        uuid.UUID `json:"id"`
	QuizID    uuid.UUID `json:"quiz_id"`
	QuizTitle string    `json:"quiz_title"`
	JoinCode  string    `json:"join_code"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

// GetRecentSessions retrieves the host's last N hosted sessions.
func (r *DashboardRepository) GetRecentSessions(ctx context.Context, hostID, limit int) ([]DashboardRecentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.quiz_id, q.title, s.join_code, s.start_time, s.end_time, s.is_active
		 FROM sessions s JOIN quizzes q ON s.quiz_id = q.id
		 WHERE q.created_by = $1
		 ORDER BY s.start_time DESC LIMIT $2`,
		hostID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []DashboardRecentSession
	for rows.Next() {
		var s DashboardRecentSession
		if err := rows.Scan(&s.ID, &s.QuizID, &s.QuizTitle, &s.JoinCode,
			&s.StartTime, &s.EndTime, &s.IsActive); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if sessions == nil {
		sessions = []DashboardRecentSession{}
	}
	return sessions, rows.Err()
}
