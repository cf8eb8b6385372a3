package service

import (
	"context"

	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
)

// DashboardData consolidates a host's activity overview.
type DashboardData struct {
	TotalQuizzes     int                                 `json:"total_quizzes"`
	TotalQuestions   int                                 `json:"total_questions"`
	TotalSessions    int                                 `json:"total_sessions"`
	ActiveSessions   int                                 `json:"active_sessions"`
	QuizStatusCounts map[model.QuizStatus]int            `json:"quiz_status_counts"`
	RecentSessions   []repository.DashboardRecentSession `json:"recent_sessions"`
}

// DashboardService aggregates per-host dashboard metrics.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics for one host.
func (s *DashboardService) GetDashboardData(ctx context.Context, hostID int) (*DashboardData, error) {
	quizzes, questions, sessions, active, err := s.repo.GetSummaryCounts(ctx, hostID)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetQuizStatusCounts(ctx, hostID)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentSessions(ctx, hostID, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalQuizzes:     quizzes,
		TotalQuestions:   questions,
		TotalSessions:    sessions,
		ActiveSessions:   active,
		QuizStatusCounts: statusCounts,
		RecentSessions:   recent,
	}, nil
}
