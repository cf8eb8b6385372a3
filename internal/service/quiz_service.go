package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/model"
)

var (
	// ErrQuizNotFound is returned when a quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotQuizOwner is returned when a host operates on a quiz they do not own.
	ErrNotQuizOwner = errors.New("not the quiz owner")
	// ErrQuizNotDraft is returned when a mutation requires DRAFT status.
	ErrQuizNotDraft = errors.New("quiz is not in draft status")
	// ErrQuizNotPublished is returned when hosting requires PUBLISHED status.
	ErrQuizNotPublished = errors.New("quiz is not published")
	// ErrNoQuestions is returned when publishing a quiz with no questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrAnswerNotInOptions is returned when a submitted correct answer is
	// not one of the submitted options.
	ErrAnswerNotInOptions = errors.New("correct answer must be one of the options")
)

// QuizService handles quiz and question authoring for hosts.
type QuizService struct {
	quizzes   QuizStore
	questions QuestionStore
	log       zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizzes QuizStore, questions QuestionStore, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		questions: questions,
		log:       log.With().Str("component", "quiz_service").Logger(),
	}
}

// Create stores a new manually authored quiz in DRAFT status.
func (s *QuizService) Create(ctx context.Context, ownerID int, req model.CreateQuizRequest) (*model.Quiz, error) {
	quiz := &model.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		CreatedBy:       ownerID,
		DurationMinutes: req.DurationMinutes,
		Status:          model.QuizStatusDraft,
		Source:          model.QuizSourceManual,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	s.log.Info().Str("quiz_id", quiz.ID.String()).Int("owner_id", ownerID).Msg("quiz created")
	return quiz, nil
}

// GetOwned fetches a quiz and verifies the caller owns it.
func (s *QuizService) GetOwned(ctx context.Context, id uuid.UUID, ownerID int) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.CreatedBy != ownerID {
		return nil, ErrNotQuizOwner
	}
	return quiz, nil
}

// ListByOwner returns the caller's quizzes with pagination, optionally
// filtered by a title search and status.
func (s *QuizService) ListByOwner(ctx context.Context, ownerID, page, perPage int, search string, status model.QuizStatus) ([]model.Quiz, int, error) {
	page, perPage = clampPage(page, perPage)
	return s.quizzes.ListByOwnerPaginated(ctx, ownerID, perPage, (page-1)*perPage, search, status)
}

// Update modifies a draft quiz's metadata. Published quizzes are frozen
// so running sessions always see the content they were hosted with.
func (s *QuizService) Update(ctx context.Context, id uuid.UUID, ownerID int, req model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Description != "" {
		quiz.Description = req.Description
	}
	if req.DurationMinutes != 0 {
		quiz.DurationMinutes = req.DurationMinutes
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// Delete removes a quiz the caller owns. Questions and session records
// are removed with it.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID, ownerID int) error {
	if _, err := s.GetOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}

	s.log.Info().Str("quiz_id", id.String()).Int("owner_id", ownerID).Msg("quiz deleted")
	return nil
}

// Publish moves a draft quiz to PUBLISHED after recomputing its total
// points. A quiz with no questions cannot be published.
func (s *QuizService) Publish(ctx context.Context, id uuid.UUID, ownerID int) (*model.Quiz, error) {
	quiz, err := s.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}

	questions, err := s.questions.ListByQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	total, err := s.quizzes.RecomputeTotalPoints(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("recompute total points: %w", err)
	}

	if err := s.quizzes.UpdateStatus(ctx, id, model.QuizStatusPublished); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	quiz.Status = model.QuizStatusPublished
	quiz.TotalPoints = total

	s.log.Info().
		Str("quiz_id", id.String()).
		Int("question_count", len(questions)).
		Int("total_points", total).
		Msg("quiz published")
	return quiz, nil
}

// ListQuestions returns a quiz's questions in order for its owner.
func (s *QuizService) ListQuestions(ctx context.Context, quizID uuid.UUID, ownerID int) ([]model.Question, error) {
	if _, err := s.GetOwned(ctx, quizID, ownerID); err != nil {
		return nil, err
	}
	return s.questions.ListByQuiz(ctx, quizID)
}

// AddQuestion appends a question to a draft quiz and refreshes the
// quiz's total points.
func (s *QuizService) AddQuestion(ctx context.Context, quizID uuid.UUID, ownerID int, req model.AddQuestionRequest) (*model.Question, error) {
	quiz, err := s.GetOwned(ctx, quizID, ownerID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}
	if !containsString(req.Options, req.CorrectAnswer) {
		return nil, ErrAnswerNotInOptions
	}

	existing, err := s.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	question := &model.Question{
		QuizID:        quizID,
		QuestionText:  req.QuestionText,
		Type:          model.QuestionTypeMultipleChoice,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		OrderNum:      len(existing) + 1,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	if _, err := s.quizzes.RecomputeTotalPoints(ctx, quizID); err != nil {
		return nil, fmt.Errorf("recompute total points: %w", err)
	}
	return question, nil
}

// ReplaceQuestions swaps a draft quiz's entire question set in one
// transaction and refreshes the quiz's total points.
func (s *QuizService) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, ownerID int, req model.ReplaceQuestionsRequest) ([]model.Question, error) {
	quiz, err := s.GetOwned(ctx, quizID, ownerID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, q := range req.Questions {
		if !containsString(q.Options, q.CorrectAnswer) {
			return nil, fmt.Errorf("question %d: %w", i+1, ErrAnswerNotInOptions)
		}
		questions = append(questions, model.Question{
			QuizID:        quizID,
			QuestionText:  q.QuestionText,
			Type:          model.QuestionTypeMultipleChoice,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			OrderNum:      i + 1,
		})
	}

	if err := s.questions.ReplaceAll(ctx, quizID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	if _, err := s.quizzes.RecomputeTotalPoints(ctx, quizID); err != nil {
		return nil, fmt.Errorf("recompute total points: %w", err)
	}

	return s.questions.ListByQuiz(ctx, quizID)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
