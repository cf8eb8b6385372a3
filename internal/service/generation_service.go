package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/llm"
	"github.com/quizforge/quizforge-backend/internal/metrics"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/quizgen"
)

// ErrGeneratorUnavailable is returned when the text generation backend
// is unreachable, times out, or is not configured.
var ErrGeneratorUnavailable = errors.New("text generator unavailable")

const generationTemperature = 0.4

// GeneratedQuiz is the result of a successful generate-and-host run.
type GeneratedQuiz struct {
	Quiz          *model.Quiz    `json:"quiz"`
	Session       *model.Session `json:"session"`
	QuestionCount int            `json:"question_count"`
	Dropped       int            `json:"dropped_candidates"`
}

// GenerationService turns a topic into a published quiz with a live
// session: it prompts the text generator, normalizes and parses the
// response, sanitizes the surviving questions, and then persists the
// quiz and opens a session for it.
type GenerationService struct {
	generator llm.TextGenerator
	quizzes   QuizStore
	questions QuestionStore
	sessions  *SessionService
	timeout   time.Duration
	log       zerolog.Logger
}

// NewGenerationService creates a new GenerationService. generator may
// be nil when no API key is configured; generation then fails with
// ErrGeneratorUnavailable without touching the network.
func NewGenerationService(generator llm.TextGenerator, quizzes QuizStore, questions QuestionStore, sessions *SessionService, timeout time.Duration, log zerolog.Logger) *GenerationService {
	return &GenerationService{
		generator: generator,
		quizzes:   quizzes,
		questions: questions,
		sessions:  sessions,
		timeout:   timeout,
		log:       log.With().Str("component", "generation_service").Logger(),
	}
}

// GenerateQuiz runs the full pipeline for one request. On any failure
// before persistence, nothing is written. Failures after the draft quiz
// is created leave it in DRAFT; the reconciler job cleans such drafts
// up later.
func (s *GenerationService) GenerateQuiz(ctx context.Context, hostID int, req model.GenerateQuizRequest) (*GeneratedQuiz, error) {
	outcome := metrics.OutcomePersistenceError
	done := metrics.GenerationStarted()
	defer func() { done(outcome) }()

	if s.generator == nil {
		outcome = metrics.OutcomeUpstreamError
		return nil, fmt.Errorf("%w: no API key configured", ErrGeneratorUnavailable)
	}

	raw, err := s.generate(ctx, req)
	if err != nil {
		outcome = metrics.OutcomeUpstreamError
		s.log.Warn().Err(err).Str("topic", req.Topic).Msg("text generation failed")
		return nil, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}

	candidates, stage, err := quizgen.Parse(quizgen.Normalize(raw))
	if err != nil {
		outcome = metrics.OutcomeParseFailure
		s.log.Warn().
			Str("topic", req.Topic).
			Int("response_len", len(raw)).
			Str("response_head", head(raw, 300)).
			Msg("generator output unparseable")
		return nil, err
	}
	metrics.ObserveParserStage(stage.String())

	built, err := quizgen.Build(candidates, req.QuestionConfig)
	if err != nil {
		outcome = metrics.OutcomeValidationExhausted
		s.log.Warn().
			Str("topic", req.Topic).
			Int("candidates", len(candidates)).
			Msg("no candidate survived validation")
		return nil, err
	}
	metrics.AddDroppedCandidates(built.Dropped)
	if built.Dropped > 0 {
		s.log.Info().
			Str("topic", req.Topic).
			Int("dropped", built.Dropped).
			Int("kept", len(built.Questions)).
			Msg("dropped malformed question candidates")
	}

	quiz, session, err := s.persist(ctx, hostID, req, built.Questions)
	if err != nil {
		if errors.Is(err, ErrJoinCodeCapacity) {
			outcome = metrics.OutcomeJoinCodeCapacity
		}
		return nil, err
	}

	outcome = metrics.OutcomeOK
	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("session_id", session.ID.String()).
		Str("parser_stage", stage.String()).
		Int("question_count", len(built.Questions)).
		Int("dropped", built.Dropped).
		Msg("quiz generated and hosted")

	return &GeneratedQuiz{
		Quiz:          quiz,
		Session:       session,
		QuestionCount: len(built.Questions),
		Dropped:       built.Dropped,
	}, nil
}

func (s *GenerationService) generate(ctx context.Context, req model.GenerateQuizRequest) (string, error) {
	system, user := quizgen.BuildPrompt(req.Topic, req.QuestionCount)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.generator.Generate(genCtx, llm.Prompt{
		System:      system,
		User:        user,
		Temperature: generationTemperature,
	})
}

// persist runs the write side: draft quiz, questions, total points,
// session, then the PUBLISHED flip last. A failure at any step leaves
// the draft behind for the reconciler instead of rolling back manually.
func (s *GenerationService) persist(ctx context.Context, hostID int, req model.GenerateQuizRequest, questions []model.Question) (*model.Quiz, *model.Session, error) {
	title := req.Title
	if title == "" {
		title = req.Topic
	}

	quiz := &model.Quiz{
		Title:           title,
		Description:     fmt.Sprintf("Generated quiz on %q", req.Topic),
		CreatedBy:       hostID,
		DurationMinutes: req.DurationMinutes,
		Status:          model.QuizStatusDraft,
		Source:          model.QuizSourceGenerated,
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, nil, fmt.Errorf("create quiz: %w", err)
	}

	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		s.abandon(quiz.ID, "insert questions", err)
		return nil, nil, fmt.Errorf("insert questions: %w", err)
	}

	total, err := s.quizzes.RecomputeTotalPoints(ctx, quiz.ID)
	if err != nil {
		s.abandon(quiz.ID, "recompute total points", err)
		return nil, nil, fmt.Errorf("recompute total points: %w", err)
	}
	quiz.TotalPoints = total

	session, err := s.sessions.StartSession(ctx, quiz)
	if err != nil {
		s.abandon(quiz.ID, "start session", err)
		return nil, nil, err
	}

	if err := s.quizzes.UpdateStatus(ctx, quiz.ID, model.QuizStatusPublished); err != nil {
		s.abandon(quiz.ID, "publish", err)
		return nil, nil, fmt.Errorf("publish quiz: %w", err)
	}
	quiz.Status = model.QuizStatusPublished

	return quiz, session, nil
}

func (s *GenerationService) abandon(quizID uuid.UUID, step string, err error) {
	s.log.Error().
		Err(err).
		Str("quiz_id", quizID.String()).
		Str("step", step).
		Msg("generation failed after draft creation, leaving draft for reconciler")
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
