package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/quizforge/quizforge-backend/internal/websocket"
)

var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidJoinCode is returned when no active session matches a join code.
	ErrInvalidJoinCode = errors.New("invalid join code")
	// ErrSessionEnded is returned when joining a session whose window has passed.
	ErrSessionEnded = errors.New("session has ended")
	// ErrJoinCodeCapacity is returned when no unique join code could be
	// claimed within the configured attempt budget.
	ErrJoinCodeCapacity = errors.New("join code space exhausted")
)

const (
	joinCodeLength = 6

	// joinCodeAlphabet omits characters that read ambiguously on a
	// projected screen (0/O, 1/I/L).
	joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// sessionCacheGrace keeps join-code claims and cached payloads alive
	// slightly past the session window so late reads do not miss.
	sessionCacheGrace = 5 * time.Minute
)

// SessionService handles hosting, joining, and monitoring quiz sessions.
type SessionService struct {
	sessions  SessionStore
	quizzes   QuizStore
	questions QuestionStore
	rdb       *redis.Client
	attempts  int
	log       zerolog.Logger

	// newJoinCode produces candidate join codes. Tests override it to
	// force collisions.
	newJoinCode func() (string, error)
}

// NewSessionService creates a new SessionService. attempts bounds how
// many join codes are tried before giving up with ErrJoinCodeCapacity.
func NewSessionService(sessions SessionStore, quizzes QuizStore, questions QuestionStore, rdb *redis.Client, attempts int, log zerolog.Logger) *SessionService {
	if attempts < 1 {
		attempts = 1
	}
	return &SessionService{
		sessions:    sessions,
		quizzes:     quizzes,
		questions:   questions,
		rdb:         rdb,
		attempts:    attempts,
		log:         log.With().Str("component", "session_service").Logger(),
		newJoinCode: generateJoinCode,
	}
}

// HostQuiz starts a new session for a published quiz the caller owns.
// Each call produces a fresh session with its own join code; earlier
// sessions of the same quiz are left untouched.
func (s *SessionService) HostQuiz(ctx context.Context, quizID uuid.UUID, hostID int) (*model.Session, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.CreatedBy != hostID {
		return nil, ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusPublished {
		return nil, ErrQuizNotPublished
	}

	return s.StartSession(ctx, quiz)
}

// StartSession opens a session for the given quiz: the window starts
// now and runs for exactly the quiz's duration, and a unique join code
// is claimed in both Redis and Postgres before the session is returned.
func (s *SessionService) StartSession(ctx context.Context, quiz *model.Quiz) (*model.Session, error) {
	now := time.Now().UTC()
	end := now.Add(time.Duration(quiz.DurationMinutes) * time.Minute)

	for attempt := 1; attempt <= s.attempts; attempt++ {
		code, err := s.newJoinCode()
		if err != nil {
			return nil, fmt.Errorf("generate join code: %w", err)
		}

		claimKey := config.CacheKey.JoinCodeClaimKey(code)
		claimed, err := s.rdb.SetNX(ctx, claimKey, quiz.ID.String(), end.Sub(now)+sessionCacheGrace).Result()
		if err != nil {
			return nil, fmt.Errorf("claim join code: %w", err)
		}
		if !claimed {
			s.log.Debug().Int("attempt", attempt).Msg("join code claimed elsewhere, retrying")
			continue
		}

		session := &model.Session{
			QuizID:    quiz.ID,
			JoinCode:  code,
			StartTime: now,
			EndTime:   end,
			IsActive:  true,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			s.rdb.Del(ctx, claimKey)
			if errors.Is(err, repository.ErrDuplicateJoinCode) {
				// An active session still holds this code in Postgres
				// even though its Redis claim already expired.
				s.log.Debug().Int("attempt", attempt).Msg("join code held by active session, retrying")
				continue
			}
			return nil, fmt.Errorf("create session: %w", err)
		}

		s.warmPayloadCache(ctx, quiz, session)

		s.log.Info().
			Str("session_id", session.ID.String()).
			Str("quiz_id", quiz.ID.String()).
			Time("end_time", session.EndTime).
			Msg("session started")
		return session, nil
	}

	s.log.Error().Int("attempts", s.attempts).Msg("could not claim a unique join code")
	return nil, ErrJoinCodeCapacity
}

// JoinByCode resolves a join code to an active session, registers the
// participant, and returns the participant payload along with the
// current participant count.
func (s *SessionService) JoinByCode(ctx context.Context, req model.JoinSessionRequest) (*model.SessionPayload, int64, error) {
	code := strings.ToUpper(strings.TrimSpace(req.JoinCode))

	session, err := s.sessions.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrInvalidJoinCode
		}
		return nil, 0, err
	}

	// The sweeper deactivates expired sessions asynchronously, so the
	// window still has to be checked here.
	if time.Now().After(session.EndTime) {
		return nil, 0, ErrSessionEnded
	}

	payload, err := s.sessionPayload(ctx, session)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.registerParticipant(ctx, session, req.DisplayName)
	if err != nil {
		// Participant tracking is advisory; joining still succeeds.
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("register participant failed")
	}

	return payload, count, nil
}

// GetOwnedSession fetches a session and verifies the caller owns its quiz.
func (s *SessionService) GetOwnedSession(ctx context.Context, sessionID uuid.UUID, hostID int) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	quiz, err := s.quizzes.GetByID(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != hostID {
		return nil, ErrNotQuizOwner
	}

	return session, nil
}

// ListByQuiz returns a quiz's sessions, newest first, for its owner.
func (s *SessionService) ListByQuiz(ctx context.Context, quizID uuid.UUID, hostID, page, perPage int) ([]model.Session, int, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrQuizNotFound
		}
		return nil, 0, err
	}
	if quiz.CreatedBy != hostID {
		return nil, 0, ErrNotQuizOwner
	}

	page, perPage = clampPage(page, perPage)
	return s.sessions.ListByQuizPaginated(ctx, quizID, perPage, (page-1)*perPage)
}

// ListByHost returns all sessions across the caller's quizzes.
func (s *SessionService) ListByHost(ctx context.Context, hostID, page, perPage int, activeOnly bool) ([]repository.HostedSession, int, error) {
	page, perPage = clampPage(page, perPage)
	return s.sessions.ListByHostPaginated(ctx, hostID, perPage, (page-1)*perPage, activeOnly)
}

// ParticipantCount returns the number of distinct display names that
// have joined the session.
func (s *SessionService) ParticipantCount(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	return s.rdb.SCard(ctx, config.CacheKey.SessionParticipantsKey(sessionID.String())).Result()
}

// DeactivateExpired flips is_active off for sessions whose window has
// passed. The sweeper job calls this once a minute.
func (s *SessionService) DeactivateExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeactivateExpired(ctx, time.Now().UTC())
}

// sessionPayload serves the cached participant payload, rebuilding it
// from Postgres on a cache miss.
func (s *SessionService) sessionPayload(ctx context.Context, session *model.Session) (*model.SessionPayload, error) {
	key := config.CacheKey.SessionPayloadKey(session.ID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var payload model.SessionPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return &payload, nil
		}
		s.log.Warn().Str("session_id", session.ID.String()).Msg("cached payload corrupt, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("payload cache read failed, falling back to database")
	}

	quiz, err := s.quizzes.GetByID(ctx, session.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	questions, err := s.questions.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	payload := buildSessionPayload(quiz, session, questions)
	if data, err := json.Marshal(payload); err == nil {
		s.rdb.Set(ctx, key, data, time.Until(session.EndTime)+sessionCacheGrace)
	}
	return payload, nil
}

// warmPayloadCache precomputes the participant payload at hosting time.
// Failures are logged only; the payload is rebuilt lazily on join.
func (s *SessionService) warmPayloadCache(ctx context.Context, quiz *model.Quiz, session *model.Session) {
	questions, err := s.questions.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("warm payload cache: load questions failed")
		return
	}

	data, err := json.Marshal(buildSessionPayload(quiz, session, questions))
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("warm payload cache: marshal failed")
		return
	}

	key := config.CacheKey.SessionPayloadKey(session.ID.String())
	if err := s.rdb.Set(ctx, key, data, time.Until(session.EndTime)+sessionCacheGrace).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("warm payload cache: redis set failed")
	}
}

func (s *SessionService) registerParticipant(ctx context.Context, session *model.Session, displayName string) (int64, error) {
	key := config.CacheKey.SessionParticipantsKey(session.ID.String())

	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, key, displayName)
	pipe.Expire(ctx, key, time.Until(session.EndTime)+sessionCacheGrace)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	count := card.Val()

	event, err := json.Marshal(websocket.ParticipantJoinedEvent{
		Event:            websocket.EventParticipantJoined,
		DisplayName:      displayName,
		ParticipantCount: count,
	})
	if err == nil {
		s.rdb.Publish(ctx, config.CacheKey.SessionEventsChannel(session.ID.String()), event)
	}

	return count, nil
}

func buildSessionPayload(quiz *model.Quiz, session *model.Session, questions []model.Question) *model.SessionPayload {
	stripped := make([]model.QuestionForParticipant, 0, len(questions))
	for _, q := range questions {
		stripped = append(stripped, model.QuestionForParticipant{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Points:       q.Points,
			OrderNum:     q.OrderNum,
		})
	}

	return &model.SessionPayload{
		SessionID:       session.ID,
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		Description:     quiz.Description,
		DurationMinutes: quiz.DurationMinutes,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		Questions:       stripped,
	}
}

func generateJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := make([]byte, joinCodeLength)
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
