package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
)

// In-memory store implementations backing the service tests. They
// mirror the repository contracts: pgx.ErrNoRows for missing rows and
// repository.ErrDuplicateJoinCode for an active join-code conflict.

type memQuizStore struct {
	mu        sync.Mutex
	quizzes   map[uuid.UUID]*model.Quiz
	questions *memQuestionStore
	createErr error
}

func newMemQuizStore(questions *memQuestionStore) *memQuizStore {
	return &memQuizStore{
		quizzes:   make(map[uuid.UUID]*model.Quiz),
		questions: questions,
	}
}

func (m *memQuizStore) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *quiz
	return &clone, nil
}

func (m *memQuizStore) ListByOwnerPaginated(_ context.Context, ownerID, limit, offset int, search string, status model.QuizStatus) ([]model.Quiz, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Quiz
	for _, quiz := range m.quizzes {
		if quiz.CreatedBy != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(quiz.Title), strings.ToLower(search)) {
			continue
		}
		if status != "" && quiz.Status != status {
			continue
		}
		matched = append(matched, *quiz)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memQuizStore) Create(_ context.Context, quiz *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	quiz.ID = uuid.New()
	quiz.CreatedAt = time.Now()
	quiz.UpdatedAt = quiz.CreatedAt
	clone := *quiz
	m.quizzes[quiz.ID] = &clone
	return nil
}

func (m *memQuizStore) Update(_ context.Context, quiz *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.quizzes[quiz.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = quiz.Title
	stored.Description = quiz.Description
	stored.DurationMinutes = quiz.DurationMinutes
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *memQuizStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.QuizStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.quizzes[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *memQuizStore) RecomputeTotalPoints(ctx context.Context, quizID uuid.UUID) (int, error) {
	questions, err := m.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, q := range questions {
		total += q.Points
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.quizzes[quizID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	stored.TotalPoints = total
	return total, nil
}

func (m *memQuizStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.quizzes)
}

func (m *memQuizStore) all() []model.Quiz {
	m.mu.Lock()
	defer m.mu.Unlock()
	quizzes := make([]model.Quiz, 0, len(m.quizzes))
	for _, quiz := range m.quizzes {
		quizzes = append(quizzes, *quiz)
	}
	return quizzes
}

func (m *memQuizStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.quizzes, id)
	m.questions.dropQuiz(id)
	return nil
}

type memQuestionStore struct {
	mu       sync.Mutex
	byQuiz   map[uuid.UUID][]model.Question
	batchErr error
}

func newMemQuestionStore() *memQuestionStore {
	return &memQuestionStore{byQuiz: make(map[uuid.UUID][]model.Question)}
}

func (m *memQuestionStore) ListByQuiz(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	questions := append([]model.Question(nil), m.byQuiz[quizID]...)
	sort.Slice(questions, func(i, j int) bool { return questions[i].OrderNum < questions[j].OrderNum })
	return questions, nil
}

func (m *memQuestionStore) Create(_ context.Context, question *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	question.ID = uuid.New()
	m.byQuiz[question.QuizID] = append(m.byQuiz[question.QuizID], *question)
	return nil
}

func (m *memQuestionStore) CreateBatch(_ context.Context, questions []model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return m.batchErr
	}
	for i := range questions {
		questions[i].ID = uuid.New()
		m.byQuiz[questions[i].QuizID] = append(m.byQuiz[questions[i].QuizID], questions[i])
	}
	return nil
}

func (m *memQuestionStore) ReplaceAll(_ context.Context, quizID uuid.UUID, questions []model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replacement := make([]model.Question, len(questions))
	for i := range questions {
		questions[i].ID = uuid.New()
		questions[i].QuizID = quizID
		replacement[i] = questions[i]
	}
	m.byQuiz[quizID] = replacement
	return nil
}

func (m *memQuestionStore) dropQuiz(quizID uuid.UUID) {
	delete(m.byQuiz, quizID)
}

type memSessionStore struct {
	mu         sync.Mutex
	sessions   map[uuid.UUID]*model.Session
	quizzes    *memQuizStore
	createErrs []error
}

func newMemSessionStore(quizzes *memQuizStore) *memSessionStore {
	return &memSessionStore{
		sessions: make(map[uuid.UUID]*model.Session),
		quizzes:  quizzes,
	}
}

func (m *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *session
	return &clone, nil
}

func (m *memSessionStore) GetActiveByCode(_ context.Context, code string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.IsActive && session.JoinCode == code {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memSessionStore) Create(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range m.sessions {
		if existing.IsActive && existing.JoinCode == session.JoinCode {
			return repository.ErrDuplicateJoinCode
		}
	}
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	clone := *session
	m.sessions[session.ID] = &clone
	return nil
}

func (m *memSessionStore) ListByQuizPaginated(_ context.Context, quizID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Session
	for _, session := range m.sessions {
		if session.QuizID == quizID {
			matched = append(matched, *session)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.After(matched[j].StartTime) })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memSessionStore) ListByHostPaginated(ctx context.Context, hostID, limit, offset int, activeOnly bool) ([]repository.HostedSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []repository.HostedSession
	for _, session := range m.sessions {
		quiz, err := m.quizzes.GetByID(ctx, session.QuizID)
		if err != nil || quiz.CreatedBy != hostID {
			continue
		}
		if activeOnly && !session.IsActive {
			continue
		}
		matched = append(matched, repository.HostedSession{Session: *session, QuizTitle: quiz.Title})
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.After(matched[j].StartTime) })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memSessionStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, session := range m.sessions {
		if session.IsActive && !session.EndTime.After(now) {
			session.IsActive = false
			count++
		}
	}
	return count, nil
}

func (m *memSessionStore) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, session := range m.sessions {
		if session.IsActive {
			count++
		}
	}
	return count
}

// harness wires the in-memory stores to a SessionService backed by a
// miniredis instance.
type harness struct {
	quizzes   *memQuizStore
	questions *memQuestionStore
	sessions  *memSessionStore
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	svc       *SessionService
}

func newHarness(t *testing.T, attempts int) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	questions := newMemQuestionStore()
	quizzes := newMemQuizStore(questions)
	sessions := newMemSessionStore(quizzes)

	return &harness{
		quizzes:   quizzes,
		questions: questions,
		sessions:  sessions,
		mr:        mr,
		rdb:       rdb,
		svc:       NewSessionService(sessions, quizzes, questions, rdb, attempts, zerolog.Nop()),
	}
}

func (h *harness) seedQuiz(t *testing.T, ownerID int, status model.QuizStatus, questionCount int) *model.Quiz {
	t.Helper()

	ctx := context.Background()
	quiz := &model.Quiz{
		Title:           "Capitals of Europe",
		CreatedBy:       ownerID,
		DurationMinutes: 30,
		Status:          status,
		Source:          model.QuizSourceManual,
	}
	if err := h.quizzes.Create(ctx, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	questions := make([]model.Question, questionCount)
	for i := range questions {
		questions[i] = model.Question{
			QuizID:        quiz.ID,
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Type:          model.QuestionTypeMultipleChoice,
			Options:       []string{"alpha", "beta", "gamma", "delta"},
			CorrectAnswer: "alpha",
			Points:        100,
			OrderNum:      i + 1,
		}
	}
	if err := h.questions.CreateBatch(ctx, questions); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	if _, err := h.quizzes.RecomputeTotalPoints(ctx, quiz.ID); err != nil {
		t.Fatalf("seed totals: %v", err)
	}
	return quiz
}
