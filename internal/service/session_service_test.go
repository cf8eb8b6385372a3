package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/quizforge/quizforge-backend/internal/websocket"
)

// codeSequence returns a join code generator that yields the given
// codes in order, repeating the last one once exhausted.
func codeSequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func TestHostQuizCreatesFreshSessionEachTime(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 3)

	first, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("first host: %v", err)
	}
	second, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("second host: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("rehosting reused the session ID")
	}
	if first.JoinCode == second.JoinCode {
		t.Fatalf("rehosting reused join code %s", first.JoinCode)
	}

	// The first session must be untouched by the rehost.
	got, err := h.sessions.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("reload first session: %v", err)
	}
	if !got.IsActive {
		t.Error("first session was deactivated by rehosting")
	}
	if h.sessions.activeCount() != 2 {
		t.Errorf("active sessions = %d, want 2", h.sessions.activeCount())
	}
}

func TestHostQuizGeneratesWellFormedCodes(t *testing.T) {
	h := newHarness(t, 5)
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	session, err := h.svc.HostQuiz(context.Background(), quiz.ID, 1)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	if len(session.JoinCode) != joinCodeLength {
		t.Fatalf("join code %q has length %d, want %d", session.JoinCode, len(session.JoinCode), joinCodeLength)
	}
	for _, r := range session.JoinCode {
		if !strings.ContainsRune(joinCodeAlphabet, r) {
			t.Errorf("join code %q contains %q, outside the allowed alphabet", session.JoinCode, r)
		}
	}
}

func TestHostQuizGuards(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	draft := h.seedQuiz(t, 1, model.QuizStatusDraft, 2)
	if _, err := h.svc.HostQuiz(ctx, draft.ID, 1); !errors.Is(err, ErrQuizNotPublished) {
		t.Errorf("hosting draft: err = %v, want ErrQuizNotPublished", err)
	}

	published := h.seedQuiz(t, 1, model.QuizStatusPublished, 2)
	if _, err := h.svc.HostQuiz(ctx, published.ID, 99); !errors.Is(err, ErrNotQuizOwner) {
		t.Errorf("hosting as stranger: err = %v, want ErrNotQuizOwner", err)
	}

	if _, err := h.svc.HostQuiz(ctx, uuid.New(), 1); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("hosting missing quiz: err = %v, want ErrQuizNotFound", err)
	}
}

func TestStartSessionWindowMatchesQuizDuration(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()

	quiz := &model.Quiz{
		Title:           "Window check",
		CreatedBy:       7,
		DurationMinutes: 45,
		Status:          model.QuizStatusPublished,
	}
	if err := h.quizzes.Create(ctx, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	session, err := h.svc.StartSession(ctx, quiz)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if got := session.EndTime.Sub(session.StartTime); got != 45*time.Minute {
		t.Errorf("session window = %v, want exactly 45m", got)
	}
	if !session.IsActive {
		t.Error("new session is not active")
	}

	// The Redis claim must outlive the session window.
	ttl := h.mr.TTL(config.CacheKey.JoinCodeClaimKey(session.JoinCode))
	if ttl <= 45*time.Minute {
		t.Errorf("claim TTL = %v, want longer than the 45m window", ttl)
	}
}

func TestStartSessionRetriesOnRedisClaimConflict(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	// First candidate code is already claimed by someone else.
	taken := config.CacheKey.JoinCodeClaimKey("AAAAAA")
	if err := h.rdb.Set(ctx, taken, "other-quiz", time.Hour).Err(); err != nil {
		t.Fatalf("pre-claim: %v", err)
	}
	h.svc.newJoinCode = codeSequence("AAAAAA", "BBBBBB")

	session, err := h.svc.StartSession(ctx, quiz)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.JoinCode != "BBBBBB" {
		t.Errorf("join code = %q, want fallback BBBBBB", session.JoinCode)
	}
	if !h.mr.Exists(config.CacheKey.JoinCodeClaimKey("BBBBBB")) {
		t.Error("winning code was not claimed in redis")
	}
}

func TestStartSessionRetriesOnDatabaseConflict(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	// Redis claim succeeds but the insert hits an active session whose
	// claim already expired.
	h.sessions.createErrs = []error{repository.ErrDuplicateJoinCode}
	h.svc.newJoinCode = codeSequence("AAAAAA", "BBBBBB")

	session, err := h.svc.StartSession(ctx, quiz)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.JoinCode != "BBBBBB" {
		t.Errorf("join code = %q, want BBBBBB after conflict", session.JoinCode)
	}
	if h.mr.Exists(config.CacheKey.JoinCodeClaimKey("AAAAAA")) {
		t.Error("losing claim was not released")
	}
}

func TestStartSessionGivesUpAfterAttemptBudget(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	if err := h.rdb.Set(ctx, config.CacheKey.JoinCodeClaimKey("AAAAAA"), "other", time.Hour).Err(); err != nil {
		t.Fatalf("pre-claim: %v", err)
	}
	h.svc.newJoinCode = codeSequence("AAAAAA")

	_, err := h.svc.StartSession(ctx, quiz)
	if !errors.Is(err, ErrJoinCodeCapacity) {
		t.Fatalf("err = %v, want ErrJoinCodeCapacity", err)
	}
	if h.sessions.activeCount() != 0 {
		t.Error("a session was created despite capacity exhaustion")
	}
}

func TestJoinByCodeReturnsPayloadWithoutAnswers(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 3)

	session, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	// Codes are case-insensitive for participants.
	payload, count, err := h.svc.JoinByCode(ctx, model.JoinSessionRequest{
		JoinCode:    strings.ToLower(session.JoinCode),
		DisplayName: "ada",
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if payload.SessionID != session.ID {
		t.Errorf("payload session = %s, want %s", payload.SessionID, session.ID)
	}
	if payload.QuizID != quiz.ID {
		t.Errorf("payload quiz = %s, want %s", payload.QuizID, quiz.ID)
	}
	if len(payload.Questions) != 3 {
		t.Fatalf("payload has %d questions, want 3", len(payload.Questions))
	}
	if count != 1 {
		t.Errorf("participant count = %d, want 1", count)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if strings.Contains(string(raw), "correct_answer") {
		t.Error("participant payload leaks correct answers")
	}
}

func TestJoinByCodeCountsDistinctDisplayNames(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	session, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	join := func(name string) int64 {
		t.Helper()
		_, count, err := h.svc.JoinByCode(ctx, model.JoinSessionRequest{JoinCode: session.JoinCode, DisplayName: name})
		if err != nil {
			t.Fatalf("join as %s: %v", name, err)
		}
		return count
	}

	if got := join("ada"); got != 1 {
		t.Errorf("after first join count = %d, want 1", got)
	}
	if got := join("grace"); got != 2 {
		t.Errorf("after second join count = %d, want 2", got)
	}
	if got := join("ada"); got != 2 {
		t.Errorf("after rejoining with same name count = %d, want 2", got)
	}
}

func TestJoinByCodePublishesMonitorEvent(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	session, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	sub := h.rdb.Subscribe(ctx, config.CacheKey.SessionEventsChannel(session.ID.String()))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, _, err := h.svc.JoinByCode(ctx, model.JoinSessionRequest{JoinCode: session.JoinCode, DisplayName: "ada"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(msgCtx)
	if err != nil {
		t.Fatalf("receive event: %v", err)
	}

	var event websocket.ParticipantJoinedEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Event != websocket.EventParticipantJoined {
		t.Errorf("event type = %q, want %q", event.Event, websocket.EventParticipantJoined)
	}
	if event.DisplayName != "ada" || event.ParticipantCount != 1 {
		t.Errorf("event = %+v, want ada with count 1", event)
	}
}

func TestJoinByCodeRejectsUnknownCode(t *testing.T) {
	h := newHarness(t, 5)

	_, _, err := h.svc.JoinByCode(context.Background(), model.JoinSessionRequest{JoinCode: "NOPE42", DisplayName: "ada"})
	if !errors.Is(err, ErrInvalidJoinCode) {
		t.Fatalf("err = %v, want ErrInvalidJoinCode", err)
	}
}

func TestJoinByCodeRejectsEndedWindow(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	// Still flagged active because the sweeper has not run yet.
	stale := &model.Session{
		QuizID:    quiz.ID,
		JoinCode:  "STALE2",
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-1 * time.Hour),
		IsActive:  true,
	}
	if err := h.sessions.Create(ctx, stale); err != nil {
		t.Fatalf("seed stale session: %v", err)
	}

	_, _, err := h.svc.JoinByCode(ctx, model.JoinSessionRequest{JoinCode: "STALE2", DisplayName: "ada"})
	if !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("err = %v, want ErrSessionEnded", err)
	}
}

func TestJoinByCodeRebuildsPayloadOnCacheMiss(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 2)

	session, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("host: %v", err)
	}

	key := config.CacheKey.SessionPayloadKey(session.ID.String())
	h.mr.Del(key)

	payload, _, err := h.svc.JoinByCode(ctx, model.JoinSessionRequest{JoinCode: session.JoinCode, DisplayName: "ada"})
	if err != nil {
		t.Fatalf("join after cache flush: %v", err)
	}
	if len(payload.Questions) != 2 {
		t.Fatalf("rebuilt payload has %d questions, want 2", len(payload.Questions))
	}
	if !h.mr.Exists(key) {
		t.Error("payload was not re-cached after rebuild")
	}
}

func TestConcurrentHostingYieldsUniqueCodes(t *testing.T) {
	h := newHarness(t, 5)
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	var (
		mu    sync.Mutex
		codes = make(map[string]bool)
	)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			session, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if codes[session.JoinCode] {
				return fmt.Errorf("join code %s issued twice", session.JoinCode)
			}
			codes[session.JoinCode] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(codes) != 20 {
		t.Errorf("distinct codes = %d, want 20", len(codes))
	}
}

func TestDeactivateExpiredSweepsOnlyPastWindows(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 1)

	expired := &model.Session{
		QuizID:    quiz.ID,
		JoinCode:  "OLDONE",
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-1 * time.Hour),
		IsActive:  true,
	}
	if err := h.sessions.Create(ctx, expired); err != nil {
		t.Fatalf("seed expired: %v", err)
	}
	live, err := h.svc.HostQuiz(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("host live session: %v", err)
	}

	swept, err := h.svc.DeactivateExpired(ctx)
	if err != nil {
		t.Fatalf("deactivate expired: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	reloaded, err := h.sessions.GetByID(ctx, live.ID)
	if err != nil {
		t.Fatalf("reload live session: %v", err)
	}
	if !reloaded.IsActive {
		t.Error("live session was swept")
	}
}
