package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/model"
)

func newQuizService(h *harness) *QuizService {
	return NewQuizService(h.quizzes, h.questions, zerolog.Nop())
}

func validQuestionRequest(points int) model.AddQuestionRequest {
	return model.AddQuestionRequest{
		QuestionText:  "Which city is the capital of France?",
		Options:       []string{"Paris", "Lyon", "Marseille", "Nice"},
		CorrectAnswer: "Paris",
		Points:        points,
	}
}

func TestPublishRequiresAtLeastOneQuestion(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()

	quiz, err := svc.Create(ctx, 1, model.CreateQuizRequest{Title: "Empty quiz", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Publish(ctx, quiz.ID, 1); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("publish empty quiz: err = %v, want ErrNoQuestions", err)
	}

	if _, err := svc.AddQuestion(ctx, quiz.ID, 1, validQuestionRequest(40)); err != nil {
		t.Fatalf("add question: %v", err)
	}

	published, err := svc.Publish(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != model.QuizStatusPublished {
		t.Errorf("status = %s, want PUBLISHED", published.Status)
	}
	if published.TotalPoints != 40 {
		t.Errorf("total points = %d, want 40", published.TotalPoints)
	}

	if _, err := svc.Publish(ctx, quiz.ID, 1); !errors.Is(err, ErrQuizNotDraft) {
		t.Errorf("second publish: err = %v, want ErrQuizNotDraft", err)
	}
}

func TestAddQuestionValidatesAnswerMembership(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()

	quiz, err := svc.Create(ctx, 1, model.CreateQuizRequest{Title: "Capitals", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := validQuestionRequest(10)
	req.CorrectAnswer = "Berlin"
	if _, err := svc.AddQuestion(ctx, quiz.ID, 1, req); !errors.Is(err, ErrAnswerNotInOptions) {
		t.Fatalf("err = %v, want ErrAnswerNotInOptions", err)
	}

	questions, err := svc.ListQuestions(ctx, quiz.ID, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("rejected question was stored anyway")
	}
}

func TestAddQuestionAppendsInOrder(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()

	quiz, err := svc.Create(ctx, 1, model.CreateQuizRequest{Title: "Capitals", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.AddQuestion(ctx, quiz.ID, 1, validQuestionRequest(10))
	if err != nil {
		t.Fatalf("add first: %v", err)
	}
	second, err := svc.AddQuestion(ctx, quiz.ID, 1, validQuestionRequest(20))
	if err != nil {
		t.Fatalf("add second: %v", err)
	}

	if first.OrderNum != 1 || second.OrderNum != 2 {
		t.Errorf("order = [%d, %d], want [1, 2]", first.OrderNum, second.OrderNum)
	}

	reloaded, err := h.quizzes.GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if reloaded.TotalPoints != 30 {
		t.Errorf("total points = %d, want 30", reloaded.TotalPoints)
	}
}

func TestReplaceQuestionsRenumbersByPosition(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()

	quiz, err := svc.Create(ctx, 1, model.CreateQuizRequest{Title: "Capitals", DurationMinutes: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.AddQuestion(ctx, quiz.ID, 1, validQuestionRequest(10)); err != nil {
		t.Fatalf("seed question: %v", err)
	}

	replaced, err := svc.ReplaceQuestions(ctx, quiz.ID, 1, model.ReplaceQuestionsRequest{
		Questions: []model.AddQuestionRequest{validQuestionRequest(5), validQuestionRequest(15)},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if len(replaced) != 2 {
		t.Fatalf("replaced set has %d questions, want 2", len(replaced))
	}
	if replaced[0].OrderNum != 1 || replaced[1].OrderNum != 2 {
		t.Errorf("order = [%d, %d], want [1, 2]", replaced[0].OrderNum, replaced[1].OrderNum)
	}

	reloaded, err := h.quizzes.GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if reloaded.TotalPoints != 20 {
		t.Errorf("total points = %d, want 20", reloaded.TotalPoints)
	}
}

func TestQuizMutationsFrozenAfterPublish(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusPublished, 2)

	if _, err := svc.AddQuestion(ctx, quiz.ID, 1, validQuestionRequest(10)); !errors.Is(err, ErrQuizNotDraft) {
		t.Errorf("add question: err = %v, want ErrQuizNotDraft", err)
	}
	if _, err := svc.Update(ctx, quiz.ID, 1, model.UpdateQuizRequest{Title: "Renamed"}); !errors.Is(err, ErrQuizNotDraft) {
		t.Errorf("update: err = %v, want ErrQuizNotDraft", err)
	}
	if _, err := svc.ReplaceQuestions(ctx, quiz.ID, 1, model.ReplaceQuestionsRequest{
		Questions: []model.AddQuestionRequest{validQuestionRequest(5)},
	}); !errors.Is(err, ErrQuizNotDraft) {
		t.Errorf("replace: err = %v, want ErrQuizNotDraft", err)
	}
}

func TestQuizOwnershipGuard(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusDraft, 1)

	if _, err := svc.GetOwned(ctx, quiz.ID, 2); !errors.Is(err, ErrNotQuizOwner) {
		t.Errorf("get: err = %v, want ErrNotQuizOwner", err)
	}
	if err := svc.Delete(ctx, quiz.ID, 2); !errors.Is(err, ErrNotQuizOwner) {
		t.Errorf("delete: err = %v, want ErrNotQuizOwner", err)
	}
	if _, err := svc.Publish(ctx, quiz.ID, 2); !errors.Is(err, ErrNotQuizOwner) {
		t.Errorf("publish: err = %v, want ErrNotQuizOwner", err)
	}
}

func TestDeleteRemovesQuizAndQuestions(t *testing.T) {
	h := newHarness(t, 5)
	svc := newQuizService(h)
	ctx := context.Background()
	quiz := h.seedQuiz(t, 1, model.QuizStatusDraft, 3)

	if err := svc.Delete(ctx, quiz.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetOwned(ctx, quiz.ID, 1); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("get after delete: err = %v, want ErrQuizNotFound", err)
	}
	questions, err := h.questions.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("%d questions survived quiz deletion", len(questions))
	}
}
