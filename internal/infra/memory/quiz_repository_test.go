package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"formship-quiz-service/internal/domain"
)

func TestQuizRepositoryCachesQuestions(t *testing.T) {
	loader := &countingLoader{CatalogLoader: seededStore(t)}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuestions(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.questionCalls() != 1 {
		t.Fatalf("expected loader once, got %d", loader.questionCalls())
	}

	if _, err := repo.GetQuestions(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.questionCalls() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.questionCalls())
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	loader := &countingLoader{CatalogLoader: seededStore(t)}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetQuestions(ctx, "quiz-1"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetQuestions(ctx, "quiz-1"); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.questionCalls() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.questionCalls())
	}
}

func TestQuizRepositoryZeroTTLAlwaysLoads(t *testing.T) {
	loader := &countingLoader{CatalogLoader: seededStore(t)}
	repo := NewQuizRepository(loader, 0)

	for i := 0; i < 3; i++ {
		if _, err := repo.GetQuestions(context.Background(), "quiz-1"); err != nil {
			t.Fatalf("get questions: %v", err)
		}
	}
	if loader.questionCalls() != 3 {
		t.Fatalf("expected 3 loads without cache, got %d", loader.questionCalls())
	}
}

func TestQuizRepositoryNeverCachesQuizRow(t *testing.T) {
	store := seededStore(t)
	repo := NewQuizRepository(store, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if err := store.SetPublished(ctx, "quiz-1", false); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	quiz, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if quiz.IsPublished {
		t.Fatalf("expected fresh quiz row after unpublish")
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(seededStore(t), time.Minute)
	ctx := context.Background()

	first, _ := repo.GetQuestions(ctx, "quiz-1")
	first[0].Options["A"] = "mutated"

	second, err := repo.GetQuestions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if second[0].Options["A"] == "mutated" {
		t.Fatalf("cached questions were mutated through a returned slice")
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStore(), time.Minute)
	if _, err := repo.GetQuestions(context.Background(), "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	CatalogLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.CatalogLoader.GetQuestions(ctx, quizID)
}

func (l *countingLoader) questionCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	if err := store.CreateQuiz(context.Background(), sampleQuiz(), sampleQuestions()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:             "quiz-1",
		AccountID:      "acct-1",
		Title:          "Arithmetic",
		AccessControl:  domain.AccessPublic,
		IsPublished:    true,
		DisplayResults: true,
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			QuizID:        "quiz-1",
			Text:          "What is 2 + 2?",
			Options:       map[string]string{"A": "3", "B": "4"},
			CorrectAnswer: "B",
			Order:         0,
		},
	}
}
