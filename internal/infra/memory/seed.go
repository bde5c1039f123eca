package memory

import (
	"context"
	"time"

	"formship-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Demo credentials created by Seed.
const (
	DemoAccountID     = "a-demo"
	DemoOwnerEmail    = "owner@example.com"
	DemoOwnerPassword = "owner-password"
	DemoQuizPassword  = "letmein"
)

// SeedTarget is satisfied by Store and the Postgres store.
type SeedTarget interface {
	CreateAccount(ctx context.Context, account domain.Account, owner domain.User) error
	CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error
	AddInvitation(ctx context.Context, inv domain.InvitedUser) error
}

// Seed loads a demo account with one quiz per access mode. A target that
// already holds the demo owner returns domain.ErrEmailTaken untouched.
func Seed(ctx context.Context, store SeedTarget) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoOwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	owner := domain.User{ID: "u-demo", Email: DemoOwnerEmail, Name: "Demo Owner", PasswordHash: hash, CreatedAt: now}
	if err := store.CreateAccount(ctx, domain.Account{ID: DemoAccountID, Name: "Demo", CreatedAt: now}, owner); err != nil {
		return err
	}

	pw := DemoQuizPassword
	quizzes := []domain.Quiz{
		{ID: "quiz-public", Title: "Public arithmetic", AccessControl: domain.AccessPublic, AllowAnonymous: true},
		{ID: "quiz-login", Title: "Members only", AccessControl: domain.AccessLoginRequired},
		{ID: "quiz-invite", Title: "Invited guests", AccessControl: domain.AccessInvitation},
		{ID: "quiz-password", Title: "Locked quiz", AccessControl: domain.AccessPassword, RequirePassword: true, Password: &pw, AllowAnonymous: true},
	}
	for _, q := range quizzes {
		q.AccountID = DemoAccountID
		q.IsPublished = true
		q.DisplayResults = true
		q.CreatedAt = now
		if err := store.CreateQuiz(ctx, q, demoQuestions(q.ID)); err != nil {
			return err
		}
	}
	return store.AddInvitation(ctx, domain.InvitedUser{
		ID:        "inv-demo",
		QuizID:    "quiz-invite",
		Email:     "guest@example.com",
		IsActive:  true,
		InvitedAt: now,
	})
}

func demoQuestions(quizID string) []domain.Question {
	return []domain.Question{
		{ID: quizID + "-q1", QuizID: quizID, Text: "What is 2 + 2?", Options: map[string]string{"A": "3", "B": "4", "C": "5"}, CorrectAnswer: "B", Order: 0},
		{ID: quizID + "-q2", QuizID: quizID, Text: "What is 3 x 3?", Options: map[string]string{"A": "6", "B": "9", "C": "12"}, CorrectAnswer: "B", Order: 1},
		{ID: quizID + "-q3", QuizID: quizID, Text: "What is 10 - 7?", Options: map[string]string{"A": "3", "B": "4", "C": "7"}, CorrectAnswer: "A", Order: 2},
	}
}
