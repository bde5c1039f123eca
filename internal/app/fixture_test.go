package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/auth"
	"formship-quiz-service/internal/domain"
	"formship-quiz-service/internal/infra/memory"
)

const testAccountID = "acct-1"

type fixture struct {
	store        *memory.Store
	issuer       *auth.Issuer
	denylist     *memory.TokenDenylist
	ledger       *app.Ledger
	access       *app.AccessService
	participants *app.ParticipantService
	accounts     *app.AccountService
	hub          *app.ResultsHub
	quizzes      *app.QuizService
	catalog      *app.CatalogService
	invites      *app.InvitationService
	resolver     *app.Resolver
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:    memory.NewStore(),
		issuer:   auth.NewIssuer("test-secret", time.Hour, time.Hour),
		denylist: memory.NewTokenDenylist(),
		hub:      app.NewResultsHub(),
		now:      time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	repo := memory.NewQuizRepository(f.store, 0)

	f.ledger = app.NewLedgerWithClock(f.store, logger, clock)
	f.access = app.NewAccessService(f.store, f.ledger, logger)
	f.participants = app.NewParticipantService(f.store, f.store, f.issuer, f.denylist, logger)
	f.accounts = app.NewAccountService(f.store, f.issuer, logger)
	f.quizzes = app.NewQuizServiceWithClock(repo, f.access, f.ledger, f.participants, f.store, f.hub, logger, clock)
	f.catalog = app.NewCatalogService(repo, f.store, f.ledger, logger)
	f.invites = app.NewInvitationService(f.store, repo, logger)
	f.resolver = app.NewResolver(f.participants, f.accounts)

	owner := domain.User{ID: "u-owner", Email: "owner@example.com"}
	if err := f.store.CreateAccount(context.Background(), domain.Account{ID: testAccountID, Name: "Acme"}, owner); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return f
}

// addQuiz stores quiz under the test account with three questions whose
// correct answers are A, B and C.
func (f *fixture) addQuiz(t *testing.T, quiz domain.Quiz) domain.Quiz {
	t.Helper()
	if quiz.ID == "" {
		quiz.ID = "quiz-1"
	}
	quiz.AccountID = testAccountID
	questions := []domain.Question{
		{ID: "q1", QuizID: quiz.ID, Text: "one", Options: map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"}, CorrectAnswer: "A", Order: 0},
		{ID: "q2", QuizID: quiz.ID, Text: "two", Options: map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"}, CorrectAnswer: "B", Order: 1},
		{ID: "q3", QuizID: quiz.ID, Text: "three", Options: map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"}, CorrectAnswer: "C", Order: 2},
	}
	if err := f.store.CreateQuiz(context.Background(), quiz, questions); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func (f *fixture) owner() domain.AccountRequester {
	return domain.AccountRequester{
		User:        domain.User{ID: "u-owner", Email: "owner@example.com"},
		Memberships: []domain.Membership{{AccountID: testAccountID, UserID: "u-owner", Role: domain.RoleOwner}},
	}
}

func (f *fixture) member() domain.AccountRequester {
	return domain.AccountRequester{
		User:        domain.User{ID: "u-member", Email: "member@example.com"},
		Memberships: []domain.Membership{{AccountID: testAccountID, UserID: "u-member", Role: domain.RoleMember}},
	}
}

func (f *fixture) outsider() domain.AccountRequester {
	return domain.AccountRequester{
		User:        domain.User{ID: "u-other", Email: "other@example.com"},
		Memberships: []domain.Membership{{AccountID: "acct-2", UserID: "u-other", Role: domain.RoleOwner}},
	}
}

// registered creates a logged-in participant.
func (f *fixture) registered(t *testing.T, email string) (domain.ParticipantRequester, string) {
	t.Helper()
	res, err := f.participants.Register(context.Background(), email, "Test User", "secret-pw")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return domain.ParticipantRequester{Participant: res.Participant}, res.Token
}

func (f *fixture) participations(t *testing.T, quizID string) []domain.Participation {
	t.Helper()
	rows, err := f.store.ListByQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("list participations: %v", err)
	}
	return rows
}

func published(ac domain.AccessControl) domain.Quiz {
	return domain.Quiz{AccessControl: ac, IsPublished: true, DisplayResults: true}
}
