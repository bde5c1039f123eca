package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/domain"
	"formship-quiz-service/internal/infra/memory"
)

var errLedgerDown = errors.New("ledger unavailable")

// brokenLedgerStore fails participation inserts and remembers who was linked.
type brokenLedgerStore struct {
	*memory.Store
	linked []string
}

func (s *brokenLedgerStore) CreateParticipation(_ context.Context, row domain.Participation) error {
	s.linked = append(s.linked, row.ParticipantID)
	return errLedgerDown
}

func TestJoinRemovesAnonymousParticipantWhenLinkFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := published(domain.AccessPublic)
	quiz.AllowAnonymous = true
	quiz = f.addQuiz(t, quiz)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broken := &brokenLedgerStore{Store: f.store}
	ledger := app.NewLedger(broken, logger)
	svc := app.NewQuizService(memory.NewQuizRepository(f.store, 0), f.access, ledger, f.participants, f.store, f.hub, logger)

	_, err := svc.Join(ctx, quiz.ID, domain.Anonymous{}, app.JoinRequest{Name: "Guest"})
	if !errors.Is(err, errLedgerDown) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if len(broken.linked) != 1 {
		t.Fatalf("expected one link attempt, got %d", len(broken.linked))
	}
	if _, err := f.store.GetParticipant(ctx, broken.linked[0]); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected orphan participant removed, got %v", err)
	}
}
