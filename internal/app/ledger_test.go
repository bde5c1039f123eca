package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/domain"
)

func TestLinkSkipsNonParticipants(t *testing.T) {
	f := newFixture(t)
	quiz := f.addQuiz(t, published(domain.AccessPublic))

	for _, r := range []domain.Requester{domain.Anonymous{}, f.owner(), f.outsider()} {
		p, err := f.ledger.Link(context.Background(), r, quiz)
		if err != nil || p != nil {
			t.Fatalf("expected no participation for %T, got %+v %v", r, p, err)
		}
	}
}

func TestLinkConcurrentCallersShareRow(t *testing.T) {
	f := newFixture(t)
	quiz := f.addQuiz(t, published(domain.AccessPublic))
	requester, _ := f.registered(t, "race@example.com")

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.ledger.Link(context.Background(), requester, quiz)
			if err != nil {
				t.Errorf("link: %v", err)
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected one participation id, got %v", ids)
		}
	}
	if rows := f.participations(t, quiz.ID); len(rows) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(rows))
	}
}

func TestLinkRetriesAsFetchAfterLostRace(t *testing.T) {
	winner := domain.Participation{ID: "qp-winner", ParticipantID: "p1", QuizID: "quiz-1"}
	repo := &racingRepo{winner: winner}
	ledger := app.NewLedger(repo, nil)

	got, err := ledger.Link(context.Background(), domain.ParticipantRequester{Participant: domain.Participant{ID: "p1"}}, domain.Quiz{ID: "quiz-1"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected winner row %s, got %s", winner.ID, got.ID)
	}
	if repo.gets != 2 {
		t.Fatalf("expected a refetch after the conflict, gets=%d", repo.gets)
	}
}

func TestRecordSubmissionRejectsSecondSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quiz := f.addQuiz(t, published(domain.AccessPublic))
	requester, _ := f.registered(t, "twice@example.com")

	p, err := f.ledger.Link(ctx, requester, quiz)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	done, err := f.ledger.RecordSubmission(ctx, *p, 2, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !done.HasCompleted || *done.FinalScore != 2 || done.RespondedAt == nil || !done.RespondedAt.Equal(f.now) {
		t.Fatalf("unexpected completed row %+v", done)
	}

	// stale copy still says open; the store must refuse it
	if _, err := f.ledger.RecordSubmission(ctx, *p, 3, nil); domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict for second submission, got %v", err)
	}
	if _, err := f.ledger.RecordSubmission(ctx, done, 3, nil); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

// racingRepo simulates losing the create race to a concurrent request.
type racingRepo struct {
	app.ParticipationRepository
	winner domain.Participation
	gets   int
}

func (r *racingRepo) GetParticipation(_ context.Context, _, _ string) (domain.Participation, error) {
	r.gets++
	if r.gets == 1 {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	return r.winner, nil
}

func (r *racingRepo) CreateParticipation(context.Context, domain.Participation) error {
	return domain.ErrParticipationExists
}

func (r *racingRepo) CompleteParticipation(context.Context, string, float64, *int, time.Time) (domain.Participation, error) {
	return domain.Participation{}, errors.New("not used")
}
