package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"formship-quiz-service/internal/domain"
)

// Ledger maintains the per-(participant, quiz) participation rows.
type Ledger struct {
	repo   ParticipationRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewLedger(repo ParticipationRepository, logger *slog.Logger) *Ledger {
	return NewLedgerWithClock(repo, logger, func() time.Time { return time.Now().UTC() })
}

// NewLedgerWithClock is test-only for deterministic timestamps.
func NewLedgerWithClock(repo ParticipationRepository, logger *slog.Logger, now func() time.Time) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{repo: repo, now: now, logger: logger}
}

// Link returns the participation for the requester and quiz, creating it on
// first contact. Account users and anonymous visitors get nil. Existing rows are
// returned unchanged.
func (l *Ledger) Link(ctx context.Context, requester domain.Requester, quiz domain.Quiz) (*domain.Participation, error) {
	participant, ok := domain.ParticipantOf(requester)
	if !ok || participant.ID == "" {
		return nil, nil
	}

	existing, err := l.repo.GetParticipation(ctx, participant.ID, quiz.ID)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, domain.ErrParticipationNotFound) {
		return nil, err
	}

	row := domain.Participation{
		ID:            newID("qp"),
		ParticipantID: participant.ID,
		QuizID:        quiz.ID,
		HasCompleted:  false,
		FinalScore:    nil,
		CreatedAt:     l.now(),
	}
	if err := l.repo.CreateParticipation(ctx, row); err != nil {
		if !errors.Is(err, domain.ErrParticipationExists) {
			return nil, err
		}
		// lost the create race; the winner's row is authoritative
		existing, err := l.repo.GetParticipation(ctx, participant.ID, quiz.ID)
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}
	l.logger.Debug("participation created", "participation_id", row.ID, "participant_id", participant.ID, "quiz_id", quiz.ID)
	return &row, nil
}

// RecordSubmission marks the participation completed with its final score.
// A completed participation is never overwritten.
func (l *Ledger) RecordSubmission(ctx context.Context, participation domain.Participation, score float64, durationSeconds *int) (domain.Participation, error) {
	if participation.HasCompleted {
		return domain.Participation{}, domain.Conflict("quiz already submitted", domain.ErrAlreadySubmitted)
	}
	updated, err := l.repo.CompleteParticipation(ctx, participation.ID, score, durationSeconds, l.now())
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return domain.Participation{}, domain.Conflict("quiz already submitted", err)
		}
		return domain.Participation{}, err
	}
	return updated, nil
}

// ForQuiz lists the ledger rows of a quiz.
func (l *Ledger) ForQuiz(ctx context.Context, quizID string) ([]domain.Participation, error) {
	return l.repo.ListByQuiz(ctx, quizID)
}

// ForParticipant lists the ledger rows of a participant.
func (l *Ledger) ForParticipant(ctx context.Context, participantID string) ([]domain.Participation, error) {
	return l.repo.ListByParticipant(ctx, participantID)
}
