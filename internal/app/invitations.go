package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"formship-quiz-service/internal/domain"
)

// InvitationService manages the invitation registry on behalf of quiz managers.
type InvitationService struct {
	repo    InvitationRepository
	catalog QuizCatalog
	now     func() time.Time
	logger  *slog.Logger
}

// InviteResult reports what a bulk invite did with each address.
type InviteResult struct {
	Added       []domain.InvitedUser `json:"added"`
	Reactivated []string             `json:"reactivated"`
	Skipped     []string             `json:"skipped"`
	Invalid     []string             `json:"invalid"`
}

func NewInvitationService(repo InvitationRepository, catalog QuizCatalog, logger *slog.Logger) *InvitationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationService{
		repo:    repo,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// Invite adds the given emails to the quiz allow-list. Deactivated
// invitations are turned back on; active ones are skipped.
func (s *InvitationService) Invite(ctx context.Context, requester domain.Requester, quizID string, emails []string) (InviteResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return InviteResult{}, err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return InviteResult{}, err
	}
	if len(emails) == 0 {
		return InviteResult{}, domain.Invalid("at least one email is required")
	}

	result := InviteResult{Added: []domain.InvitedUser{}, Reactivated: []string{}, Skipped: []string{}, Invalid: []string{}}
	seen := make(map[string]struct{}, len(emails))
	for _, raw := range emails {
		email := normalizeEmail(raw)
		if !validEmail(email) {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		inv := domain.InvitedUser{
			ID:        newID("inv"),
			QuizID:    quiz.ID,
			Email:     email,
			IsActive:  true,
			InvitedAt: s.now(),
		}
		if err := s.repo.AddInvitation(ctx, inv); err != nil {
			if !errors.Is(err, domain.ErrInvitationExists) {
				return InviteResult{}, err
			}
			changed, err := s.repo.ReactivateInvitation(ctx, quiz.ID, email)
			if err != nil {
				return InviteResult{}, err
			}
			if changed {
				result.Reactivated = append(result.Reactivated, email)
			} else {
				result.Skipped = append(result.Skipped, email)
			}
			continue
		}
		result.Added = append(result.Added, inv)
	}
	s.logger.Info("invitations added", "quiz_id", quiz.ID, "added", len(result.Added), "reactivated", len(result.Reactivated), "skipped", len(result.Skipped))
	return result, nil
}

// List returns the quiz allow-list.
func (s *InvitationService) List(ctx context.Context, requester domain.Requester, quizID string) ([]domain.InvitedUser, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return nil, err
	}
	return s.repo.ListInvitations(ctx, quiz.ID)
}

// Deactivate revokes an invitation without deleting it.
func (s *InvitationService) Deactivate(ctx context.Context, requester domain.Requester, quizID, email string) error {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return err
	}
	return s.repo.DeactivateInvitation(ctx, quiz.ID, normalizeEmail(email))
}
