package app

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"formship-quiz-service/internal/domain"
)

// AccessService decides who may view or attempt a quiz.
type AccessService struct {
	invitations InvitationRepository
	ledger      *Ledger
	logger      *slog.Logger
}

func NewAccessService(invitations InvitationRepository, ledger *Ledger, logger *slog.Logger) *AccessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessService{invitations: invitations, ledger: ledger, logger: logger}
}

// Decide evaluates the access rules in order; the first matching rule wins.
// It has no side effects beyond reading the invitation registry.
func (s *AccessService) Decide(ctx context.Context, quiz domain.Quiz, requester domain.Requester, email string) (domain.Decision, error) {
	var participant *domain.Participant
	switch r := requester.(type) {
	case domain.AccountRequester:
		if _, ok := r.MembershipFor(quiz.AccountID); ok {
			return domain.Decision{Allowed: true, Owner: true}, nil
		}
		// members of other accounts are ordinary visitors here
	case domain.ParticipantRequester:
		p := r.Participant
		participant = &p
	case domain.Anonymous, nil:
	}

	if !quiz.IsPublished {
		return domain.Deny(domain.ActionQuizUnavailable, "This quiz is not currently available."), nil
	}

	switch quiz.AccessControl {
	case domain.AccessPublic:
		return domain.Allow(), nil

	case domain.AccessLoginRequired:
		if participant == nil || !participant.IsAuthenticatedUser {
			return domain.Deny(domain.ActionRequireAuth, "Please log in or register to access this quiz."), nil
		}
		return domain.Allow(), nil

	case domain.AccessInvitation:
		resolved := ""
		if participant != nil {
			resolved = normalizeEmail(participant.Email)
		}
		if resolved == "" {
			resolved = normalizeEmail(email)
		}
		if resolved == "" {
			return domain.Deny(domain.ActionRequireEmail, "Please provide your email to verify invitation."), nil
		}
		invited, err := s.invitations.IsInvited(ctx, quiz.ID, resolved)
		if err != nil {
			return domain.Decision{}, err
		}
		if !invited {
			return domain.Deny(domain.ActionNotInvited, "You are not invited to take this quiz."), nil
		}
		return domain.Allow(), nil

	case domain.AccessPassword:
		return domain.Deny(domain.ActionRequirePassword, "Please enter the quiz password."), nil
	}

	return domain.Deny(domain.ActionInvalidSetting, "Invalid access control setting."), nil
}

// Check runs Decide and, on a non-owner allow, links the participant to the quiz.
func (s *AccessService) Check(ctx context.Context, quiz domain.Quiz, requester domain.Requester, email string) (domain.Decision, *domain.Participation, error) {
	decision, err := s.Decide(ctx, quiz, requester, email)
	if err != nil {
		return domain.Decision{}, nil, err
	}
	s.logger.Debug("access decision",
		"quiz_id", quiz.ID,
		"allowed", decision.Allowed,
		"owner", decision.Owner,
		"action", decision.Action,
	)
	if !decision.Allowed || decision.Owner {
		return decision, nil, nil
	}
	participation, err := s.ledger.Link(ctx, requester, quiz)
	if err != nil {
		return domain.Decision{}, nil, err
	}
	return decision, participation, nil
}

// Authorize is Check followed by the explicit password step for password-gated
// quizzes. The password is verified on every call and never remembered.
func (s *AccessService) Authorize(ctx context.Context, quiz domain.Quiz, requester domain.Requester, email, password string) (domain.Decision, *domain.Participation, error) {
	decision, err := s.Decide(ctx, quiz, requester, email)
	if err != nil {
		return domain.Decision{}, nil, err
	}
	if !decision.Allowed && decision.Action == domain.ActionRequirePassword {
		if err := VerifyQuizPassword(quiz, password); err != nil {
			return domain.Decision{}, nil, err
		}
		decision = domain.Allow()
	}
	if !decision.Allowed || decision.Owner {
		return decision, nil, nil
	}
	participation, err := s.ledger.Link(ctx, requester, quiz)
	if err != nil {
		return domain.Decision{}, nil, err
	}
	return decision, participation, nil
}

// VerifyQuizPassword succeeds when the quiz does not require a password, and
// otherwise compares the provided password in constant time.
func VerifyQuizPassword(quiz domain.Quiz, provided string) error {
	if !quiz.RequirePassword {
		return nil
	}
	if provided == "" {
		return domain.Forbidden(domain.ActionRequirePassword, "Password is required for this quiz.")
	}
	stored := ""
	if quiz.Password != nil {
		stored = *quiz.Password
	}
	if stored == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) != 1 {
		return domain.Forbidden(domain.ActionRequirePassword, "Invalid quiz password.")
	}
	return nil
}
