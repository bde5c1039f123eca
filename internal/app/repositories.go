package app

import (
	"context"
	"time"

	"formship-quiz-service/internal/domain"
)

// QuizCatalog reads quiz content (from cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// QuizWriter persists owner-side catalog changes.
type QuizWriter interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error
	SetPublished(ctx context.Context, quizID string, published bool) error
	// DeleteQuiz removes the quiz with its questions, participations and invitations.
	DeleteQuiz(ctx context.Context, quizID string) error
}

// CacheInvalidator is implemented by catalogs that cache question lists.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// ParticipantRepository stores participants. CreateParticipant returns
// domain.ErrEmailTaken when a registered participant already owns the email.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, p domain.Participant) error
	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
	FindRegisteredByEmail(ctx context.Context, email string) (domain.Participant, error)
	SetAuthenticated(ctx context.Context, id string, authenticated bool) error
	DeleteParticipant(ctx context.Context, id string) error
}

// ParticipationRepository is the participation ledger. CreateParticipation must
// enforce uniqueness on (participant, quiz) and return domain.ErrParticipationExists
// to the loser of a race. CompleteParticipation must be a single conditional
// write that fails with domain.ErrAlreadySubmitted for completed rows.
type ParticipationRepository interface {
	GetParticipation(ctx context.Context, participantID, quizID string) (domain.Participation, error)
	CreateParticipation(ctx context.Context, p domain.Participation) error
	CompleteParticipation(ctx context.Context, id string, score float64, durationSeconds *int, at time.Time) (domain.Participation, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Participation, error)
	ListByParticipant(ctx context.Context, participantID string) ([]domain.Participation, error)
	DeleteByParticipant(ctx context.Context, participantID string) error
}

// InvitationRepository is the invitation registry.
type InvitationRepository interface {
	IsInvited(ctx context.Context, quizID, email string) (bool, error)
	AddInvitation(ctx context.Context, inv domain.InvitedUser) error
	// ReactivateInvitation turns an inactive invitation back on and reports
	// whether anything changed.
	ReactivateInvitation(ctx context.Context, quizID, email string) (bool, error)
	ListInvitations(ctx context.Context, quizID string) ([]domain.InvitedUser, error)
	DeactivateInvitation(ctx context.Context, quizID, email string) error
	MarkResponded(ctx context.Context, quizID, email string) error
}

// AccountRepository stores accounts, their users and memberships.
// CreateAccount writes the account, the owner user and the owner membership atomically.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account domain.Account, owner domain.User) error
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error)
	// AddMembership inserts or updates the role of a user in an account.
	AddMembership(ctx context.Context, m domain.Membership) error
}

// TokenDenylist tracks revoked token ids until their natural expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
