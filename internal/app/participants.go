package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"formship-quiz-service/internal/auth"
	"formship-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ParticipantService handles participant registration, login and sessions.
type ParticipantService struct {
	repo     ParticipantRepository
	ledger   ParticipationRepository
	tokens   *auth.Issuer
	denylist TokenDenylist
	now      func() time.Time
	logger   *slog.Logger
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token       string
	Participant domain.Participant
}

func NewParticipantService(repo ParticipantRepository, ledger ParticipationRepository, tokens *auth.Issuer, denylist TokenDenylist, logger *slog.Logger) *ParticipantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParticipantService{
		repo:     repo,
		ledger:   ledger,
		tokens:   tokens,
		denylist: denylist,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Register creates a registered participant and logs it in.
func (s *ParticipantService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if !validEmail(email) {
		return nil, domain.Invalid("a valid email is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, domain.Invalid("password is required")
	}

	if _, err := s.repo.FindRegisteredByEmail(ctx, email); err == nil {
		return nil, domain.Conflict("email already registered", domain.ErrEmailTaken)
	} else if !errors.Is(err, domain.ErrParticipantNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := domain.Participant{
		ID:                  newID("p"),
		Email:               email,
		Name:                name,
		PasswordHash:        hash,
		IsAuthenticatedUser: true,
		CreatedAt:           s.now(),
	}
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.Conflict("email already registered", err)
		}
		return nil, err
	}
	token, err := s.tokens.IssueParticipant(p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("participant registered", "participant_id", p.ID)
	return &AuthResult{Token: token, Participant: p}, nil
}

// Login verifies credentials and starts a session.
func (s *ParticipantService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email/password required")
	}
	p, err := s.repo.FindRegisteredByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return nil, domain.Unauthorized("invalid credentials", nil)
		}
		return nil, err
	}
	if !p.Registered() {
		return nil, domain.Unauthorized("invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)); err != nil {
		return nil, domain.Unauthorized("invalid credentials", nil)
	}
	if !p.IsAuthenticatedUser {
		if err := s.repo.SetAuthenticated(ctx, p.ID, true); err != nil {
			return nil, err
		}
		p.IsAuthenticatedUser = true
	}
	token, err := s.tokens.IssueParticipant(p)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Participant: p}, nil
}

// Authenticate decodes a participant token and loads the current participant row.
func (s *ParticipantService) Authenticate(ctx context.Context, token string) (domain.Participant, *auth.ParticipantClaims, error) {
	claims, err := s.tokens.ParseParticipant(token)
	if err != nil {
		return domain.Participant{}, nil, domain.Unauthorized("invalid participant token", err)
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Participant{}, nil, err
		}
		if revoked {
			return domain.Participant{}, nil, domain.Unauthorized("token revoked", domain.ErrTokenRevoked)
		}
	}
	p, err := s.repo.GetParticipant(ctx, claims.ParticipantID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return domain.Participant{}, nil, domain.Unauthorized("participant not found", err)
		}
		return domain.Participant{}, nil, err
	}
	return p, claims, nil
}

// Logout revokes the token until it expires and clears the authenticated flag.
func (s *ParticipantService) Logout(ctx context.Context, token string) error {
	p, claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if s.denylist != nil && claims.ID != "" {
		until := s.now()
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		if err := s.denylist.Revoke(ctx, claims.ID, until); err != nil {
			return err
		}
	}
	if p.IsAuthenticatedUser {
		return s.repo.SetAuthenticated(ctx, p.ID, false)
	}
	return nil
}

// CreateAnonymous stores a participant without credentials and issues a token
// so it can submit. The participant never satisfies login-required quizzes.
func (s *ParticipantService) CreateAnonymous(ctx context.Context, email, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email != "" && !validEmail(email) {
		return nil, domain.Invalid("email is not valid")
	}
	p := domain.Participant{
		ID:        newID("p"),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	token, err := s.tokens.IssueParticipant(p)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Participant: p}, nil
}

// Delete removes the participant and its participations.
func (s *ParticipantService) Delete(ctx context.Context, participantID string) error {
	if err := s.ledger.DeleteByParticipant(ctx, participantID); err != nil {
		return err
	}
	if err := s.repo.DeleteParticipant(ctx, participantID); err != nil {
		return err
	}
	s.logger.Info("participant deleted", "participant_id", participantID)
	return nil
}

// Participations lists the participant's ledger rows.
func (s *ParticipantService) Participations(ctx context.Context, participantID string) ([]domain.Participation, error) {
	return s.ledger.ListByParticipant(ctx, participantID)
}
