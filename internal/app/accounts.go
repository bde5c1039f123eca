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

// AccountService covers account user registration and login.
type AccountService struct {
	repo   AccountRepository
	tokens *auth.Issuer
	now    func() time.Time
	logger *slog.Logger
}

// AccountAuthResult is returned by account register and login.
type AccountAuthResult struct {
	Token     string
	User      domain.User
	AccountID string
}

func NewAccountService(repo AccountRepository, tokens *auth.Issuer, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		repo:   repo,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Register creates an account with the caller as its owner.
func (s *AccountService) Register(ctx context.Context, email, name, password, accountName string) (*AccountAuthResult, error) {
	email = normalizeEmail(email)
	if !validEmail(email) || strings.TrimSpace(password) == "" {
		return nil, domain.Invalid("email/password required")
	}
	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return nil, domain.Conflict("email exists", domain.ErrEmailTaken)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if strings.TrimSpace(accountName) == "" {
		accountName = email
	}
	account := domain.Account{ID: newID("a"), Name: strings.TrimSpace(accountName), CreatedAt: now}
	user := domain.User{ID: newID("u"), Email: email, Name: strings.TrimSpace(name), PasswordHash: hash, CreatedAt: now}
	if err := s.repo.CreateAccount(ctx, account, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.Conflict("email exists", err)
		}
		return nil, err
	}
	token, err := s.tokens.IssueAccount(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "account_id", account.ID, "user_id", user.ID)
	return &AccountAuthResult{Token: token, User: user, AccountID: account.ID}, nil
}

// Login verifies account user credentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AccountAuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email/password required")
	}
	u, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Unauthorized("invalid credentials", nil)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, domain.Unauthorized("invalid credentials", nil)
	}
	token, err := s.tokens.IssueAccount(u)
	if err != nil {
		return nil, err
	}
	return &AccountAuthResult{Token: token, User: u}, nil
}

// Authenticate decodes an account token and loads the user's memberships.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.AccountRequester, error) {
	claims, err := s.tokens.ParseAccount(token)
	if err != nil {
		return domain.AccountRequester{}, domain.Unauthorized("invalid account token", err)
	}
	u, err := s.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AccountRequester{}, domain.Unauthorized("account user not found", err)
		}
		return domain.AccountRequester{}, err
	}
	memberships, err := s.repo.ListMemberships(ctx, u.ID)
	if err != nil {
		return domain.AccountRequester{}, err
	}
	return domain.AccountRequester{User: u, Memberships: memberships}, nil
}

// AddMember gives an existing account user a role in accountID. Only owners
// and admins may do this, and ownership cannot be granted.
func (s *AccountService) AddMember(ctx context.Context, requester domain.Requester, accountID, email string, role domain.Role) (domain.Membership, error) {
	if _, err := requireManager(requester, accountID); err != nil {
		return domain.Membership{}, err
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return domain.Membership{}, domain.Invalid("role must be admin or member")
	}
	u, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Membership{}, domain.NotFound("no account user with that email", err)
		}
		return domain.Membership{}, err
	}
	m := domain.Membership{AccountID: accountID, UserID: u.ID, Role: role}
	if err := s.repo.AddMembership(ctx, m); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Membership{}, domain.NotFound("account not found", err)
		}
		return domain.Membership{}, err
	}
	s.logger.Info("account member added", "account_id", accountID, "user_id", u.ID, "role", role)
	return m, nil
}
