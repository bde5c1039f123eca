package postgres

import (
	"context"
	"fmt"

	"formship-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
)

// CreateAccount writes the account, its owner user and the owner membership
// in one transaction.
func (s *Store) CreateAccount(ctx context.Context, account domain.Account, owner domain.User) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO accounts (id, name, created_at) VALUES ($1,$2,$3)`,
			account.ID, account.Name, account.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO account_users (id, email, name, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
			owner.ID, owner.Email, owner.Name, owner.PasswordHash, owner.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO account_memberships (account_id, user_id, role) VALUES ($1,$2,$3)`,
			account.ID, owner.ID, string(domain.RoleOwner))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `lower(email)=lower($1)`, email)
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `id=$1`, id)
}

func (s *Store) getUser(ctx context.Context, where, arg string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, created_at FROM account_users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load account user: %w", err)
	}
	return u, nil
}

func (s *Store) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := s.pool.Query(ctx, `SELECT account_id, user_id, role FROM account_memberships WHERE user_id=$1 ORDER BY account_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Membership, 0)
	for rows.Next() {
		var (
			m    domain.Membership
			role string
		)
		if err := rows.Scan(&m.AccountID, &m.UserID, &role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Role = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) AddMembership(ctx context.Context, m domain.Membership) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_memberships (account_id, user_id, role) VALUES ($1,$2,$3)
		 ON CONFLICT (account_id, user_id) DO UPDATE SET role=EXCLUDED.role`,
		m.AccountID, m.UserID, string(m.Role))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("add membership: %w", err)
	}
	return nil
}
