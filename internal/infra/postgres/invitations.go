package postgres

import (
	"context"
	"fmt"

	"formship-quiz-service/internal/domain"
)

func (s *Store) IsInvited(ctx context.Context, quizID, email string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invited_users WHERE quiz_id=$1 AND email=lower($2) AND is_active)`,
		quizID, email).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check invitation: %w", err)
	}
	return ok, nil
}

func (s *Store) AddInvitation(ctx context.Context, inv domain.InvitedUser) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invited_users (id, quiz_id, email, is_active, has_responded, invited_at) VALUES ($1,$2,lower($3),$4,$5,$6)`,
		inv.ID, inv.QuizID, inv.Email, inv.IsActive, inv.HasResponded, inv.InvitedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvitationExists
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *Store) ReactivateInvitation(ctx context.Context, quizID, email string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invited_users SET is_active=true WHERE quiz_id=$1 AND email=lower($2) AND NOT is_active`,
		quizID, email)
	if err != nil {
		return false, fmt.Errorf("reactivate invitation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListInvitations(ctx context.Context, quizID string) ([]domain.InvitedUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, email, is_active, has_responded, invited_at FROM invited_users WHERE quiz_id=$1 ORDER BY email`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.InvitedUser, 0)
	for rows.Next() {
		var inv domain.InvitedUser
		if err := rows.Scan(&inv.ID, &inv.QuizID, &inv.Email, &inv.IsActive, &inv.HasResponded, &inv.InvitedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) DeactivateInvitation(ctx context.Context, quizID, email string) error {
	return s.updateInvitation(ctx, `UPDATE invited_users SET is_active=false WHERE quiz_id=$1 AND email=lower($2)`, quizID, email)
}

func (s *Store) MarkResponded(ctx context.Context, quizID, email string) error {
	return s.updateInvitation(ctx, `UPDATE invited_users SET has_responded=true WHERE quiz_id=$1 AND email=lower($2)`, quizID, email)
}

func (s *Store) updateInvitation(ctx context.Context, sql, quizID, email string) error {
	tag, err := s.pool.Exec(ctx, sql, quizID, email)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}
