package postgres

import (
	"context"
	"fmt"

	"formship-quiz-service/internal/domain"
)

const participantColumns = `id, email, name, password_hash, is_authenticated_user, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParticipant(row rowScanner) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.IsAuthenticatedUser, &p.CreatedAt)
	return p, err
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) error {
	var hash interface{}
	if p.Registered() {
		hash = p.PasswordHash
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO participants (`+participantColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Email, p.Name, hash, p.IsAuthenticatedUser, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (domain.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id=$1`, id))
	if err != nil {
		if isNoRows(err) {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return domain.Participant{}, fmt.Errorf("load participant: %w", err)
	}
	return p, nil
}

func (s *Store) FindRegisteredByEmail(ctx context.Context, email string) (domain.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE lower(email)=lower($1) AND password_hash IS NOT NULL`, email))
	if err != nil {
		if isNoRows(err) {
			return domain.Participant{}, domain.ErrParticipantNotFound
		}
		return domain.Participant{}, fmt.Errorf("find participant: %w", err)
	}
	return p, nil
}

func (s *Store) SetAuthenticated(ctx context.Context, id string, authenticated bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE participants SET is_authenticated_user=$2 WHERE id=$1`, id, authenticated)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}
