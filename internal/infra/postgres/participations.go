package postgres

import (
	"context"
	"fmt"
	"time"

	"formship-quiz-service/internal/domain"
)

const participationColumns = `id, participant_id, quiz_id, final_score, has_completed, duration_seconds, responded_at, created_at`

func scanParticipation(row rowScanner) (domain.Participation, error) {
	var p domain.Participation
	err := row.Scan(&p.ID, &p.ParticipantID, &p.QuizID, &p.FinalScore, &p.HasCompleted, &p.DurationSeconds, &p.RespondedAt, &p.CreatedAt)
	return p, err
}

func (s *Store) GetParticipation(ctx context.Context, participantID, quizID string) (domain.Participation, error) {
	p, err := scanParticipation(s.pool.QueryRow(ctx,
		`SELECT `+participationColumns+` FROM quiz_participations WHERE participant_id=$1 AND quiz_id=$2`,
		participantID, quizID))
	if err != nil {
		if isNoRows(err) {
			return domain.Participation{}, domain.ErrParticipationNotFound
		}
		return domain.Participation{}, fmt.Errorf("load participation: %w", err)
	}
	return p, nil
}

func (s *Store) CreateParticipation(ctx context.Context, p domain.Participation) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO quiz_participations (`+participationColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.ParticipantID, p.QuizID, p.FinalScore, p.HasCompleted, p.DurationSeconds, p.RespondedAt, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrParticipationExists
		}
		return fmt.Errorf("insert participation: %w", err)
	}
	return nil
}

// CompleteParticipation is a single conditional update; a completed row is
// never rewritten.
func (s *Store) CompleteParticipation(ctx context.Context, id string, score float64, durationSeconds *int, at time.Time) (domain.Participation, error) {
	p, err := scanParticipation(s.pool.QueryRow(ctx,
		`UPDATE quiz_participations
		 SET final_score=$2, has_completed=true, duration_seconds=$3, responded_at=$4
		 WHERE id=$1 AND NOT has_completed
		 RETURNING `+participationColumns,
		id, score, durationSeconds, at))
	if err == nil {
		return p, nil
	}
	if !isNoRows(err) {
		return domain.Participation{}, fmt.Errorf("complete participation: %w", err)
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_participations WHERE id=$1)`, id).Scan(&exists); err != nil {
		return domain.Participation{}, fmt.Errorf("check participation: %w", err)
	}
	if exists {
		return domain.Participation{}, domain.ErrAlreadySubmitted
	}
	return domain.Participation{}, domain.ErrParticipationNotFound
}

func (s *Store) ListByQuiz(ctx context.Context, quizID string) ([]domain.Participation, error) {
	return s.listParticipations(ctx, `WHERE quiz_id=$1`, quizID)
}

func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]domain.Participation, error) {
	return s.listParticipations(ctx, `WHERE participant_id=$1`, participantID)
}

func (s *Store) DeleteByParticipant(ctx context.Context, participantID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_participations WHERE participant_id=$1`, participantID); err != nil {
		return fmt.Errorf("delete participations: %w", err)
	}
	return nil
}

func (s *Store) listParticipations(ctx context.Context, where string, arg string) ([]domain.Participation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participationColumns+` FROM quiz_participations `+where+` ORDER BY created_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
