package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"formship-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
)

const quizColumns = `id, account_id, title, access_control, is_published, is_testing,
	require_password, password, allow_anonymous, require_name, display_results,
	is_timed, quiz_time_limit, are_questions_timed, time_per_question, created_at`

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		q      domain.Quiz
		access string
	)
	err := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, quizID).Scan(
		&q.ID, &q.AccountID, &q.Title, &access, &q.IsPublished, &q.IsTesting,
		&q.RequirePassword, &q.Password, &q.AllowAnonymous, &q.RequireName, &q.DisplayResults,
		&q.IsTimed, &q.QuizTimeLimit, &q.AreQuestionsTimed, &q.TimePerQuestion, &q.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	q.AccessControl = domain.AccessControl(access)
	return q, nil
}

func (s *Store) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if _, err := s.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, text, options, correct_answer, position FROM questions WHERE quiz_id=$1 ORDER BY position, id`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &raw, &q.CorrectAnswer, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// CreateQuiz writes the quiz and its questions in one transaction.
func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO quizzes (`+quizColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			quiz.ID, quiz.AccountID, quiz.Title, string(quiz.AccessControl), quiz.IsPublished, quiz.IsTesting,
			quiz.RequirePassword, quiz.Password, quiz.AllowAnonymous, quiz.RequireName, quiz.DisplayResults,
			quiz.IsTimed, quiz.QuizTimeLimit, quiz.AreQuestionsTimed, quiz.TimePerQuestion, quiz.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		for _, q := range questions {
			opts, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO questions (id, quiz_id, text, options, correct_answer, position) VALUES ($1,$2,$3,$4::jsonb,$5,$6)`,
				q.ID, quiz.ID, q.Text, string(opts), q.CorrectAnswer, q.Order,
			); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) SetPublished(ctx context.Context, quizID string, published bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET is_published=$2 WHERE id=$1`, quizID, published)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz relies on ON DELETE CASCADE for questions, participations and invitations.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
