package app

import (
	"time"

	"formship-quiz-service/internal/domain"
)

// Answer is a participant's answer to one question. StartedAt/AnsweredAt are
// client supplied and only consulted for quizzes with timed questions.
type Answer struct {
	Value      string
	StartedAt  *time.Time
	AnsweredAt *time.Time
}

// Submission is the scoring input for one attempt.
type Submission struct {
	Answers         map[string]Answer
	StartedAt       *time.Time
	DurationSeconds *int
}

// ScoreResult summarizes a scored submission.
type ScoreResult struct {
	Score     int
	Total     int
	Discarded []string
}

// ScoreSubmission counts exact matches against each question's correct answer.
// Unanswered and unknown question ids count as incorrect. Timed quizzes reject
// late submissions wholesale; timed questions drop late answers only.
func ScoreSubmission(quiz domain.Quiz, questions []domain.Question, sub Submission, now time.Time) (ScoreResult, error) {
	if quiz.IsTimed && quiz.QuizTimeLimit != nil && *quiz.QuizTimeLimit > 0 {
		if sub.StartedAt == nil {
			return ScoreResult{}, domain.Invalid("started_at is required for timed quizzes")
		}
		limit := time.Duration(*quiz.QuizTimeLimit) * time.Minute
		if now.Sub(*sub.StartedAt) > limit {
			return ScoreResult{}, &domain.Error{Kind: domain.KindForbidden, Message: "submission received after the quiz time limit", Err: domain.ErrTimeLimitExceeded}
		}
	}

	var perQuestion time.Duration
	if quiz.AreQuestionsTimed && quiz.TimePerQuestion != nil && *quiz.TimePerQuestion > 0 {
		perQuestion = time.Duration(*quiz.TimePerQuestion) * time.Second
	}

	result := ScoreResult{Total: len(questions)}
	for _, q := range questions {
		answer, ok := sub.Answers[q.ID]
		if !ok {
			continue
		}
		if perQuestion > 0 && answer.StartedAt != nil {
			end := now
			if answer.AnsweredAt != nil {
				end = *answer.AnsweredAt
			}
			if end.Sub(*answer.StartedAt) > perQuestion {
				result.Discarded = append(result.Discarded, q.ID)
				continue
			}
		}
		if answer.Value == q.CorrectAnswer {
			result.Score++
		}
	}
	return result, nil
}
