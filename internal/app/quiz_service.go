package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"formship-quiz-service/internal/domain"
)

// QuizService contains the participant-facing quiz use cases.
type QuizService struct {
	catalog      QuizCatalog
	access       *AccessService
	ledger       *Ledger
	participants *ParticipantService
	invitations  InvitationRepository
	hub          *ResultsHub
	now          func() time.Time
	logger       *slog.Logger
}

func NewQuizService(
	catalog QuizCatalog,
	access *AccessService,
	ledger *Ledger,
	participants *ParticipantService,
	invitations InvitationRepository,
	hub *ResultsHub,
	logger *slog.Logger,
) *QuizService {
	return NewQuizServiceWithClock(catalog, access, ledger, participants, invitations, hub, logger, func() time.Time { return time.Now().UTC() })
}

// NewQuizServiceWithClock is test-only for deterministic time limits.
func NewQuizServiceWithClock(
	catalog QuizCatalog,
	access *AccessService,
	ledger *Ledger,
	participants *ParticipantService,
	invitations InvitationRepository,
	hub *ResultsHub,
	logger *slog.Logger,
	now func() time.Time,
) *QuizService {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewResultsHub()
	}
	return &QuizService{
		catalog:      catalog,
		access:       access,
		ledger:       ledger,
		participants: participants,
		invitations:  invitations,
		hub:          hub,
		now:          now,
		logger:       logger,
	}
}

// JoinRequest carries what a visitor supplies when starting a quiz.
type JoinRequest struct {
	Email    string
	Name     string
	Password string
}

// JoinResult is returned by Join. Token is set only when a new anonymous
// participant was created; Preview is set for owners.
type JoinResult struct {
	Token         string                `json:"token,omitempty"`
	Participant   *domain.Participant   `json:"participant,omitempty"`
	Participation *domain.Participation `json:"participation,omitempty"`
	Preview       bool                  `json:"preview"`
}

// SubmitRequest is a completed attempt.
type SubmitRequest struct {
	Submission
	Email    string
	Password string
}

// SubmitResult is returned by Submit. Score is nil when the quiz hides results.
type SubmitResult struct {
	Score         *int                  `json:"score,omitempty"`
	Total         int                   `json:"total"`
	Completed     bool                  `json:"completed"`
	Testing       bool                  `json:"testing"`
	Discarded     []string              `json:"discarded,omitempty"`
	Participation *domain.Participation `json:"participation,omitempty"`
}

// QuizDetail is the quiz and its questions as visible to the requester.
type QuizDetail struct {
	Quiz      domain.Quiz       `json:"quiz"`
	Questions []domain.Question `json:"questions"`
}

// CheckAccess evaluates access for the requester and links allowed participants.
func (s *QuizService) CheckAccess(ctx context.Context, quizID string, requester domain.Requester, email string) (domain.Decision, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Decision{}, err
	}
	decision, _, err := s.access.Check(ctx, quiz, requester, email)
	return decision, err
}

// VerifyPassword checks a quiz password without creating any state.
func (s *QuizService) VerifyPassword(ctx context.Context, quizID, password string) error {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	return VerifyQuizPassword(quiz, password)
}

// Join admits the requester to a quiz. Anonymous visitors become anonymous
// participants when the quiz settings allow it.
func (s *QuizService) Join(ctx context.Context, quizID string, requester domain.Requester, req JoinRequest) (*JoinResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	decision, participation, err := s.access.Authorize(ctx, quiz, requester, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}
	if decision.Owner {
		return &JoinResult{Preview: true}, nil
	}
	if p, ok := domain.ParticipantOf(requester); ok {
		return &JoinResult{Participant: &p, Participation: participation}, nil
	}

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if quiz.RequireName && name == "" {
		return nil, domain.Invalid("name is required for this quiz")
	}
	if !quiz.AllowAnonymous && email == "" {
		return nil, domain.Invalid("email is required for this quiz")
	}
	created, err := s.participants.CreateAnonymous(ctx, email, name)
	if err != nil {
		return nil, err
	}
	participation, err = s.ledger.Link(ctx, domain.ParticipantRequester{Participant: created.Participant}, quiz)
	if err != nil {
		// an anonymous participant without its participation is unreachable
		if derr := s.participants.Delete(ctx, created.Participant.ID); derr != nil {
			s.logger.Warn("remove orphan participant failed", "participant_id", created.Participant.ID, "err", derr)
		}
		return nil, err
	}
	s.logger.Info("anonymous participant joined", "quiz_id", quiz.ID, "participant_id", created.Participant.ID)
	return &JoinResult{Token: created.Token, Participant: &created.Participant, Participation: participation}, nil
}

// Submit scores an attempt and records it on the participation ledger.
// Owners get a test run that is scored but never stored.
func (s *QuizService) Submit(ctx context.Context, quizID string, requester domain.Requester, req SubmitRequest) (*SubmitResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.catalog.GetQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	if acct, ok := requester.(domain.AccountRequester); ok {
		if _, member := acct.MembershipFor(quiz.AccountID); member {
			scored, err := ScoreSubmission(quiz, questions, req.Submission, s.now())
			if err != nil {
				return nil, err
			}
			score := scored.Score
			return &SubmitResult{Score: &score, Total: scored.Total, Testing: true, Discarded: scored.Discarded}, nil
		}
	}

	participant, ok := domain.ParticipantOf(requester)
	if !ok {
		return nil, &domain.Error{Kind: domain.KindUnauthorized, Action: domain.ActionRequireAuth, Message: "a participant session is required to submit"}
	}

	decision, participation, err := s.access.Authorize(ctx, quiz, requester, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}
	if participation == nil {
		return nil, errors.New("participation missing after allow")
	}
	if participation.HasCompleted {
		return nil, domain.Conflict("quiz already submitted", domain.ErrAlreadySubmitted)
	}

	scored, err := ScoreSubmission(quiz, questions, req.Submission, s.now())
	if err != nil {
		return nil, err
	}
	duration := req.DurationSeconds
	if duration == nil && req.StartedAt != nil {
		d := int(s.now().Sub(*req.StartedAt).Seconds())
		duration = &d
	}
	recorded, err := s.ledger.RecordSubmission(ctx, *participation, float64(scored.Score), duration)
	if err != nil {
		return nil, err
	}

	if quiz.AccessControl == domain.AccessInvitation {
		email := normalizeEmail(participant.Email)
		if email == "" {
			email = normalizeEmail(req.Email)
		}
		if err := s.invitations.MarkResponded(ctx, quiz.ID, email); err != nil {
			s.logger.Warn("mark invitation responded failed", "quiz_id", quiz.ID, "err", err)
		}
	}

	completedAt := s.now()
	if recorded.RespondedAt != nil {
		completedAt = *recorded.RespondedAt
	}
	s.hub.Publish(domain.ResultEvent{
		QuizID:        quiz.ID,
		ParticipantID: participant.ID,
		Name:          participant.Name,
		Email:         participant.Email,
		Score:         float64(scored.Score),
		Total:         scored.Total,
		CompletedAt:   completedAt,
	})
	s.logger.Info("submission recorded", "quiz_id", quiz.ID, "participant_id", participant.ID, "score", scored.Score, "total", scored.Total)

	result := &SubmitResult{Total: scored.Total, Completed: true, Discarded: scored.Discarded, Participation: &recorded}
	if quiz.DisplayResults {
		score := scored.Score
		result.Score = &score
	} else {
		result.Participation.FinalScore = nil
	}
	return result, nil
}

// Detail returns the quiz and its questions. Non-owners must be allowed in
// and never see correct answers.
func (s *QuizService) Detail(ctx context.Context, quizID string, requester domain.Requester, email, password string) (*QuizDetail, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	decision, _, err := s.access.Authorize(ctx, quiz, requester, email, password)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}
	questions, err := s.catalog.GetQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	if !decision.Owner {
		stripped := make([]domain.Question, len(questions))
		for i, q := range questions {
			q.CorrectAnswer = ""
			stripped[i] = q
		}
		questions = stripped
	}
	return &QuizDetail{Quiz: quiz, Questions: questions}, nil
}

// Subscribe streams result events of a quiz to members of its account.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quizID string, requester domain.Requester) (<-chan domain.ResultEvent, func(), error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireMember(requester, quiz.AccountID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(quiz.ID)
	return ch, cancel, nil
}
