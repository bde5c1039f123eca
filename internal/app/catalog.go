package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"formship-quiz-service/internal/domain"
)

// CatalogService covers the owner-side quiz operations the access core needs:
// creating quizzes, toggling publication and reading the quiz ledger.
type CatalogService struct {
	catalog QuizCatalog
	writer  QuizWriter
	ledger  *Ledger
	now     func() time.Time
	logger  *slog.Logger
}

// NewQuestion is the input for one question of a new quiz.
type NewQuestion struct {
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
}

// CreateQuizRequest is the input for CreateQuiz.
type CreateQuizRequest struct {
	AccountID         string               `json:"accountId"`
	Title             string               `json:"title"`
	AccessControl     domain.AccessControl `json:"accessControl"`
	Password          string               `json:"password"`
	AllowAnonymous    bool                 `json:"allowAnonymous"`
	RequireName       bool                 `json:"requireName"`
	DisplayResults    *bool                `json:"displayResults"`
	IsTesting         bool                 `json:"isTesting"`
	IsTimed           bool                 `json:"isTimed"`
	QuizTimeLimit     *int                 `json:"quizTimeLimit"`
	AreQuestionsTimed bool                 `json:"areQuestionsTimed"`
	TimePerQuestion   *int                 `json:"timePerQuestion"`
	Questions         []NewQuestion        `json:"questions"`
}

func NewCatalogService(catalog QuizCatalog, writer QuizWriter, ledger *Ledger, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		catalog: catalog,
		writer:  writer,
		ledger:  ledger,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// CreateQuiz validates and stores an unpublished quiz.
func (s *CatalogService) CreateQuiz(ctx context.Context, requester domain.Requester, req CreateQuizRequest) (domain.Quiz, []domain.Question, error) {
	if _, err := requireManager(requester, req.AccountID); err != nil {
		return domain.Quiz{}, nil, err
	}
	if strings.TrimSpace(req.Title) == "" {
		return domain.Quiz{}, nil, domain.Invalid("title is required")
	}
	if req.AccessControl == "" {
		req.AccessControl = domain.AccessPublic
	}
	if !req.AccessControl.Valid() {
		return domain.Quiz{}, nil, domain.Invalid("unknown access control mode")
	}
	if req.AccessControl == domain.AccessPassword && req.Password == "" {
		return domain.Quiz{}, nil, domain.Invalid("password-protected quizzes need a password")
	}
	if req.IsTimed && (req.QuizTimeLimit == nil || *req.QuizTimeLimit <= 0) {
		return domain.Quiz{}, nil, domain.Invalid("timed quizzes need a positive quizTimeLimit")
	}
	if req.AreQuestionsTimed && (req.TimePerQuestion == nil || *req.TimePerQuestion <= 0) {
		return domain.Quiz{}, nil, domain.Invalid("timed questions need a positive timePerQuestion")
	}

	quiz := domain.Quiz{
		ID:                newID("q"),
		AccountID:         req.AccountID,
		Title:             strings.TrimSpace(req.Title),
		AccessControl:     req.AccessControl,
		IsPublished:       false,
		IsTesting:         req.IsTesting,
		AllowAnonymous:    req.AllowAnonymous,
		RequireName:       req.RequireName,
		DisplayResults:    true,
		IsTimed:           req.IsTimed,
		QuizTimeLimit:     req.QuizTimeLimit,
		AreQuestionsTimed: req.AreQuestionsTimed,
		TimePerQuestion:   req.TimePerQuestion,
		CreatedAt:         s.now(),
	}
	if req.DisplayResults != nil {
		quiz.DisplayResults = *req.DisplayResults
	}
	if req.AccessControl == domain.AccessPassword {
		pw := req.Password
		quiz.Password = &pw
		quiz.RequirePassword = true
	}

	questions := make([]domain.Question, 0, len(req.Questions))
	for i, nq := range req.Questions {
		if strings.TrimSpace(nq.Text) == "" {
			return domain.Quiz{}, nil, domain.Invalid(fmt.Sprintf("question %d has no text", i+1))
		}
		if len(nq.Options) < 2 {
			return domain.Quiz{}, nil, domain.Invalid(fmt.Sprintf("question %d needs at least two options", i+1))
		}
		if _, ok := nq.Options[nq.CorrectAnswer]; !ok {
			return domain.Quiz{}, nil, domain.Invalid(fmt.Sprintf("question %d correct answer is not one of its options", i+1))
		}
		questions = append(questions, domain.Question{
			ID:            newID("qq"),
			QuizID:        quiz.ID,
			Text:          strings.TrimSpace(nq.Text),
			Options:       nq.Options,
			CorrectAnswer: nq.CorrectAnswer,
			Order:         i,
		})
	}

	if err := s.writer.CreateQuiz(ctx, quiz, questions); err != nil {
		return domain.Quiz{}, nil, err
	}
	s.logger.Info("quiz created", "quiz_id", quiz.ID, "account_id", quiz.AccountID, "questions", len(questions))
	return quiz, questions, nil
}

// SetPublished flips is_published on a quiz the requester manages.
func (s *CatalogService) SetPublished(ctx context.Context, requester domain.Requester, quizID string, published bool) (domain.Quiz, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.writer.SetPublished(ctx, quiz.ID, published); err != nil {
		return domain.Quiz{}, err
	}
	quiz.IsPublished = published
	s.logger.Info("quiz publication changed", "quiz_id", quiz.ID, "published", published)
	return quiz, nil
}

// DeleteQuiz removes a quiz the requester manages and drops its cached questions.
func (s *CatalogService) DeleteQuiz(ctx context.Context, requester domain.Requester, quizID string) error {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return err
	}
	if err := s.writer.DeleteQuiz(ctx, quiz.ID); err != nil {
		return err
	}
	if cache, ok := s.catalog.(CacheInvalidator); ok {
		if err := cache.Invalidate(ctx, quiz.ID); err != nil {
			s.logger.Warn("question cache invalidation failed", "quiz_id", quiz.ID, "err", err)
		}
	}
	s.logger.Info("quiz deleted", "quiz_id", quiz.ID)
	return nil
}

// Participations lists the ledger of a quiz for its managers, newest first.
func (s *CatalogService) Participations(ctx context.Context, requester domain.Requester, quizID string) ([]domain.Participation, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if _, err := requireManager(requester, quiz.AccountID); err != nil {
		return nil, err
	}
	rows, err := s.ledger.ForQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}
