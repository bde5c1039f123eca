package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"formship-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader reads quiz rows from a backing store (Store, Postgres).
type CatalogLoader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// QuizRepository caches question lists with TTL to avoid repeated DB hits.
// Quiz rows always pass through so access decisions read current settings.
// A zero TTL disables the cache; concurrent loads are still collapsed.
type QuizRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuizRepository(loader CatalogLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.loader.GetQuiz(ctx, quizID)
}

func (r *QuizRepository) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if qs, ok := r.lookup(quizID); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if qs, ok := r.lookup(quizID); ok {
			return qs, nil
		}
		qs, err := r.loader.GetQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[quizID] = cachedQuestions{
				questions: qs,
				expiresAt: r.clock().Add(r.ttlWithJitter()),
			}
			r.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// Invalidate drops the cached questions of a quiz.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) lookup(quizID string) ([]domain.Question, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return cloneQuestions(entry.questions), true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		opts := make(map[string]string, len(q.Options))
		for k, v := range q.Options {
			opts[k] = v
		}
		q.Options = opts
		out[i] = q
	}
	return out
}
