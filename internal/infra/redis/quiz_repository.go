package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"formship-quiz-service/internal/domain"
	"formship-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizRepository caches question lists in Redis (hash per quiz) and falls back
// to a loader on cache miss. Questions are stored as:
// HSET quiz:{quizID}:questions {questionID} {question JSON}
// Quiz rows are never cached; a non-positive TTL bypasses Redis entirely.
type QuizRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	// fills for different quizzes run concurrently and share rnd
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.loader.GetQuiz(ctx, quizID)
}

func (r *QuizRepository) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if r.ttl <= 0 {
		return r.load(ctx, quizID)
	}
	key := r.questionsKey(quizID)

	if qs, ok := r.fromCache(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.fromCache(ctx, key); ok {
			return qs, nil
		}

		qs, err := r.loader.GetQuestions(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if len(qs) == 0 {
			return qs, nil
		}

		pipe := r.client.Pipeline()
		for _, q := range qs {
			raw, err := json.Marshal(cachedQuestion(q))
			if err != nil {
				return nil, fmt.Errorf("encode question %s: %w", q.ID, err)
			}
			pipe.HSet(ctx, key, q.ID, raw)
		}
		pipe.Expire(ctx, key, r.ttlWithJitter())
		_, _ = pipe.Exec(ctx)

		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached questions of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.questionsKey(quizID)).Err()
}

func (r *QuizRepository) load(ctx context.Context, quizID string) ([]domain.Question, error) {
	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		return r.loader.GetQuestions(ctx, quizID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuizRepository) fromCache(ctx context.Context, key string) ([]domain.Question, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	qs := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var cq cachedQuestion
		if err := json.Unmarshal([]byte(raw), &cq); err != nil {
			return nil, false
		}
		qs = append(qs, domain.Question(cq))
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs, true
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	jitter := r.rnd.Int63n(jitterMax + 1)
	r.rndMu.Unlock()
	return r.ttl + time.Duration(jitter)
}

// cachedQuestion keeps the correct answer in the cached form; the domain
// JSON shape omits it when empty but scoring needs it.
type cachedQuestion struct {
	ID            string            `json:"id"`
	QuizID        string            `json:"quizId"`
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Order         int               `json:"order"`
}
