package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

// QuizRepository caches whole quizzes in Redis and falls back to a loader on a miss.
// Each quiz is stored as JSON under quiz:{quizID} with a jittered TTL.
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	v, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}
		return r.load(ctx, quizID)
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return v.(domain.Quiz), nil
}

// Refresh reads quizID from the loader, bypassing Redis, and overwrites the
// cached copy. A quiz that no longer exists is evicted.
func (r *QuizRepository) Refresh(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := r.load(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

func (r *QuizRepository) load(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := r.loader.LoadQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			if delErr := r.client.Del(ctx, quizKey(quizID)).Err(); delErr != nil {
				log.Printf("redis quiz cache evict %s: %v", quizID, delErr)
			}
		}
		return domain.Quiz{}, err
	}
	r.store(ctx, quiz)
	return quiz, nil
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("redis quiz cache read %s: %v", quizID, err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		log.Printf("redis quiz cache entry %s is corrupt: %v", quizID, err)
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		log.Printf("encode quiz %s for cache: %v", quiz.ID, err)
		return
	}
	if err := r.client.Set(ctx, quizKey(quiz.ID), raw, r.ttlWithJitter()).Err(); err != nil {
		log.Printf("redis quiz cache write %s: %v", quiz.ID, err)
	}
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(int64(r.ttl)/10+1))
}

func quizKey(quizID string) string {
	return "quiz:" + quizID
}
