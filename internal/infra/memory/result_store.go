package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

type resultKey struct {
	userID string
	quizID string
}

// ResultStore keeps results in process. Used when no database is configured.
type ResultStore struct {
	mu      sync.RWMutex
	results map[resultKey]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[resultKey]domain.Result)}
}

func (s *ResultStore) UpsertResult(ctx context.Context, result domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.results[resultKey{userID: result.UserID, quizID: result.QuizID}] = result
	s.mu.Unlock()
	return nil
}

// Results lists the stored results of a quiz ordered by place.
func (s *ResultStore) Results(ctx context.Context, quizID string) ([]domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Result
	for key, result := range s.results {
		if key.quizID == quizID {
			out = append(out, result)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out, nil
}
