package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
)

// ResultStore writes results as hashes: HSET result:{quizID}:{userID} score {n} place {n}.
// Rewriting the hash is the upsert. The set results:{quizID} indexes the users of a quiz.
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

func (s *ResultStore) UpsertResult(ctx context.Context, result domain.Result) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, resultKey(result.QuizID, result.UserID),
			"score", result.Score,
			"place", result.Place,
		)
		pipe.SAdd(ctx, indexKey(result.QuizID), result.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert result %s/%s: %w", result.QuizID, result.UserID, err)
	}
	return nil
}

// Results lists a quiz's stored results by place.
func (s *ResultStore) Results(ctx context.Context, quizID string) ([]domain.Result, error) {
	users, err := s.client.SMembers(ctx, indexKey(quizID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list results of quiz %s: %w", quizID, err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(users))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, userID := range users {
			cmds[i] = pipe.HGetAll(ctx, resultKey(quizID, userID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results of quiz %s: %w", quizID, err)
	}

	out := make([]domain.Result, 0, len(users))
	for i, userID := range users {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		result, err := parseResult(quizID, userID, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Place < out[j].Place })
	return out, nil
}

func parseResult(quizID, userID string, fields map[string]string) (domain.Result, error) {
	score, err := strconv.Atoi(fields["score"])
	if err != nil {
		return domain.Result{}, fmt.Errorf("result %s/%s: bad score: %w", quizID, userID, err)
	}
	place, err := strconv.Atoi(fields["place"])
	if err != nil {
		return domain.Result{}, fmt.Errorf("result %s/%s: bad place: %w", quizID, userID, err)
	}
	return domain.Result{UserID: userID, QuizID: quizID, Score: score, Place: place}, nil
}

func resultKey(quizID, userID string) string {
	return "result:" + quizID + ":" + userID
}

func indexKey(quizID string) string {
	return "results:" + quizID
}
