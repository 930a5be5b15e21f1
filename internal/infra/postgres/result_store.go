package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"live-quiz-service/internal/domain"
)

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	UserID    string    `bun:"user_id,pk"`
	QuizID    string    `bun:"quiz_id,pk"`
	Score     int       `bun:"score,notnull"`
	Place     int       `bun:"place,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// ResultStore upserts results into quiz_results, one row per (user_id, quiz_id).
type ResultStore struct {
	db    bun.IDB
	clock func() time.Time
}

func NewResultStore(db bun.IDB) *ResultStore {
	return &ResultStore{db: db, clock: time.Now}
}

func (s *ResultStore) UpsertResult(ctx context.Context, result domain.Result) error {
	row := resultRow{
		UserID:    result.UserID,
		QuizID:    result.QuizID,
		Score:     result.Score,
		Place:     result.Place,
		UpdatedAt: s.clock().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (user_id, quiz_id) DO UPDATE").
		Set("score = EXCLUDED.score").
		Set("place = EXCLUDED.place").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert result %s/%s: %w", result.QuizID, result.UserID, err)
	}
	return nil
}

// Results lists a quiz's stored results by place.
func (s *ResultStore) Results(ctx context.Context, quizID string) ([]domain.Result, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("place ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results of quiz %s: %w", quizID, err)
	}
	out := make([]domain.Result, len(rows))
	for i, row := range rows {
		out[i] = domain.Result{UserID: row.UserID, QuizID: row.QuizID, Score: row.Score, Place: row.Place}
	}
	return out, nil
}
