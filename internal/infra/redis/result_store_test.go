package redis

import (
	"context"
	"testing"

	"live-quiz-service/internal/domain"
)

func TestResultStoreUpserts(t *testing.T) {
	mr := startRedis(t)
	store := NewResultStore(newClient(mr))
	ctx := context.Background()

	if err := store.UpsertResult(ctx, domain.Result{UserID: "u1", QuizID: "quiz-1", Score: 300, Place: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertResult(ctx, domain.Result{UserID: "u2", QuizID: "quiz-1", Score: 800, Place: 1}); err != nil {
		t.Fatalf("upsert u2: %v", err)
	}
	if err := store.UpsertResult(ctx, domain.Result{UserID: "u1", QuizID: "quiz-1", Score: 1250, Place: 1}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if err := store.UpsertResult(ctx, domain.Result{UserID: "u1", QuizID: "quiz-2", Score: 5, Place: 1}); err != nil {
		t.Fatalf("upsert other quiz: %v", err)
	}

	if got := mr.HGet("result:quiz-1:u1", "score"); got != "1250" {
		t.Fatalf("expected score overwritten, got %q", got)
	}
	results, err := store.Results(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one result per user, got %+v", results)
	}
	for _, r := range results {
		if r.UserID == "u1" && (r.Score != 1250 || r.Place != 1) {
			t.Fatalf("expected latest save to win, got %+v", r)
		}
	}

	empty, err := store.Results(ctx, "nobody-played")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no results, got %+v %v", empty, err)
	}
}

func TestResultStoreReportsCorruptEntries(t *testing.T) {
	mr := startRedis(t)
	store := NewResultStore(newClient(mr))
	ctx := context.Background()

	if err := store.UpsertResult(ctx, domain.Result{UserID: "u1", QuizID: "quiz-1", Score: 10, Place: 1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	mr.HSet("result:quiz-1:u1", "score", "lots")
	if _, err := store.Results(ctx, "quiz-1"); err == nil {
		t.Fatalf("expected an error for a non-numeric score")
	}
}
