package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Capitals",
		OwnerID:   "host",
		Published: true,
		Questions: []domain.Question{
			{
				ID: "q2", Index: 1, Text: "Pick the primes", Type: domain.MultiChoice,
				TimeLimitSeconds: 10, Points: 200,
				Options: []domain.Option{{ID: "a", Correct: true}, {ID: "b"}, {ID: "c", Correct: true}},
			},
			{
				ID: "q1", Index: 0, Text: "Capital of France?", Type: domain.SingleChoice,
				TimeLimitSeconds: 20, Points: 1000,
				Options: []domain.Option{{ID: "paris", Correct: true}, {ID: "lyon"}},
			},
		},
	}
}

func newTestRoom(clock *fakeClock) *Room {
	return NewRoomWithClock("ABCDEF", testQuiz(), "host", clock.Now)
}

func TestRoomOrdersQuestionsByIndex(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	q, ok, err := room.NextQuestion()
	if err != nil || !ok {
		t.Fatalf("next question: ok=%v err=%v", ok, err)
	}
	if q.ID != "q1" {
		t.Fatalf("expected q1 first, got %s", q.ID)
	}
}

func TestSubmitAnswerScoresBySpeed(t *testing.T) {
	clock := newFakeClock()
	room := newTestRoom(clock)
	room.AddPlayer("u1", "Alice", "c1")
	room.AddPlayer("u2", "Bob", "c2")
	room.AddPlayer("u3", "Cleo", "c3")
	_ = room.Start()
	_, _, _ = room.NextQuestion()

	out, err := room.SubmitAnswer("c1", []string{"paris"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Correct || out.Awarded != 1000 || out.Answered != 1 || out.Seated != 3 {
		t.Fatalf("instant correct answer should earn 1000, got %+v", out)
	}

	clock.Advance(20 * time.Second)
	out, _ = room.SubmitAnswer("c2", []string{"paris"})
	if out.Awarded != 500 {
		t.Fatalf("answer at the time limit should earn 500, got %d", out.Awarded)
	}
	out, _ = room.SubmitAnswer("c3", []string{"lyon"})
	if out.Correct || out.Awarded != 0 || out.Score != 0 {
		t.Fatalf("wrong answer should earn nothing, got %+v", out)
	}
}

func TestDuplicateSubmissionLeavesScoreUnchanged(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	_ = room.Start()
	_, _, _ = room.NextQuestion()

	if _, err := room.SubmitAnswer("c1", []string{"paris"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := room.SubmitAnswer("c1", []string{"paris"}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	p, _ := room.PlayerByConn("c1")
	if p.Score != 1000 {
		t.Fatalf("score changed on duplicate submit: %d", p.Score)
	}
}

func TestEmptyAnswerCountsAsWrong(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	_ = room.Start()
	_, _, _ = room.NextQuestion()

	out, err := room.SubmitAnswer("c1", nil)
	if err != nil {
		t.Fatalf("empty answer should be accepted: %v", err)
	}
	if out.Correct || out.Awarded != 0 || out.Answered != 1 {
		t.Fatalf("empty answer should count as answered and wrong, got %+v", out)
	}
	if _, err := room.SubmitAnswer("c1", []string{"paris"}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered after an empty answer, got %v", err)
	}
}

func TestConcurrentSubmissionsAcceptOnlyOne(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	_ = room.Start()
	_, _, _ = room.NextQuestion()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := room.SubmitAnswer("c1", []string{"paris"}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted answer, got %d", accepted)
	}
	if p, _ := room.PlayerByConn("c1"); p.Score != 1000 {
		t.Fatalf("expected score 1000, got %d", p.Score)
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")

	if _, err := room.SubmitAnswer("c1", []string{"paris"}); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	_ = room.Start()
	if _, err := room.SubmitAnswer("c1", []string{"paris"}); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion before the first reveal, got %v", err)
	}
	_, _, _ = room.NextQuestion()
	if _, err := room.SubmitAnswer("ghost", []string{"paris"}); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestNextQuestionResetsAnswersAndFinishes(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")

	if _, _, err := room.NextQuestion(); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	_ = room.Start()
	if err := room.Start(); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	_, _, _ = room.NextQuestion()
	_, _ = room.SubmitAnswer("c1", []string{"paris"})
	if room.AnsweredCount() != 1 {
		t.Fatalf("expected one answer recorded")
	}

	q, ok, _ := room.NextQuestion()
	if !ok || q.ID != "q2" {
		t.Fatalf("expected q2, got %+v ok=%v", q, ok)
	}
	if room.AnsweredCount() != 0 {
		t.Fatalf("expected answers cleared on advance")
	}

	_, ok, err := room.NextQuestion()
	if err != nil || ok {
		t.Fatalf("expected end of questions, got ok=%v err=%v", ok, err)
	}
	if room.Phase() != PhaseFinished || room.CurrentIndex() != room.TotalQuestions() {
		t.Fatalf("expected finished room, phase=%s index=%d", room.Phase(), room.CurrentIndex())
	}
	if _, _, err := room.NextQuestion(); !errors.Is(err, domain.ErrRoomFinished) {
		t.Fatalf("expected ErrRoomFinished, got %v", err)
	}
	if _, err := room.SubmitAnswer("c1", []string{"a"}); !errors.Is(err, domain.ErrRoomFinished) {
		t.Fatalf("expected ErrRoomFinished on submit, got %v", err)
	}
}

func TestStartWithoutQuestions(t *testing.T) {
	room := NewRoom("ABCDEF", domain.Quiz{ID: "empty"}, "host")
	if err := room.Start(); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestAdmitRules(t *testing.T) {
	room := newTestRoom(newFakeClock())

	if _, err := room.Admit("host", "Host", "h1"); !errors.Is(err, domain.ErrHostCannotJoin) {
		t.Fatalf("expected ErrHostCannotJoin, got %v", err)
	}
	if _, err := room.Admit("u1", "Alice", "c1"); err != nil {
		t.Fatalf("admit alice: %v", err)
	}
	if _, err := room.Admit("u1", "Alice", "c1b"); !errors.Is(err, domain.ErrAlreadyInRoom) {
		t.Fatalf("expected ErrAlreadyInRoom, got %v", err)
	}
	_ = room.Start()
	if _, err := room.Admit("u9", "Late", "c9"); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted for a newcomer, got %v", err)
	}
}

func TestRejoinRestoresScore(t *testing.T) {
	room := newTestRoom(newFakeClock())
	_, _ = room.Admit("u1", "Alice", "c1")
	_ = room.Start()
	_, _, _ = room.NextQuestion()
	_, _ = room.SubmitAnswer("c1", []string{"paris"})

	if _, ok := room.RemovePlayer("c1"); !ok {
		t.Fatalf("expected seat removed")
	}
	if room.PlayerCount() != 0 {
		t.Fatalf("expected empty room")
	}

	p, err := room.Admit("u1", "Alice", "c1-new")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if p.Score != 1000 {
		t.Fatalf("expected restored score 1000, got %d", p.Score)
	}
	if _, err := room.SubmitAnswer("c1-new", []string{"paris"}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("rejoining must not allow a second answer, got %v", err)
	}
	if !room.State("c1-new").Answered {
		t.Fatalf("expected the restored seat to show the earlier answer")
	}

	_, _, _ = room.NextQuestion()
	if _, err := room.SubmitAnswer("c1-new", []string{"a", "c"}); err != nil {
		t.Fatalf("submit on the next question: %v", err)
	}
}

func TestFinalResultsIncludeDepartedPlayers(t *testing.T) {
	clock := newFakeClock()
	room := newTestRoom(clock)
	room.AddPlayer("u1", "Alice", "c1")
	room.AddPlayer("u2", "Bob", "c2")
	_ = room.Start()
	_, _, _ = room.NextQuestion()
	_, _ = room.SubmitAnswer("c1", []string{"paris"})
	clock.Advance(10 * time.Second)
	_, _ = room.SubmitAnswer("c2", []string{"paris"})
	room.RemovePlayer("c2")

	if got := len(room.Leaderboard()); got != 1 {
		t.Fatalf("leaderboard lists seated players only, got %d", got)
	}
	final := room.FinalResults()
	if len(final) != 2 {
		t.Fatalf("expected both users in final results, got %+v", final)
	}
	if final[1].UserID != "u2" || final[1].Score != 750 {
		t.Fatalf("expected bob with 750, got %+v", final[1])
	}
}

func TestLeaderboardTiesKeepJoinOrder(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	room.AddPlayer("u2", "Bob", "c2")
	room.AddPlayer("u3", "Cleo", "c3")
	_ = room.Start()
	_, _, _ = room.NextQuestion()
	_, _ = room.SubmitAnswer("c3", []string{"paris"})

	lb := room.Leaderboard()
	if lb[0].UserID != "u3" || lb[1].UserID != "u1" || lb[2].UserID != "u2" {
		t.Fatalf("unexpected order %+v", lb)
	}
	for i, e := range lb {
		if e.Place != i+1 {
			t.Fatalf("expected place %d, got %d", i+1, e.Place)
		}
	}
}

func TestQuestionResultsAndState(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.SetHostConn("h1")
	room.AddPlayer("u1", "Alice", "c1")
	room.AddPlayer("u2", "Bob", "c2")

	if _, err := room.QuestionResults(); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion, got %v", err)
	}
	state := room.State("h1")
	if state.Phase != PhaseLobby || !state.IsHost || state.Question != nil || state.CurrentQuestionIndex != -1 {
		t.Fatalf("unexpected lobby state %+v", state)
	}

	_ = room.Start()
	_, _, _ = room.NextQuestion()
	_, _ = room.SubmitAnswer("c1", []string{"paris"})

	res, err := room.QuestionResults()
	if err != nil {
		t.Fatalf("question results: %v", err)
	}
	if res.QuestionID != "q1" || len(res.CorrectOptionIDs) != 1 || res.CorrectOptionIDs[0] != "paris" {
		t.Fatalf("unexpected results %+v", res)
	}
	if !res.Players[0].Correct || res.Players[1].Answered {
		t.Fatalf("unexpected per-player results %+v", res.Players)
	}

	state = room.State("c1")
	if state.IsHost || !state.Answered || state.Question == nil || state.QuestionNumber != 1 {
		t.Fatalf("unexpected player state %+v", state)
	}
	if state.Question.Options[0].ID != "paris" {
		t.Fatalf("expected answer-stripped question options, got %+v", state.Question.Options)
	}
}

func TestEndRequiresStart(t *testing.T) {
	room := newTestRoom(newFakeClock())
	room.AddPlayer("u1", "Alice", "c1")
	if _, err := room.End(); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	_ = room.Start()
	lb, err := room.End()
	if err != nil || len(lb) != 1 {
		t.Fatalf("end: lb=%+v err=%v", lb, err)
	}
	if room.Phase() != PhaseFinished {
		t.Fatalf("expected finished")
	}
}

func TestCloseIfAbandoned(t *testing.T) {
	clock := newFakeClock()
	room := newTestRoom(clock)
	room.SetHostConn("c-host")
	room.AddPlayer("u1", "Alice", "c1")
	_ = room.Start()

	later := clock.Now().Add(time.Hour)
	if room.CloseIfAbandoned(later, time.Minute) {
		t.Fatalf("room with a connected host must stay open")
	}
	room.SetHostConn("")
	if room.CloseIfAbandoned(later, time.Minute) {
		t.Fatalf("room with a seated player must stay open")
	}
	room.RemovePlayer("c1")
	if room.CloseIfAbandoned(clock.Now().Add(time.Second), time.Minute) {
		t.Fatalf("recently active room must stay open")
	}
	if !room.CloseIfAbandoned(later, time.Minute) {
		t.Fatalf("expected abandoned room closed")
	}
	if _, err := room.Admit("u1", "Alice", "c1b"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("closed room must not admit returning players, got %v", err)
	}
}
