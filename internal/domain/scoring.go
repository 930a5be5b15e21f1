package domain

import (
	"math"
	"time"
)

// judge decides whether a submission is correct given the set of correct option ids.
type judge func(selected []string, correct map[string]struct{}) bool

var judges = map[QuestionType]judge{
	SingleChoice: judgeSingle,
	MultiChoice:  judgeMulti,
}

// Exactly one option named, and it is a correct one.
func judgeSingle(selected []string, correct map[string]struct{}) bool {
	if len(selected) != 1 {
		return false
	}
	_, ok := correct[selected[0]]
	return ok
}

// The submitted set must equal the correct set; no partial credit.
func judgeMulti(selected []string, correct map[string]struct{}) bool {
	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	if len(chosen) != len(correct) {
		return false
	}
	for id := range chosen {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

// IsCorrect judges a submission against q using the rule for its type.
// An empty submission is never correct.
func IsCorrect(q Question, selected []string) bool {
	j, ok := judges[q.Type]
	if !ok || len(selected) == 0 {
		return false
	}
	correct := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			correct[opt.ID] = struct{}{}
		}
	}
	return j(selected, correct)
}

// SpeedBonus is the fraction of the bonus half earned, decaying linearly from 1 at reveal
// to 0 at the time limit.
func SpeedBonus(elapsed time.Duration, timeLimitSeconds int) float64 {
	if timeLimitSeconds <= 0 {
		return 0
	}
	limitMs := float64(timeLimitSeconds) * 1000
	bonus := 1 - float64(elapsed.Milliseconds())/limitMs
	return math.Min(1, math.Max(0, bonus))
}

// AwardPoints returns the points earned by a correct answer submitted after elapsed.
// Half the value is guaranteed; the other half scales with SpeedBonus.
func AwardPoints(q Question, elapsed time.Duration) int {
	half := float64(q.Points) * 0.5
	return int(math.Round(half + half*SpeedBonus(elapsed, q.TimeLimitSeconds)))
}

// Score judges a submission and returns (correct, awarded points).
func Score(q Question, selected []string, elapsed time.Duration) (bool, int) {
	if !IsCorrect(q, selected) {
		return false, 0
	}
	return true, AwardPoints(q, elapsed)
}
