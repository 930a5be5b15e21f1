package domain

import (
	"fmt"
	"sort"
)

// QuestionType tags how a submitted answer is judged.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
)

// Valid reports whether t is a supported question type.
func (t QuestionType) Valid() bool {
	_, ok := judges[t]
	return ok
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a timed choice question.
type Question struct {
	ID               string       `json:"id"`
	Index            int          `json:"index"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Options          []Option     `json:"options"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"`
	Points           int          `json:"points"`
}

// CorrectOptionIDs lists the ids flagged correct, in option order.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// ForPlayer strips correctness flags.
func (q Question) ForPlayer() PlayerQuestion {
	options := make([]PlayerOption, len(q.Options))
	for i, opt := range q.Options {
		options[i] = PlayerOption{ID: opt.ID, Text: opt.Text}
	}
	return PlayerQuestion{
		ID:               q.ID,
		Index:            q.Index,
		Text:             q.Text,
		Type:             q.Type,
		Options:          options,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Points:           q.Points,
	}
}

func (q Question) clone() Question {
	out := q
	out.Options = append([]Option(nil), q.Options...)
	return out
}

// PlayerOption is an option as shown to players.
type PlayerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PlayerQuestion is the answer-stripped view of a question.
type PlayerQuestion struct {
	ID               string         `json:"id"`
	Index            int            `json:"index"`
	Text             string         `json:"text"`
	Type             QuestionType   `json:"type"`
	Options          []PlayerOption `json:"options"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	Points           int            `json:"points"`
}

// Quiz is a collection of questions owned by a user.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	OwnerID   string     `json:"ownerId"`
	Published bool       `json:"published"`
	Questions []Question `json:"questions"`
}

// Validate checks the parts of a quiz the game engine relies on.
func (q Quiz) Validate() error {
	for _, question := range q.Questions {
		if !question.Type.Valid() {
			return fmt.Errorf("%w: question %s has unknown type %q", ErrInvalidQuiz, question.ID, question.Type)
		}
		if question.TimeLimitSeconds <= 0 {
			return fmt.Errorf("%w: question %s needs a positive time limit", ErrInvalidQuiz, question.ID)
		}
		if question.Points < 0 {
			return fmt.Errorf("%w: question %s has negative points", ErrInvalidQuiz, question.ID)
		}
	}
	return nil
}

// SnapshotQuestions returns a deep copy of the questions sorted by ordinal position.
func (q Quiz) SnapshotQuestions() []Question {
	out := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out[i] = question.clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// PlayerSummary is a roster entry.
type PlayerSummary struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"userName"`
	Score       int    `json:"score"`
}

// LeaderboardEntry is a ranked roster entry.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"userName"`
	Score       int    `json:"score"`
	Place       int    `json:"place"`
}

// PlayerResult is one seated player's outcome for the current question.
type PlayerResult struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"userName"`
	Answered    bool   `json:"answered"`
	Correct     bool   `json:"correct"`
	Score       int    `json:"score"`
}

// QuestionResults reveals the current question's answer and per-player outcome.
type QuestionResults struct {
	QuestionID       string         `json:"questionId"`
	CorrectOptionIDs []string       `json:"correctOptionIds"`
	Players          []PlayerResult `json:"perPlayer"`
}

// FinalScore is the last known score of anyone ever seated in a room.
type FinalScore struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"userName"`
	Score       int    `json:"score"`
}

// Result is the persisted outcome of a user in a quiz, keyed by (UserID, QuizID).
type Result struct {
	UserID string `json:"userId"`
	QuizID string `json:"quizId"`
	Score  int    `json:"score"`
	Place  int    `json:"place"`
}

// RankResults orders scores descending (stable) and assigns 1-based places.
func RankResults(quizID string, scores []FinalScore) []Result {
	ordered := append([]FinalScore(nil), scores...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	results := make([]Result, len(ordered))
	for i, s := range ordered {
		results[i] = Result{UserID: s.UserID, QuizID: quizID, Score: s.Score, Place: i + 1}
	}
	return results
}
