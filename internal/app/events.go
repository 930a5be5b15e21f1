package app

import "live-quiz-service/internal/domain"

// Inbound event names.
const (
	EventCreateRoom   = "create_room"
	EventJoinRoom     = "join_room"
	EventStartQuiz    = "start_quiz"
	EventNextQuestion = "next_question"
	EventSubmitAnswer = "submit_answer"
	EventShowResults  = "show_results"
	EventEndQuiz      = "end_quiz"
	EventGetRoomState = "get_room_state"
)

// Outbound event names.
const (
	EventPlayerJoined    = "player_joined"
	EventPlayerLeft      = "player_left"
	EventQuizStarted     = "quiz_started"
	EventQuestion        = "question"
	EventAnswerCount     = "answer_count"
	EventQuestionResults = "question_results"
	EventQuizEnded       = "quiz_ended"
	EventRoomClosed      = "room_closed"
)

// Event is a server-initiated message for one connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn identifies the connection an inbound event arrived on.
type Conn struct {
	ID       string
	Identity domain.Identity
}

type CreateRoomReply struct {
	Code           string `json:"code"`
	QuizTitle      string `json:"quizTitle"`
	TotalQuestions int    `json:"totalQuestions"`
}

type JoinRoomReply struct {
	Success   bool                   `json:"success"`
	Code      string                 `json:"code"`
	QuizTitle string                 `json:"quizTitle"`
	Players   []domain.PlayerSummary `json:"players"`
	Score     int                    `json:"score"`
}

type Ack struct {
	Success bool `json:"success"`
}

type NextQuestionReply struct {
	Success        bool `json:"success,omitempty"`
	Finished       bool `json:"finished,omitempty"`
	QuestionNumber int  `json:"questionNumber,omitempty"`
}

// SubmitAnswerReply deliberately says nothing about correctness.
type SubmitAnswerReply struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type EndQuizReply struct {
	Success     bool                      `json:"success"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type RosterPayload struct {
	UserID      string                 `json:"userId"`
	DisplayName string                 `json:"userName"`
	PlayerCount int                    `json:"playerCount"`
	Players     []domain.PlayerSummary `json:"players"`
}

type QuizStartedPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type QuestionPayload struct {
	Question       domain.PlayerQuestion `json:"question"`
	QuestionNumber int                   `json:"questionNumber"`
	TotalQuestions int                   `json:"totalQuestions"`
}

type AnswerCountPayload struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type QuestionResultsPayload struct {
	domain.QuestionResults
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type QuizEndedPayload struct {
	QuizID      string                    `json:"quizId"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}
