package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code (or a connection's room) cannot be resolved.
	ErrRoomNotFound = errors.New("room not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotInRoom is returned when a connection acts before joining any room.
	ErrNotInRoom = errors.New("not in a room")
	// ErrPlayerNotFound is returned when a connection is not seated as a player.
	ErrPlayerNotFound = errors.New("player not found in room")

	ErrNotQuizOwner     = errors.New("you don't own this quiz")
	ErrHostOnly         = errors.New("only the host can do this")
	ErrHostCannotJoin   = errors.New("the host cannot join as a player")
	ErrHostCannotAnswer = errors.New("the host cannot submit answers")

	ErrQuizNotPublished = errors.New("quiz must be published first")
	ErrInvalidQuiz      = errors.New("invalid quiz")
	ErrAlreadyInRoom    = errors.New("you are already in this room")
	ErrAlreadyStarted   = errors.New("quiz has already started")
	ErrNotStarted       = errors.New("quiz has not started")
	ErrNoQuestions      = errors.New("quiz has no questions")
	ErrNoPlayers        = errors.New("no players have joined")
	ErrRoomFinished     = errors.New("quiz has finished")
	ErrNoActiveQuestion = errors.New("no question is active")
	ErrAlreadyAnswered  = errors.New("answer already submitted")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrUnsupportedEvent = errors.New("unsupported event")
	ErrConnectionInRoom = errors.New("connection already belongs to another room")

	// ErrRoomCapacity is returned when no free room code is left.
	ErrRoomCapacity = errors.New("no room codes available")

	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")
)

// ErrorKind classifies errors for callers.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindPermission      ErrorKind = "permission"
	KindCapacity        ErrorKind = "capacity"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindInternal        ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrRoomNotFound, KindNotFound},
	{ErrQuizNotFound, KindNotFound},
	{ErrNotInRoom, KindNotFound},
	{ErrPlayerNotFound, KindNotFound},
	{ErrNotQuizOwner, KindPermission},
	{ErrHostOnly, KindPermission},
	{ErrHostCannotJoin, KindPermission},
	{ErrHostCannotAnswer, KindPermission},
	{ErrRoomCapacity, KindCapacity},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrInvalidToken, KindUnauthenticated},
	{ErrQuizNotPublished, KindValidation},
	{ErrInvalidQuiz, KindValidation},
	{ErrAlreadyInRoom, KindValidation},
	{ErrAlreadyStarted, KindValidation},
	{ErrNotStarted, KindValidation},
	{ErrNoQuestions, KindValidation},
	{ErrNoPlayers, KindValidation},
	{ErrRoomFinished, KindValidation},
	{ErrNoActiveQuestion, KindValidation},
	{ErrAlreadyAnswered, KindValidation},
	{ErrInvalidPayload, KindValidation},
	{ErrUnsupportedEvent, KindValidation},
	{ErrConnectionInRoom, KindValidation},
}

// KindOf resolves the kind of err, following wrapped errors.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
