package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"live-quiz-service/internal/domain"
)

// RoomRepository is the room registry: code → room and connection → room.
type RoomRepository interface {
	Create(quiz domain.Quiz, hostUserID string) (*Room, error)
	Get(code string) (*Room, bool)
	Bind(code, connID string) error
	Unbind(connID string)
	GetByConn(connID string) (*Room, bool)
	Connections(code string) []string
	Delete(code string) bool
	Count() int
	All() []*Room
}

// QuizRepository loads quiz content. Refresh reads the backing store, never a cached copy.
type QuizRepository interface {
	Refresh(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore persists per-user quiz results keyed by (userID, quizID); repeated saves overwrite.
type ResultStore interface {
	UpsertResult(ctx context.Context, result domain.Result) error
}

// Notifier delivers events to a single connection. Delivery is best-effort.
type Notifier interface {
	Send(connID string, event Event)
}

const defaultPersistTimeout = 5 * time.Second

// GameService turns inbound connection events into room operations and fans the
// resulting state out to the room's connections.
type GameService struct {
	rooms          RoomRepository
	quizzes        QuizRepository
	results        ResultStore
	notifier       Notifier
	persistTimeout time.Duration
}

func NewGameService(rooms RoomRepository, quizzes QuizRepository, results ResultStore, notifier Notifier) *GameService {
	return &GameService{
		rooms:          rooms,
		quizzes:        quizzes,
		results:        results,
		notifier:       notifier,
		persistTimeout: defaultPersistTimeout,
	}
}

// WithPersistTimeout bounds each result-saving pass.
func (s *GameService) WithPersistTimeout(d time.Duration) *GameService {
	if d > 0 {
		s.persistTimeout = d
	}
	return s
}

// CreateRoom opens a lobby for a published quiz owned by the caller. The room is
// built from the quiz as currently stored.
func (s *GameService) CreateRoom(ctx context.Context, c Conn, quizID string) (CreateRoomReply, error) {
	if quizID == "" {
		return CreateRoomReply{}, fmt.Errorf("%w: quizId is required", domain.ErrInvalidPayload)
	}
	if _, bound := s.rooms.GetByConn(c.ID); bound {
		return CreateRoomReply{}, domain.ErrConnectionInRoom
	}

	quiz, err := s.quizzes.Refresh(ctx, quizID)
	if err != nil {
		return CreateRoomReply{}, err
	}
	if quiz.OwnerID != c.Identity.UserID {
		return CreateRoomReply{}, domain.ErrNotQuizOwner
	}
	if !quiz.Published {
		return CreateRoomReply{}, domain.ErrQuizNotPublished
	}
	if err := quiz.Validate(); err != nil {
		return CreateRoomReply{}, err
	}

	room, err := s.rooms.Create(quiz, c.Identity.UserID)
	if err != nil {
		return CreateRoomReply{}, err
	}
	room.SetHostConn(c.ID)
	if err := s.rooms.Bind(room.Code(), c.ID); err != nil {
		s.rooms.Delete(room.Code())
		return CreateRoomReply{}, err
	}

	log.Printf("room %s created for quiz %q by %s", room.Code(), quiz.Title, c.Identity.UserID)
	return CreateRoomReply{
		Code:           room.Code(),
		QuizTitle:      room.QuizTitle(),
		TotalQuestions: room.TotalQuestions(),
	}, nil
}

// JoinRoom seats the caller as a player.
func (s *GameService) JoinRoom(_ context.Context, c Conn, code string) (JoinRoomReply, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return JoinRoomReply{}, domain.ErrRoomNotFound
	}
	if current, bound := s.rooms.GetByConn(c.ID); bound && current != room {
		return JoinRoomReply{}, domain.ErrConnectionInRoom
	}

	player, err := room.Admit(c.Identity.UserID, c.Identity.Name, c.ID)
	if err != nil {
		return JoinRoomReply{}, err
	}
	if err := s.rooms.Bind(room.Code(), c.ID); err != nil {
		// The room was destroyed between lookup and bind.
		room.RemovePlayer(c.ID)
		return JoinRoomReply{}, err
	}

	players := room.Players()
	s.broadcast(room.Code(), Event{Type: EventPlayerJoined, Payload: RosterPayload{
		UserID:      player.UserID,
		DisplayName: player.DisplayName,
		PlayerCount: len(players),
		Players:     players,
	}})

	return JoinRoomReply{
		Success:   true,
		Code:      room.Code(),
		QuizTitle: room.QuizTitle(),
		Players:   players,
		Score:     player.Score,
	}, nil
}

// StartQuiz leaves the lobby.
func (s *GameService) StartQuiz(_ context.Context, c Conn) (Ack, error) {
	room, err := s.hostRoom(c)
	if err != nil {
		return Ack{}, err
	}
	if room.PlayerCount() == 0 {
		return Ack{}, domain.ErrNoPlayers
	}
	if err := room.Start(); err != nil {
		return Ack{}, err
	}

	s.broadcast(room.Code(), Event{Type: EventQuizStarted, Payload: QuizStartedPayload{
		TotalQuestions: room.TotalQuestions(),
	}})
	log.Printf("room %s started", room.Code())
	return Ack{Success: true}, nil
}

// NextQuestion reveals the next question, or reports that the quiz ran out of questions.
func (s *GameService) NextQuestion(_ context.Context, c Conn) (NextQuestionReply, error) {
	room, err := s.hostRoom(c)
	if err != nil {
		return NextQuestionReply{}, err
	}

	q, ok, err := room.NextQuestion()
	if err != nil {
		return NextQuestionReply{}, err
	}
	if !ok {
		log.Printf("room %s has no more questions", room.Code())
		return NextQuestionReply{Finished: true}, nil
	}

	number := room.CurrentIndex() + 1
	s.broadcast(room.Code(), Event{Type: EventQuestion, Payload: QuestionPayload{
		Question:       q.ForPlayer(),
		QuestionNumber: number,
		TotalQuestions: room.TotalQuestions(),
	}})
	return NextQuestionReply{Success: true, QuestionNumber: number}, nil
}

// SubmitAnswer records a player's answer. Rejections by the room are reported as
// accepted=false rather than as errors.
func (s *GameService) SubmitAnswer(_ context.Context, c Conn, optionIDs []string) (SubmitAnswerReply, error) {
	room, ok := s.rooms.GetByConn(c.ID)
	if !ok {
		return SubmitAnswerReply{}, domain.ErrNotInRoom
	}
	if room.IsHost(c.Identity.UserID) {
		return SubmitAnswerReply{}, domain.ErrHostCannotAnswer
	}

	outcome, err := room.SubmitAnswer(c.ID, optionIDs)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			return SubmitAnswerReply{}, err
		}
		return SubmitAnswerReply{Accepted: false, Reason: err.Error()}, nil
	}

	if host := room.HostConnID(); host != "" {
		s.notifier.Send(host, Event{Type: EventAnswerCount, Payload: AnswerCountPayload{
			Answered: outcome.Answered,
			Total:    outcome.Seated,
		}})
	}
	return SubmitAnswerReply{Accepted: true}, nil
}

// ShowResults reveals the current question's answer and saves interim scores.
func (s *GameService) ShowResults(ctx context.Context, c Conn) (Ack, error) {
	room, err := s.hostRoom(c)
	if err != nil {
		return Ack{}, err
	}
	results, err := room.QuestionResults()
	if err != nil {
		return Ack{}, err
	}

	s.broadcast(room.Code(), Event{Type: EventQuestionResults, Payload: QuestionResultsPayload{
		QuestionResults: results,
		Leaderboard:     room.Leaderboard(),
	}})
	s.persistResults(ctx, room.QuizID(), room.FinalResults())
	return Ack{Success: true}, nil
}

// EndQuiz finishes the quiz, announces the final leaderboard, destroys the room and
// saves everyone's final score.
func (s *GameService) EndQuiz(ctx context.Context, c Conn) (EndQuizReply, error) {
	room, err := s.hostRoom(c)
	if err != nil {
		return EndQuizReply{}, err
	}
	leaderboard, err := room.End()
	if err != nil {
		return EndQuizReply{}, err
	}

	conns := s.rooms.Connections(room.Code())
	if !s.rooms.Delete(room.Code()) {
		// Another end_quiz got here first.
		return EndQuizReply{}, domain.ErrRoomNotFound
	}
	event := Event{Type: EventQuizEnded, Payload: QuizEndedPayload{
		QuizID:      room.QuizID(),
		Leaderboard: leaderboard,
	}}
	for _, id := range conns {
		s.notifier.Send(id, event)
	}
	log.Printf("room %s ended", room.Code())

	s.persistResults(ctx, room.QuizID(), room.FinalResults())
	return EndQuizReply{Success: true, Leaderboard: leaderboard}, nil
}

// RoomState returns the caller's view of its room.
func (s *GameService) RoomState(_ context.Context, c Conn) (RoomState, error) {
	room, ok := s.rooms.GetByConn(c.ID)
	if !ok {
		return RoomState{}, domain.ErrNotInRoom
	}
	return room.State(c.ID), nil
}

// Disconnect releases everything bound to a closed connection. A host leaving an
// unstarted lobby closes it; a host leaving a running quiz leaves it running.
func (s *GameService) Disconnect(_ context.Context, c Conn) {
	defer s.rooms.Unbind(c.ID)

	room, ok := s.rooms.GetByConn(c.ID)
	if !ok {
		return
	}

	if player, removed := room.RemovePlayer(c.ID); removed {
		players := room.Players()
		s.broadcastExcept(room.Code(), c.ID, Event{Type: EventPlayerLeft, Payload: RosterPayload{
			UserID:      player.UserID,
			DisplayName: player.DisplayName,
			PlayerCount: len(players),
			Players:     players,
		}})
	}

	if !room.IsHost(c.Identity.UserID) || room.HostConnID() != c.ID {
		return
	}
	if room.Phase() == PhaseLobby {
		s.broadcastExcept(room.Code(), c.ID, Event{Type: EventRoomClosed, Payload: RoomClosedPayload{
			Reason: "host disconnected",
		}})
		s.rooms.Delete(room.Code())
		log.Printf("room %s closed: host left the lobby", room.Code())
		return
	}
	room.SetHostConn("")
	log.Printf("host left room %s after start; room keeps running", room.Code())
}

// ReapIdleRooms destroys rooms nobody is connected to once they have been idle for
// at least idle, saving the scores of rooms that got past the lobby. It returns the
// number of rooms removed.
func (s *GameService) ReapIdleRooms(ctx context.Context, now time.Time, idle time.Duration) int {
	reaped := 0
	for _, room := range s.rooms.All() {
		if !room.CloseIfAbandoned(now, idle) {
			continue
		}
		if !s.rooms.Delete(room.Code()) {
			continue
		}
		reaped++
		log.Printf("room %s reaped after %s idle", room.Code(), now.Sub(room.LastActivity()).Round(time.Second))
		if room.Phase() != PhaseLobby {
			s.persistResults(ctx, room.QuizID(), room.FinalResults())
		}
	}
	return reaped
}

// hostRoom resolves the caller's room and checks the caller is its host.
func (s *GameService) hostRoom(c Conn) (*Room, error) {
	room, ok := s.rooms.GetByConn(c.ID)
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if !room.IsHost(c.Identity.UserID) {
		return nil, domain.ErrHostOnly
	}
	return room, nil
}

func (s *GameService) broadcast(code string, event Event) {
	s.broadcastExcept(code, "", event)
}

func (s *GameService) broadcastExcept(code, skip string, event Event) {
	for _, id := range s.rooms.Connections(code) {
		if id != skip {
			s.notifier.Send(id, event)
		}
	}
}

// persistResults saves ranked scores. Storage is best-effort: failures are logged and
// never affect the game.
func (s *GameService) persistResults(ctx context.Context, quizID string, scores []domain.FinalScore) {
	if s.results == nil || len(scores) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(4)
	for _, result := range domain.RankResults(quizID, scores) {
		result := result
		g.Go(func() error {
			if err := s.results.UpsertResult(ctx, result); err != nil {
				return fmt.Errorf("user %s: %w", result.UserID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("persist results for quiz %s: %v", quizID, err)
	}
}
