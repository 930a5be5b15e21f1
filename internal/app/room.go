package app

import (
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// Phase is the lifecycle stage of a room.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// Player is a seat in a room, keyed by its live connection.
type Player struct {
	UserID      string
	DisplayName string
	ConnID      string
	Score       int
	Answer      []string
	Answered    bool
	Elapsed     time.Duration
}

// scoreRecord outlives seats so a returning user keeps their score and
// cannot answer the same question twice.
type scoreRecord struct {
	userID        string
	displayName   string
	score         int
	answeredIndex int
	answer        []string
	elapsed       time.Duration
}

// AnswerOutcome describes an accepted answer.
type AnswerOutcome struct {
	Correct  bool
	Awarded  int
	Score    int
	Elapsed  time.Duration
	Answered int
	Seated   int
}

// Room is the authoritative state of one live quiz session.
// All methods are safe for concurrent use; each runs under the room lock, so the
// answered-check and the answer write can never interleave with another submission.
type Room struct {
	code       string
	quizID     string
	quizTitle  string
	hostUserID string
	now        func() time.Time

	mu           sync.Mutex
	hostConnID   string
	questions    []domain.Question
	current      int
	started      bool
	finished     bool
	closed       bool
	revealedAt   time.Time
	seats        []*Player
	records      map[string]*scoreRecord
	recordOrder  []string
	lastActivity time.Time
}

// NewRoom snapshots the quiz questions into a fresh lobby.
func NewRoom(code string, quiz domain.Quiz, hostUserID string) *Room {
	return NewRoomWithClock(code, quiz, hostUserID, time.Now)
}

// NewRoomWithClock allows deterministic answer latencies in tests.
func NewRoomWithClock(code string, quiz domain.Quiz, hostUserID string, now func() time.Time) *Room {
	return &Room{
		code:         code,
		quizID:       quiz.ID,
		quizTitle:    quiz.Title,
		hostUserID:   hostUserID,
		now:          now,
		questions:    quiz.SnapshotQuestions(),
		current:      -1,
		records:      make(map[string]*scoreRecord),
		lastActivity: now(),
	}
}

func (r *Room) Code() string       { return r.code }
func (r *Room) QuizID() string     { return r.quizID }
func (r *Room) QuizTitle() string  { return r.quizTitle }
func (r *Room) HostUserID() string { return r.hostUserID }

// IsHost reports whether userID created this room.
func (r *Room) IsHost(userID string) bool { return r.hostUserID == userID }

func (r *Room) HostConnID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostConnID
}

// SetHostConn records the host's live connection; an empty id marks the host as gone.
func (r *Room) SetHostConn(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostConnID = connID
	r.touchLocked()
}

// Phase derives the lifecycle stage from the started/finished flags.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phaseLocked()
}

func (r *Room) phaseLocked() Phase {
	switch {
	case r.finished:
		return PhaseFinished
	case r.started:
		return PhaseInProgress
	default:
		return PhaseLobby
	}
}

func (r *Room) TotalQuestions() int { return len(r.questions) }

func (r *Room) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) touchLocked() {
	r.lastActivity = r.now()
}

// CloseIfAbandoned closes the room when neither the host nor any player is
// connected and nothing has happened for at least idle. A closed room admits nobody.
func (r *Room) CloseIfAbandoned(now time.Time, idle time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if r.hostConnID != "" || len(r.seats) > 0 || now.Sub(r.lastActivity) < idle {
		return false
	}
	r.closed = true
	return true
}

// AddPlayer seats a user on connID, restoring any score the user earned earlier in this room.
// Admission rules are the caller's concern; see Admit.
func (r *Room) AddPlayer(userID, displayName, connID string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.addPlayerLocked(userID, displayName, connID)
}

func (r *Room) addPlayerLocked(userID, displayName, connID string) *Player {
	rec, ok := r.records[userID]
	if !ok {
		rec = &scoreRecord{userID: userID, answeredIndex: -1}
		r.records[userID] = rec
		r.recordOrder = append(r.recordOrder, userID)
	}
	rec.displayName = displayName

	p := &Player{
		UserID:      userID,
		DisplayName: displayName,
		ConnID:      connID,
		Score:       rec.score,
	}
	if r.current >= 0 && rec.answeredIndex == r.current {
		p.Answer = rec.answer
		p.Answered = true
		p.Elapsed = rec.elapsed
	}
	r.seats = append(r.seats, p)
	r.touchLocked()
	return p
}

// Admit applies the join rules and seats the user in one step:
// the host never plays, a user holds at most one seat, and once the quiz has
// started only users who were seated before may come back.
func (r *Room) Admit(userID, displayName, connID string) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Player{}, domain.ErrRoomNotFound
	}
	if r.hostUserID == userID {
		return Player{}, domain.ErrHostCannotJoin
	}
	if r.seatByUserLocked(userID) != nil {
		return Player{}, domain.ErrAlreadyInRoom
	}
	if r.finished {
		return Player{}, domain.ErrRoomFinished
	}
	if _, returning := r.records[userID]; r.started && !returning {
		return Player{}, domain.ErrAlreadyStarted
	}
	return *r.addPlayerLocked(userID, displayName, connID), nil
}

// RemovePlayer frees the seat held by connID. The user's score stays on record.
func (r *Room) RemovePlayer(connID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.seats {
		if p.ConnID == connID {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			r.touchLocked()
			return *p, true
		}
	}
	return Player{}, false
}

func (r *Room) PlayerByConn(connID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.seats {
		if p.ConnID == connID {
			return *p, true
		}
	}
	return Player{}, false
}

// PlayerByUserID finds the live seat of userID.
func (r *Room) PlayerByUserID(userID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.seatByUserLocked(userID); p != nil {
		return *p, true
	}
	return Player{}, false
}

func (r *Room) seatByUserLocked(userID string) *Player {
	for _, p := range r.seats {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Players lists seated players in join order.
func (r *Room) Players() []domain.PlayerSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

func (r *Room) playersLocked() []domain.PlayerSummary {
	out := make([]domain.PlayerSummary, len(r.seats))
	for i, p := range r.seats {
		out[i] = domain.PlayerSummary{UserID: p.UserID, DisplayName: p.DisplayName, Score: p.Score}
	}
	return out
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats)
}

func (r *Room) AnsweredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.answeredLocked()
}

func (r *Room) answeredLocked() int {
	n := 0
	for _, p := range r.seats {
		if p.Answered {
			n++
		}
	}
	return n
}

// Start leaves the lobby. It does not reveal a question.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return domain.ErrAlreadyStarted
	}
	if len(r.questions) == 0 {
		return domain.ErrNoQuestions
	}
	r.started = true
	r.touchLocked()
	return nil
}

// NextQuestion advances exactly one step and reveals the question there.
// It returns ok=false when the quiz ran out of questions; the room is then finished.
func (r *Room) NextQuestion() (q domain.Question, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return domain.Question{}, false, domain.ErrNotStarted
	}
	if r.finished {
		return domain.Question{}, false, domain.ErrRoomFinished
	}

	r.current++
	for _, p := range r.seats {
		p.Answer = nil
		p.Answered = false
		p.Elapsed = 0
	}
	r.touchLocked()

	if r.current >= len(r.questions) {
		r.current = len(r.questions)
		r.finished = true
		r.revealedAt = time.Time{}
		return domain.Question{}, false, nil
	}
	r.revealedAt = r.now()
	return r.questions[r.current], true, nil
}

// CurrentQuestion returns the revealed question, if any.
func (r *Room) CurrentQuestion() (domain.Question, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *Room) currentLocked() (domain.Question, bool) {
	if r.current < 0 || r.current >= len(r.questions) {
		return domain.Question{}, false
	}
	return r.questions[r.current], true
}

// SubmitAnswer records and scores connID's answer to the revealed question.
// A seat answers each question at most once. An empty selection counts as an
// answer and is judged wrong.
func (r *Room) SubmitAnswer(connID string, optionIDs []string) (AnswerOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return AnswerOutcome{}, domain.ErrNotStarted
	}
	if r.finished {
		return AnswerOutcome{}, domain.ErrRoomFinished
	}
	q, ok := r.currentLocked()
	if !ok || r.revealedAt.IsZero() {
		return AnswerOutcome{}, domain.ErrNoActiveQuestion
	}

	var p *Player
	for _, seat := range r.seats {
		if seat.ConnID == connID {
			p = seat
			break
		}
	}
	if p == nil {
		return AnswerOutcome{}, domain.ErrPlayerNotFound
	}
	if p.Answered {
		return AnswerOutcome{}, domain.ErrAlreadyAnswered
	}

	elapsed := r.now().Sub(r.revealedAt)
	p.Answer = append([]string{}, optionIDs...)
	p.Answered = true
	p.Elapsed = elapsed

	correct, awarded := domain.Score(q, p.Answer, elapsed)
	p.Score += awarded
	rec := r.records[p.UserID]
	rec.score = p.Score
	rec.answeredIndex = r.current
	rec.answer = p.Answer
	rec.elapsed = elapsed
	r.touchLocked()

	return AnswerOutcome{
		Correct:  correct,
		Awarded:  awarded,
		Score:    p.Score,
		Elapsed:  elapsed,
		Answered: r.answeredLocked(),
		Seated:   len(r.seats),
	}, nil
}

// End finishes the quiz early (or confirms an exhausted one) and returns the leaderboard.
func (r *Room) End() ([]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil, domain.ErrNotStarted
	}
	r.finished = true
	r.revealedAt = time.Time{}
	r.touchLocked()
	return r.leaderboardLocked(), nil
}

// QuestionResults reveals the current question's correct options and each seat's outcome.
func (r *Room) QuestionResults() (domain.QuestionResults, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.currentLocked()
	if !ok {
		return domain.QuestionResults{}, domain.ErrNoActiveQuestion
	}

	players := make([]domain.PlayerResult, len(r.seats))
	for i, p := range r.seats {
		players[i] = domain.PlayerResult{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Answered:    p.Answered,
			Correct:     p.Answered && domain.IsCorrect(q, p.Answer),
			Score:       p.Score,
		}
	}
	return domain.QuestionResults{
		QuestionID:       q.ID,
		CorrectOptionIDs: q.CorrectOptionIDs(),
		Players:          players,
	}, nil
}

// Leaderboard ranks seated players by score; ties keep join order.
func (r *Room) Leaderboard() []domain.LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderboardLocked()
}

func (r *Room) leaderboardLocked() []domain.LeaderboardEntry {
	seats := append([]*Player(nil), r.seats...)
	sort.SliceStable(seats, func(i, j int) bool { return seats[i].Score > seats[j].Score })

	out := make([]domain.LeaderboardEntry, len(seats))
	for i, p := range seats {
		out[i] = domain.LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Place:       i + 1,
		}
	}
	return out
}

// FinalResults lists everyone ever seated here, including users who have left.
func (r *Room) FinalResults() []domain.FinalScore {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.FinalScore, 0, len(r.recordOrder))
	for _, userID := range r.recordOrder {
		rec := r.records[userID]
		out = append(out, domain.FinalScore{UserID: rec.userID, DisplayName: rec.displayName, Score: rec.score})
	}
	return out
}

// RoomState is a phase snapshot for a (re)connecting client.
type RoomState struct {
	Code                 string                 `json:"code"`
	QuizID               string                 `json:"quizId"`
	QuizTitle            string                 `json:"quizTitle"`
	Phase                Phase                  `json:"phase"`
	IsStarted            bool                   `json:"isStarted"`
	IsFinished           bool                   `json:"isFinished"`
	CurrentQuestionIndex int                    `json:"currentQuestionIndex"`
	QuestionNumber       int                    `json:"questionNumber"`
	TotalQuestions       int                    `json:"totalQuestions"`
	Players              []domain.PlayerSummary `json:"players"`
	IsHost               bool                   `json:"isHost"`
	Question             *domain.PlayerQuestion `json:"question,omitempty"`
	Answered             bool                   `json:"answered"`
}

// State builds the snapshot as seen from connID.
func (r *Room) State(connID string) RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := RoomState{
		Code:                 r.code,
		QuizID:               r.quizID,
		QuizTitle:            r.quizTitle,
		Phase:                r.phaseLocked(),
		IsStarted:            r.started,
		IsFinished:           r.finished,
		CurrentQuestionIndex: r.current,
		TotalQuestions:       len(r.questions),
		Players:              r.playersLocked(),
		IsHost:               connID != "" && connID == r.hostConnID,
	}
	if q, ok := r.currentLocked(); ok && !r.finished {
		view := q.ForPlayer()
		state.Question = &view
		state.QuestionNumber = r.current + 1
	}
	for _, p := range r.seats {
		if p.ConnID == connID {
			state.Answered = p.Answered
		}
	}
	return state
}
