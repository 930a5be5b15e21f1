package memory

import (
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// maxCodeAttempts bounds retries so a degenerate generator cannot spin forever.
const maxCodeAttempts = 10000

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	generate app.CodeGenerator
	capacity int

	mu    sync.RWMutex
	rooms map[string]*app.Room
	conns map[string]string
}

// Option customizes a RoomStore.
type Option func(*RoomStore)

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen app.CodeGenerator) Option {
	return func(s *RoomStore) { s.generate = gen }
}

// WithCapacity caps the number of live rooms; values <= 0 or beyond the code space are ignored.
func WithCapacity(n int) Option {
	return func(s *RoomStore) {
		if n > 0 && n < app.RoomCodeSpace {
			s.capacity = n
		}
	}
}

func NewRoomStore(opts ...Option) *RoomStore {
	s := &RoomStore{
		generate: app.NewRandomCodeGenerator(),
		capacity: app.RoomCodeSpace,
		rooms:    make(map[string]*app.Room),
		conns:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new room under a code no live room uses.
func (s *RoomStore) Create(quiz domain.Quiz, hostUserID string) (*app.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rooms) >= s.capacity {
		return nil, domain.ErrRoomCapacity
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := app.NormalizeCode(s.generate())
		if _, taken := s.rooms[code]; taken {
			continue
		}
		room := app.NewRoom(code, quiz, hostUserID)
		s.rooms[code] = room
		return room, nil
	}
	return nil, domain.ErrRoomCapacity
}

// Get resolves a code case-insensitively.
func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[app.NormalizeCode(code)]
	return room, ok
}

// Bind records that connID belongs to the room under code. Rebinding to the same room is a no-op.
func (s *RoomStore) Bind(code, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = app.NormalizeCode(code)
	if _, ok := s.rooms[code]; !ok {
		return domain.ErrRoomNotFound
	}
	if current, ok := s.conns[connID]; ok && current != code {
		return domain.ErrConnectionInRoom
	}
	s.conns[connID] = code
	return nil
}

func (s *RoomStore) Unbind(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
}

func (s *RoomStore) GetByConn(connID string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.conns[connID]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[code]
	return room, ok
}

// Connections lists every connection bound to the room under code.
func (s *RoomStore) Connections(code string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code = app.NormalizeCode(code)
	var ids []string
	for connID, bound := range s.conns {
		if bound == code {
			ids = append(ids, connID)
		}
	}
	return ids
}

// Delete removes the room and every connection bound to it.
func (s *RoomStore) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = app.NormalizeCode(code)
	if _, ok := s.rooms[code]; !ok {
		return false
	}
	delete(s.rooms, code)
	for connID, bound := range s.conns {
		if bound == code {
			delete(s.conns, connID)
		}
	}
	return true
}

func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *RoomStore) All() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}
