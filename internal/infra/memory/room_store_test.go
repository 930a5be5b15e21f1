package memory

import (
	"errors"
	"testing"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func scriptedCodes(codes ...string) app.CodeGenerator {
	i := 0
	return func() string {
		code := codes[i%len(codes)]
		i++
		return code
	}
}

func TestRoomStoreCreatesWellFormedUniqueCodes(t *testing.T) {
	store := NewRoomStore()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		room, err := store.Create(sampleQuiz(), "host-1")
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		if !app.ValidCode(room.Code()) {
			t.Fatalf("malformed code %q", room.Code())
		}
		if seen[room.Code()] {
			t.Fatalf("duplicate code %q", room.Code())
		}
		seen[room.Code()] = true
	}
	if store.Count() != 200 {
		t.Fatalf("expected 200 rooms, got %d", store.Count())
	}
}

func TestRoomStoreRetriesOnCollision(t *testing.T) {
	store := NewRoomStore(WithCodeGenerator(scriptedCodes("AAAAAA", "AAAAAA", "BBBBBB")))

	first, err := store.Create(sampleQuiz(), "host-1")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := store.Create(sampleQuiz(), "host-2")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Code() != "AAAAAA" || second.Code() != "BBBBBB" {
		t.Fatalf("unexpected codes %s and %s", first.Code(), second.Code())
	}
}

func TestRoomStoreCapacity(t *testing.T) {
	store := NewRoomStore(WithCapacity(1))
	if _, err := store.Create(sampleQuiz(), "host-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(sampleQuiz(), "host-2"); !errors.Is(err, domain.ErrRoomCapacity) {
		t.Fatalf("expected ErrRoomCapacity, got %v", err)
	}

	exhausted := NewRoomStore(WithCodeGenerator(scriptedCodes("CCCCCC")))
	if _, err := exhausted.Create(sampleQuiz(), "host-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := exhausted.Create(sampleQuiz(), "host-2"); !errors.Is(err, domain.ErrRoomCapacity) {
		t.Fatalf("expected ErrRoomCapacity once codes run out, got %v", err)
	}
}

func TestRoomStoreLookupIsCaseInsensitive(t *testing.T) {
	store := NewRoomStore(WithCodeGenerator(scriptedCodes("ABCD23")))
	room, err := store.Create(sampleQuiz(), "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok := store.Get(" abcd23 ")
	if !ok || got != room {
		t.Fatalf("expected lowercase lookup to find the room")
	}
	if _, ok := store.Get("ZZZZZZ"); ok {
		t.Fatalf("expected unknown code to miss")
	}
}

func TestRoomStoreConnectionBinding(t *testing.T) {
	store := NewRoomStore(WithCodeGenerator(scriptedCodes("AAAAAA", "BBBBBB")))
	a, _ := store.Create(sampleQuiz(), "host-1")
	b, _ := store.Create(sampleQuiz(), "host-2")

	if err := store.Bind(a.Code(), "c1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := store.Bind(a.Code(), "c1"); err != nil {
		t.Fatalf("rebind to the same room should be a no-op: %v", err)
	}
	if err := store.Bind(b.Code(), "c1"); !errors.Is(err, domain.ErrConnectionInRoom) {
		t.Fatalf("expected ErrConnectionInRoom, got %v", err)
	}
	if err := store.Bind("QQQQQQ", "c2"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	if room, ok := store.GetByConn("c1"); !ok || room != a {
		t.Fatalf("expected c1 to resolve to room A")
	}
	store.Unbind("c1")
	if _, ok := store.GetByConn("c1"); ok {
		t.Fatalf("expected c1 unbound")
	}
}

func TestRoomStoreDeleteCascadesConnections(t *testing.T) {
	store := NewRoomStore(WithCodeGenerator(scriptedCodes("AAAAAA")))
	room, _ := store.Create(sampleQuiz(), "host-1")
	_ = store.Bind(room.Code(), "host-conn")
	_ = store.Bind(room.Code(), "player-conn")

	if got := len(store.Connections(room.Code())); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}
	if !store.Delete(room.Code()) {
		t.Fatalf("expected delete to succeed")
	}
	if store.Delete(room.Code()) {
		t.Fatalf("second delete must report false")
	}
	if _, ok := store.GetByConn("player-conn"); ok {
		t.Fatalf("expected connection mapping removed with the room")
	}
	if store.Count() != 0 || len(store.All()) != 0 {
		t.Fatalf("expected empty registry")
	}
}
