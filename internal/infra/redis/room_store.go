package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const maxClaimAttempts = 8

// RoomStore keeps rooms in process and claims each room code in Redis so that
// instances sharing a Redis never hand out the same code.
//   - Room state stays local; only the code claim lives in Redis.
//   - Redis failures degrade to local-only uniqueness and are logged.
type RoomStore struct {
	*memory.RoomStore
	client *redis.Client
	ttl    time.Duration
}

func NewRoomStore(client *redis.Client, ttl time.Duration, opts ...memory.Option) *RoomStore {
	return &RoomStore{
		RoomStore: memory.NewRoomStore(opts...),
		client:    client,
		ttl:       ttl,
	}
}

func (s *RoomStore) Create(quiz domain.Quiz, hostUserID string) (*app.Room, error) {
	ctx := context.Background()
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		room, err := s.RoomStore.Create(quiz, hostUserID)
		if err != nil {
			return nil, err
		}
		claimed, err := s.client.SetNX(ctx, roomKey(room.Code()), quiz.ID, s.ttl).Result()
		if err != nil {
			log.Printf("redis claim for room %s failed, continuing locally: %v", room.Code(), err)
			return room, nil
		}
		if claimed {
			return room, nil
		}
		// Another instance owns this code.
		s.RoomStore.Delete(room.Code())
	}
	return nil, fmt.Errorf("%w: no unclaimed room code after %d attempts", domain.ErrRoomCapacity, maxClaimAttempts)
}

// Touch extends the claim on a room that is still in use.
func (s *RoomStore) Touch(ctx context.Context, code string) error {
	return s.client.Expire(ctx, roomKey(app.NormalizeCode(code)), s.ttl).Err()
}

func (s *RoomStore) Delete(code string) bool {
	code = app.NormalizeCode(code)
	if !s.RoomStore.Delete(code) {
		return false
	}
	if err := s.client.Del(context.Background(), roomKey(code)).Err(); err != nil {
		log.Printf("redis release for room %s failed: %v", code, err)
	}
	return true
}

func roomKey(code string) string {
	return "quiz:room:" + code
}
