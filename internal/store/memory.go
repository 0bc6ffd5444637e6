package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
)

// MemoryRoomStore keeps rooms in process. It serves single-instance
// deployments and tests; every write is serialized by one mutex.
type MemoryRoomStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
	chat  map[string][]models.ChatMessage

	roomFeed *Broker[*models.Room]
	chatFeed *Broker[models.ChatMessage]
	now      func() time.Time
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms:    make(map[string]*models.Room),
		chat:     make(map[string][]models.ChatMessage),
		roomFeed: newRoomBroker(),
		chatFeed: NewQueueBroker[models.ChatMessage](64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for server timestamps.
func (s *MemoryRoomStore) WithClock(now func() time.Time) *MemoryRoomStore {
	s.now = now
	return s
}

func (s *MemoryRoomStore) Create(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.ID]; exists {
		return errors.New(errors.ErrCodeAlreadyExists, "room code already in use")
	}

	stampNew(room, s.now())
	s.rooms[room.ID] = room.Clone()
	s.roomFeed.Publish(room.ID, room.Clone())
	return nil
}

func (s *MemoryRoomStore) Get(ctx context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "room not found")
	}
	return room.Clone(), nil
}

func (s *MemoryRoomStore) Update(ctx context.Context, id string, u Update) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "update cancelled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "room not found")
	}

	next, changed, err := applyUpdate(current, u, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return next, nil
	}

	s.rooms[id] = next.Clone()
	s.roomFeed.Publish(id, next.Clone())
	return next, nil
}

func (s *MemoryRoomStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return errors.New(errors.ErrCodeNotFound, "room not found")
	}
	delete(s.rooms, id)
	delete(s.chat, id)
	return nil
}

func (s *MemoryRoomStore) Subscribe(ctx context.Context, id string, onChange func(*models.Room)) (func(), error) {
	unsubscribe := s.roomFeed.Subscribe(id, versionFilter(onChange))

	current, err := s.Get(ctx, id)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	s.roomFeed.Publish(id, current)
	return unsubscribe, nil
}

func (s *MemoryRoomStore) ListByGameState(ctx context.Context, states ...string) ([]*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rooms []*models.Room
	for _, room := range s.rooms {
		if containsString(states, room.GameState) {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (s *MemoryRoomStore) PurgeFinished(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, room := range s.rooms {
		if room.Status == models.RoomStatusFinished && room.UpdatedAt.Before(before) {
			delete(s.rooms, id)
			delete(s.chat, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryRoomStore) AppendChat(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[msg.RoomID]; !ok {
		return errors.New(errors.ErrCodeNotFound, "room not found")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.chat[msg.RoomID] = append(s.chat[msg.RoomID], *msg)
	s.chatFeed.Publish(msg.RoomID, *msg)
	return nil
}

func (s *MemoryRoomStore) ListChat(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := s.chat[roomID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return append([]models.ChatMessage(nil), messages...), nil
}

func (s *MemoryRoomStore) SubscribeChat(roomID string, onMessage func(models.ChatMessage)) func() {
	return s.chatFeed.Subscribe(roomID, onMessage)
}

func newRoomBroker() *Broker[*models.Room] {
	return NewCoalescingBroker(func(queued, incoming *models.Room) *models.Room {
		if queued.Version > incoming.Version {
			return queued
		}
		return incoming
	})
}

// versionFilter drops snapshots not newer than the last one delivered. It is
// only ever called from the subscription's own goroutine.
func versionFilter(onChange func(*models.Room)) func(*models.Room) {
	var last int64
	return func(room *models.Room) {
		if room.Version <= last {
			return
		}
		last = room.Version
		onChange(room)
	}
}

func stampNew(room *models.Room, now time.Time) {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	room.Version = 1
}
