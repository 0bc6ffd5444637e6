// Package store persists Room documents and their chat, applies dotted-path
// partial updates under a compare-and-set precondition, and fans committed
// snapshots out to subscribers.
package store

import (
	"context"
	"time"

	"github.com/mroshb/word_game/internal/models"
)

// Patch maps dotted paths ("players.p1.isReady") to new values or to one of the
// Delete, Increment and ServerTimestamp sentinels.
type Patch map[string]interface{}

// Update describes one atomic write. ExpectGameState is checked against the
// persisted room before anything else; Build then sees that same persisted room
// and may veto the write or contribute more paths. An empty final patch commits
// nothing and returns the current room.
type Update struct {
	ExpectGameState []string
	Patch           Patch
	Build           func(current *models.Room) (Patch, error)
}

type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	Get(ctx context.Context, id string) (*models.Room, error)
	Update(ctx context.Context, id string, u Update) (*models.Room, error)
	Delete(ctx context.Context, id string) error
	// Subscribe delivers the current snapshot followed by every committed one, in
	// version order, on a goroutine owned by the subscription.
	Subscribe(ctx context.Context, id string, onChange func(*models.Room)) (func(), error)
	ListByGameState(ctx context.Context, states ...string) ([]*models.Room, error)
	PurgeFinished(ctx context.Context, before time.Time) (int64, error)

	AppendChat(ctx context.Context, msg *models.ChatMessage) error
	ListChat(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error)
	SubscribeChat(roomID string, onMessage func(models.ChatMessage)) func()
}

type deleteOp struct{}

type incrementOp struct {
	by int
}

type serverTimestampOp struct{}

// Delete removes the key at the path.
func Delete() interface{} { return deleteOp{} }

// Increment adds by to the number at the path, treating a missing value as 0.
func Increment(by int) interface{} { return incrementOp{by: by} }

// ServerTimestamp is replaced by the store's clock at commit time.
func ServerTimestamp() interface{} { return serverTimestampOp{} }
