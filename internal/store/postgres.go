package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
	"github.com/mroshb/word_game/pkg/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChangeChannel is the postgres NOTIFY channel carrying room and chat changes.
const ChangeChannel = "room_changes"

const (
	changeKindRoom = "room"
	changeKindChat = "chat"
)

type changeNotice struct {
	Kind   string `json:"kind"`
	RoomID string `json:"room"`
	Origin string `json:"origin"`
	ID     string `json:"id,omitempty"`
}

// PostgresRoomStore keeps one row per room with the document in a jsonb column.
// Writes lock the row, apply the update in Go and bump the version; every
// commit also issues a NOTIFY so other instances can refresh their subscribers.
type PostgresRoomStore struct {
	db         *gorm.DB
	roomFeed   *Broker[*models.Room]
	chatFeed   *Broker[models.ChatMessage]
	now        func() time.Time
	instanceID string
}

func NewPostgresRoomStore(db *gorm.DB) *PostgresRoomStore {
	return &PostgresRoomStore{
		db:         db,
		roomFeed:   newRoomBroker(),
		chatFeed:   NewQueueBroker[models.ChatMessage](64),
		now:        func() time.Time { return time.Now().UTC() },
		instanceID: utils.GenerateRandomID(12),
	}
}

func (s *PostgresRoomStore) Create(ctx context.Context, room *models.Room) error {
	stampNew(room, s.now())
	rec := toRecord(room)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return s.notify(tx, changeKindRoom, room.ID, "")
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.New(errors.ErrCodeAlreadyExists, "room code already in use")
		}
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create room")
	}

	s.roomFeed.Publish(room.ID, room.Clone())
	return nil
}

func (s *PostgresRoomStore) Get(ctx context.Context, id string) (*models.Room, error) {
	var rec models.RoomRecord
	result := s.db.WithContext(ctx).First(&rec, "id = ?", id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "room not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get room")
	}

	room := rec.Document.Data()
	return &room, nil
}

func (s *PostgresRoomStore) Update(ctx context.Context, id string, u Update) (*models.Room, error) {
	var (
		out       *models.Room
		committed bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RoomRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrCodeNotFound, "room not found")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock room")
		}

		current := rec.Document.Data()
		next, changed, err := applyUpdate(&current, u, s.now())
		if err != nil {
			return err
		}
		out = next
		if !changed {
			return nil
		}

		result := tx.Model(&models.RoomRecord{}).
			Where("id = ? AND version = ?", id, rec.Version).
			Updates(map[string]interface{}{
				"version":    next.Version,
				"status":     next.Status,
				"game_state": next.GameState,
				"document":   datatypes.NewJSONType(*next),
				"updated_at": next.UpdatedAt,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update room")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodePreconditionFailed, "room changed concurrently")
		}

		committed = true
		return s.notify(tx, changeKindRoom, id, "")
	})
	if err != nil {
		if errors.CodeOf(err) == "" {
			err = errors.Wrap(err, errors.ErrCodeInternalError, "room update failed")
		}
		return nil, err
	}

	if committed {
		s.roomFeed.Publish(id, out.Clone())
	}
	return out, nil
}

func (s *PostgresRoomStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.RoomRecord{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotFound, "room not found")
		}
		return nil
	})
	if err != nil && errors.CodeOf(err) == "" {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete room")
	}
	return err
}

func (s *PostgresRoomStore) Subscribe(ctx context.Context, id string, onChange func(*models.Room)) (func(), error) {
	unsubscribe := s.roomFeed.Subscribe(id, versionFilter(onChange))

	current, err := s.Get(ctx, id)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	s.roomFeed.Publish(id, current)
	return unsubscribe, nil
}

func (s *PostgresRoomStore) ListByGameState(ctx context.Context, states ...string) ([]*models.Room, error) {
	var recs []models.RoomRecord
	result := s.db.WithContext(ctx).
		Where("game_state IN ?", states).
		Order("id").
		Find(&recs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to list rooms")
	}

	rooms := make([]*models.Room, 0, len(recs))
	for _, rec := range recs {
		room := rec.Document.Data()
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

func (s *PostgresRoomStore) PurgeFinished(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.RoomRecord{}).
			Select("id").
			Where("status = ? AND updated_at < ?", models.RoomStatusFinished, before)

		if err := tx.Where("room_id IN (?)", stale).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		result := tx.Where("status = ? AND updated_at < ?", models.RoomStatusFinished, before).
			Delete(&models.RoomRecord{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to purge finished rooms")
	}
	return purged, nil
}

func (s *PostgresRoomStore) AppendChat(ctx context.Context, msg *models.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RoomRecord{}).Where("id = ?", msg.RoomID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.New(errors.ErrCodeNotFound, "room not found")
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return s.notify(tx, changeKindChat, msg.RoomID, msg.ID)
	})
	if err != nil {
		if errors.CodeOf(err) == "" {
			err = errors.Wrap(err, errors.ErrCodeInternalError, "failed to append chat message")
		}
		return err
	}

	s.chatFeed.Publish(msg.RoomID, *msg)
	return nil
}

func (s *PostgresRoomStore) ListChat(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	query := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list chat messages")
	}

	// oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresRoomStore) SubscribeChat(roomID string, onMessage func(models.ChatMessage)) func() {
	return s.chatFeed.Subscribe(roomID, onMessage)
}

func (s *PostgresRoomStore) notify(tx *gorm.DB, kind, roomID, id string) error {
	payload, err := json.Marshal(changeNotice{Kind: kind, RoomID: roomID, Origin: s.instanceID, ID: id})
	if err != nil {
		return err
	}
	return tx.Exec("SELECT pg_notify(?, ?)", ChangeChannel, string(payload)).Error
}

// handleNotice republishes a change committed by another instance.
func (s *PostgresRoomStore) handleNotice(ctx context.Context, payload string) {
	var notice changeNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		logger.Warn("Ignoring malformed room change notice", "payload", payload, "error", err)
		return
	}
	if notice.Origin == s.instanceID {
		return
	}

	switch notice.Kind {
	case changeKindRoom:
		if s.roomFeed.Subscribers(notice.RoomID) == 0 {
			return
		}
		room, err := s.Get(ctx, notice.RoomID)
		if err != nil {
			if !errors.Is(err, errors.ErrCodeNotFound) {
				logger.Error("Failed to refresh room after notice", "room_id", notice.RoomID, "error", err)
			}
			return
		}
		s.roomFeed.Publish(notice.RoomID, room)
	case changeKindChat:
		if s.chatFeed.Subscribers(notice.RoomID) == 0 {
			return
		}
		var msg models.ChatMessage
		if err := s.db.WithContext(ctx).First(&msg, "id = ?", notice.ID).Error; err != nil {
			logger.Error("Failed to load chat message after notice", "room_id", notice.RoomID, "error", err)
			return
		}
		s.chatFeed.Publish(notice.RoomID, msg)
	}
}

func toRecord(room *models.Room) models.RoomRecord {
	return models.RoomRecord{
		ID:        room.ID,
		Version:   room.Version,
		Status:    room.Status,
		GameState: room.GameState,
		Document:  datatypes.NewJSONType(*room),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}
