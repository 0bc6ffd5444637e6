package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessage struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RoomID    string    `gorm:"type:varchar(16);not null;index:idx_chat_room_created" json:"roomId"`
	PlayerID  string    `gorm:"type:varchar(64);not null" json:"playerId"`
	Name      string    `gorm:"type:varchar(64)" json:"name"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_chat_room_created" json:"createdAt"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (ChatMessage) TableName() string {
	return "room_chat_messages"
}
