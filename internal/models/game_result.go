package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	GameModeMultiplayer = "multiplayer"
	GameModeSolo        = "solo"
)

// GameResult is written once per player per completed round.
type GameResult struct {
	ID            string                                       `gorm:"primaryKey;type:varchar(160)" json:"id"`
	PlayerID      string                                       `gorm:"type:varchar(64);not null;index:idx_result_player_created" json:"playerId"`
	RoomID        string                                       `gorm:"type:varchar(16);index" json:"roomId,omitempty"`
	Round         int                                          `gorm:"not null" json:"round"`
	Letter        string                                       `gorm:"type:varchar(8);not null" json:"letter"`
	Language      string                                       `gorm:"type:varchar(8);not null" json:"language"`
	Mode          string                                       `gorm:"type:varchar(20);not null" json:"mode"`
	Score         int                                          `gorm:"not null" json:"score"`
	Answers       datatypes.JSONType[map[string]CategoryResult] `gorm:"type:jsonb" json:"answers"`
	ValidCount    int                                          `gorm:"not null" json:"validCount"`
	CategoryCount int                                          `gorm:"not null" json:"categoryCount"`
	Won           bool                                         `gorm:"not null;default:false" json:"won"`
	CreatedAt     time.Time                                    `gorm:"autoCreateTime;index:idx_result_player_created" json:"createdAt"`
}

func (GameResult) TableName() string {
	return "game_results"
}

// GameResultID is the idempotency key of a room round outcome for one player.
func GameResultID(roomID string, round int, playerID string) string {
	return fmt.Sprintf("%s:%d:%s", roomID, round, playerID)
}

// IsPerfect reports whether every category of the round was answered validly.
func (g *GameResult) IsPerfect() bool {
	return g.CategoryCount > 0 && g.ValidCount == g.CategoryCount
}
