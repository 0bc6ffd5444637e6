package models

import (
	"time"
)

type CoinTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PlayerID        string    `gorm:"type:varchar(64);not null;index" json:"playerId"`
	Amount          int64     `gorm:"not null" json:"amount"`
	TransactionType string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Reference       string    `gorm:"type:varchar(128)" json:"reference"`
	Description     string    `gorm:"type:text" json:"description"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// Transaction type constants
const (
	TxTypeStarter         = "starter"
	TxTypeMissionReward   = "mission_reward"
	TxTypeGameReward      = "game_reward"
	TxTypeAdminAdjustment = "admin_adjustment"
)

func (CoinTransaction) TableName() string {
	return "coin_transactions"
}
