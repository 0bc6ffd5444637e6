package repositories

import (
	"context"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"gorm.io/gorm"
)

type CoinRepository struct {
	db *gorm.DB
}

func NewCoinRepository(db *gorm.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

// GetTransactionHistory retrieves a player's ledger, newest first
func (r *CoinRepository) GetTransactionHistory(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	result := r.db.WithContext(ctx).Where("player_id = ?", playerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get transaction history")
	}

	return transactions, nil
}

// insertTransactions logs balance changes inside the caller's transaction.
func insertTransactions(tx *gorm.DB, playerID string, txs []models.CoinTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	for i := range txs {
		txs[i].PlayerID = playerID
	}
	if err := tx.Create(&txs).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create transaction")
	}
	return nil
}
