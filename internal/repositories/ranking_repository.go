package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed builds the profile inserted for a player seen for the first time, plus
// the ledger entries that come with it.
type Seed func() (*models.PlayerRanking, []models.CoinTransaction)

// MutateFunc changes a locked profile in place and returns the coin
// transactions to log with it.
type MutateFunc func(p *models.PlayerRanking) ([]models.CoinTransaction, error)

type RankingRepository struct {
	db *gorm.DB
}

func NewRankingRepository(db *gorm.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// Get retrieves a profile without creating it.
func (r *RankingRepository) Get(ctx context.Context, playerID string) (*models.PlayerRanking, error) {
	var profile models.PlayerRanking
	result := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&profile)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "player ranking not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get player ranking")
	}
	return &profile, nil
}

// Mutate locks the profile (creating it from seed when missing), runs fn and
// saves the result together with fn's coin transactions.
func (r *RankingRepository) Mutate(ctx context.Context, playerID string, seed Seed, fn MutateFunc) (*models.PlayerRanking, error) {
	var out *models.PlayerRanking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := lockOrCreate(tx, playerID, seed)
		if err != nil {
			return err
		}
		if err := saveMutation(tx, profile, fn); err != nil {
			return err
		}
		out = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyGameResult inserts result and, only if it was not recorded before, runs
// fn against the player's locked profile in the same transaction. applied is
// false for a replayed result.
func (r *RankingRepository) ApplyGameResult(ctx context.Context, result *models.GameResult, seed Seed, fn MutateFunc) (profile *models.PlayerRanking, applied bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(result)
		if inserted.Error != nil {
			return errors.Wrap(inserted.Error, errors.ErrCodeInternalError, "failed to record game result")
		}

		locked, err := lockOrCreate(tx, result.PlayerID, seed)
		if err != nil {
			return err
		}
		profile = locked

		if inserted.RowsAffected == 0 {
			return nil
		}
		applied = true
		return saveMutation(tx, locked, fn)
	})
	if err != nil {
		return nil, false, err
	}
	return profile, applied, nil
}

// ListGameResults returns a player's newest results first.
func (r *RankingRepository) ListGameResults(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get game history")
	}
	return results, nil
}

// TopPlayers returns the leaderboard ordered by total score.
func (r *RankingRepository) TopPlayers(ctx context.Context, limit int) ([]models.PlayerRanking, error) {
	var profiles []models.PlayerRanking
	err := r.db.WithContext(ctx).
		Order("total_score DESC").
		Order("player_id ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get leaderboard")
	}
	return profiles, nil
}

func lockOrCreate(tx *gorm.DB, playerID string, seed Seed) (*models.PlayerRanking, error) {
	var profile models.PlayerRanking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("player_id = ?", playerID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock player ranking")
	}

	fresh, starter := seed()
	fresh.PlayerID = playerID
	created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
	if created.Error != nil {
		return nil, errors.Wrap(created.Error, errors.ErrCodeInternalError, "failed to create player ranking")
	}
	if created.RowsAffected == 1 {
		if err := insertTransactions(tx, playerID, starter); err != nil {
			return nil, err
		}
	}

	// another instance may have won the insert; lock whatever is there now
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("player_id = ?", playerID).First(&profile).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock player ranking")
	}
	return &profile, nil
}

func saveMutation(tx *gorm.DB, profile *models.PlayerRanking, fn MutateFunc) error {
	txs, err := fn(profile)
	if err != nil {
		return err
	}
	if err := tx.Save(profile).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save player ranking")
	}
	return insertTransactions(tx, profile.PlayerID, txs)
}
