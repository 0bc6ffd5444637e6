package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/repositories"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
	"github.com/mroshb/word_game/pkg/utils"
)

// RankingStore persists profiles and game results. Both mutating calls run
// the callback against a row-locked profile inside one transaction.
type RankingStore interface {
	Get(ctx context.Context, playerID string) (*models.PlayerRanking, error)
	Mutate(ctx context.Context, playerID string, seed repositories.Seed, fn repositories.MutateFunc) (*models.PlayerRanking, error)
	ApplyGameResult(ctx context.Context, result *models.GameResult, seed repositories.Seed, fn repositories.MutateFunc) (*models.PlayerRanking, bool, error)
	ListGameResults(ctx context.Context, playerID string, limit int) ([]models.GameResult, error)
	TopPlayers(ctx context.Context, limit int) ([]models.PlayerRanking, error)
}

type CoinLedger interface {
	GetTransactionHistory(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error)
}

type RankingService struct {
	store        RankingStore
	coins        CoinLedger
	starterCoins int64
	winReward    int64
	now          func() time.Time
	pick         func(n int) int
}

func NewRankingService(rankings RankingStore, coins CoinLedger, starterCoins, winReward int64) *RankingService {
	return &RankingService{
		store:        rankings,
		coins:        coins,
		starterCoins: starterCoins,
		winReward:    winReward,
		now:          func() time.Time { return time.Now().UTC() },
		pick:         utils.RandomIndex,
	}
}

// WithClock replaces the clock that decides the mission day.
func (s *RankingService) WithClock(now func() time.Time) *RankingService {
	s.now = now
	return s
}

func (s *RankingService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// GetOrCreate returns the caller's profile, creating it on first sight and
// re-rolling missions when the UTC day changed.
func (s *RankingService) GetOrCreate(ctx context.Context, identity security.Identity) (*models.PlayerRanking, error) {
	name, avatar := cleanName(identity.DisplayName), cleanAvatar(identity.AvatarURL)
	today := s.today()

	return s.store.Mutate(ctx, identity.PlayerID, s.seed(name, avatar, today), func(p *models.PlayerRanking) ([]models.CoinTransaction, error) {
		p.DisplayName = name
		p.Avatar = avatar
		s.refreshMissions(p, today)
		return nil, nil
	})
}

// RecordGameResult stores result and folds it into the player's stats,
// achievements, missions and coins. A result id seen before changes nothing.
func (s *RankingService) RecordGameResult(ctx context.Context, result *models.GameResult, displayName, avatar string) (*models.PlayerRanking, error) {
	today := s.today()
	seed := s.seed(cleanName(displayName), cleanAvatar(avatar), today)

	profile, applied, err := s.store.ApplyGameResult(ctx, result, seed, func(p *models.PlayerRanking) ([]models.CoinTransaction, error) {
		s.refreshMissions(p, today)

		p.TotalScore += int64(result.Score)
		p.GamesPlayed++
		if result.Won {
			p.GamesWon++
		}
		if result.Score > p.BestScore {
			p.BestScore = result.Score
		}
		p.AverageScore = models.AverageScore(p.TotalScore, p.GamesPlayed)
		p.Level = models.LevelForScore(p.TotalScore)

		if unlocked := unlockAchievements(p, result); len(unlocked) > 0 {
			logger.Info("Achievements unlocked", "player", p.PlayerID, "achievements", unlocked)
		}
		for i := range p.DailyMissions {
			advanceMission(&p.DailyMissions[i], result)
		}

		var txs []models.CoinTransaction
		if result.Won && s.winReward > 0 {
			p.Coins += s.winReward
			txs = append(txs, models.CoinTransaction{
				Amount:          s.winReward,
				TransactionType: models.TxTypeGameReward,
				Reference:       result.ID,
				Description:     fmt.Sprintf("Won round %d in room %s", result.Round, result.RoomID),
			})
		}
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Debug("Game result already recorded", "result", result.ID)
	}
	return profile, nil
}

// ClaimMission credits a completed mission's reward once.
func (s *RankingService) ClaimMission(ctx context.Context, identity security.Identity, missionID string) (*models.PlayerRanking, error) {
	today := s.today()
	seed := s.seed(cleanName(identity.DisplayName), cleanAvatar(identity.AvatarURL), today)

	return s.store.Mutate(ctx, identity.PlayerID, seed, func(p *models.PlayerRanking) ([]models.CoinTransaction, error) {
		s.refreshMissions(p, today)

		idx, ok := p.Mission(missionID)
		if !ok {
			return nil, errors.New(errors.ErrCodeMissionState, "mission not found")
		}
		mission := &p.DailyMissions[idx]
		if mission.Claimed {
			return nil, errors.New(errors.ErrCodeMissionState, "mission already claimed")
		}
		if !mission.Completed {
			return nil, errors.New(errors.ErrCodeMissionState, "mission not completed yet")
		}

		mission.Claimed = true
		p.Coins += mission.Reward
		return []models.CoinTransaction{{
			Amount:          mission.Reward,
			TransactionType: models.TxTypeMissionReward,
			Reference:       mission.ID,
			Description:     mission.Title,
		}}, nil
	})
}

func (s *RankingService) History(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	return s.store.ListGameResults(ctx, playerID, clampLimit(limit))
}

func (s *RankingService) Transactions(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error) {
	return s.coins.GetTransactionHistory(ctx, playerID, clampLimit(limit))
}

func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]models.PlayerRanking, error) {
	return s.store.TopPlayers(ctx, clampLimit(limit))
}

func (s *RankingService) seed(name, avatar, today string) repositories.Seed {
	return func() (*models.PlayerRanking, []models.CoinTransaction) {
		profile := &models.PlayerRanking{
			DisplayName:       name,
			Avatar:            avatar,
			Level:             models.LevelForScore(0),
			Achievements:      []string{},
			Coins:             s.starterCoins,
			DailyMissions:     rollMissions(today, s.pick),
			MissionsLastReset: today,
		}
		var txs []models.CoinTransaction
		if s.starterCoins > 0 {
			txs = append(txs, models.CoinTransaction{
				Amount:          s.starterCoins,
				TransactionType: models.TxTypeStarter,
				Description:     "Welcome bonus",
			})
		}
		return profile, txs
	}
}

func (s *RankingService) refreshMissions(p *models.PlayerRanking, today string) {
	if p.MissionsLastReset == today && len(p.DailyMissions) > 0 {
		return
	}
	p.DailyMissions = rollMissions(today, s.pick)
	p.MissionsLastReset = today
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
