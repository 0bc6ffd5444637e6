package services

import (
	"context"
	"sort"
	"sync"

	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/scoring"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// evaluate grades the players of snapshot, which must be the room as it was
// when it entered evaluating, and commits the round in one write. It always
// leaves the room in results unless someone else committed or closed it first.
func (s *RoomService) evaluate(ctx context.Context, snapshot *models.Room) {
	ctx = context.WithoutCancel(ctx)
	log := logger.With("room", snapshot.ID, "round", snapshot.Round)

	categories := snapshot.Settings.Categories
	members := gradedPlayers(snapshot)
	results := make(map[string]map[string]models.CategoryResult, len(members))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.cfg.GraderConcurrency)
	for _, playerID := range members {
		playerID := playerID
		answers := snapshot.PlayerResponses[playerID]
		g.Go(func() error {
			req := grader.NewRequest(snapshot.CurrentLetter, snapshot.Settings.Language, categories, answers)
			res, err := grader.Guard(ctx, s.grader, s.cfg.GetGraderTimeout(), req)

			var entry map[string]models.CategoryResult
			if err != nil {
				log.Warnw("Grading failed, scoring player as zero", "player", playerID, "error", err)
				entry = scoring.Degraded(categories, answers)
			} else {
				entry = scoring.PlayerResults(categories, answers, res.Grades())
			}

			mu.Lock()
			results[playerID] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	outcome := scoring.Compute(results)

	committed, err := s.store.Update(ctx, snapshot.ID, store.Update{
		ExpectGameState: []string{models.GameStateEvaluating},
		Build: func(room *models.Room) (store.Patch, error) {
			if room.Round != snapshot.Round {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "round already committed")
			}
			return store.Patch{
				"roundResults":        results,
				"gameScores":          scoring.Accumulate(room.GameScores, outcome.Scores),
				"gameState":           models.GameStateResults,
				"evaluationStartedAt": nil,
			}, nil
		},
	})
	if err != nil {
		if !errors.Is(err, errors.ErrCodePreconditionFailed) {
			log.Errorw("Failed to commit round results", "error", err)
			return
		}
		// another evaluator won; make sure its results reach the ledger
		current, getErr := s.store.Get(ctx, snapshot.ID)
		if getErr == nil && current.Round == snapshot.Round && current.RoundResults != nil {
			s.recordRound(ctx, current, snapshot)
		}
		return
	}

	log.Infow("Round evaluated", "players", len(results), "winner", outcome.WinnerID, "top", outcome.TopScore)
	s.recordRound(ctx, committed, snapshot)

	if outcome.HasWinner && !committed.Settings.IsPrivate {
		s.announcer.RoundWon(ctx, committed, displayName(snapshot, outcome.WinnerID), outcome.TopScore)
	}
}

// recordRound writes one GameResult per graded player. Results are keyed by
// room, round and player, so replays are harmless.
func (s *RoomService) recordRound(ctx context.Context, room, snapshot *models.Room) {
	outcome := scoring.Compute(room.RoundResults)

	for _, playerID := range sortedKeys(room.RoundResults) {
		answers := room.RoundResults[playerID]
		result := &models.GameResult{
			ID:            models.GameResultID(room.ID, room.Round, playerID),
			PlayerID:      playerID,
			RoomID:        room.ID,
			Round:         room.Round,
			Letter:        room.CurrentLetter,
			Language:      room.Settings.Language,
			Mode:          models.GameModeMultiplayer,
			Score:         outcome.Scores[playerID],
			Answers:       datatypes.NewJSONType(answers),
			ValidCount:    scoring.ValidCount(answers),
			CategoryCount: len(answers),
			Won:           outcome.HasWinner && outcome.WinnerID == playerID,
		}

		player := snapshot.Players[playerID]
		if _, err := s.recorder.RecordGameResult(ctx, result, displayName(snapshot, playerID), player.Avatar); err != nil {
			logger.Error("Failed to record game result", "room", room.ID, "player", playerID, "error", err)
		}
	}
}

// gradedPlayers is every seated player plus leavers who submitted something
// before they went.
func gradedPlayers(room *models.Room) []string {
	ids := make([]string, 0, len(room.Players))
	for _, id := range room.RosterIDs() {
		if room.Players[id].Left && len(room.PlayerResponses[id]) == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func displayName(room *models.Room, playerID string) string {
	if p, ok := room.Players[playerID]; ok && p.Name != "" {
		return p.Name
	}
	return playerID
}

func sortedKeys(m map[string]map[string]models.CategoryResult) []string {
	keys := make([]string, 0, len(m))
	for id := range m {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}
