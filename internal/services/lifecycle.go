package services

import (
	"context"

	"github.com/mroshb/word_game/internal/catalog"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

// StartGame moves a lobby whose members are all ready into the first spin.
func (s *RoomService) StartGame(ctx context.Context, roomID, callerID string) error {
	_, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateIdle},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			if room.Status != models.RoomStatusWaiting {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "room is not in the lobby")
			}
			if !room.CanStart() {
				return nil, errors.New(errors.ErrCodeNotAllReady, "every player must be ready")
			}
			patch := newRoundPatch()
			patch["status"] = models.RoomStatusPlaying
			return patch, nil
		},
	})
	if err != nil {
		return err
	}
	logger.Info("Game started", "room", roomID)
	return nil
}

// CommitLetter fixes the round letter and starts the countdown. Only the first
// commit of a spin takes effect; later ones are no-ops.
func (s *RoomService) CommitLetter(ctx context.Context, roomID, callerID, letter string) error {
	_, err := s.commitLetter(ctx, roomID, callerID, func(lang catalog.Language) string {
		return lang.NormalizeLetter(letter)
	})
	return err
}

// SpinLetter draws a letter on the server and commits it.
func (s *RoomService) SpinLetter(ctx context.Context, roomID, callerID string) (*models.Room, error) {
	return s.commitLetter(ctx, roomID, callerID, catalog.Language.RandomLetter)
}

func (s *RoomService) commitLetter(ctx context.Context, roomID, callerID string, choose func(catalog.Language) string) (*models.Room, error) {
	room, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateSpinning},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			lang, ok := catalog.Lookup(room.Settings.Language)
			if !ok {
				return nil, errors.New(errors.ErrCodeInternalError, "room language is not in the catalog")
			}
			letter := choose(lang)
			if letter == "" {
				return nil, errors.New(errors.ErrCodeValidation, "not a letter of "+lang.Name)
			}
			return store.Patch{
				"currentLetter":  letter,
				"gameState":      models.GameStatePlaying,
				"roundStartedAt": store.ServerTimestamp(),
			}, nil
		},
	})
	if err != nil {
		if errors.Is(err, errors.ErrCodePreconditionFailed) {
			return s.store.Get(ctx, roomID)
		}
		return nil, err
	}

	s.scheduleDeadline(room)
	logger.Info("Round started", "room", roomID, "round", room.Round, "letter", room.CurrentLetter)
	return room, nil
}

// SubmitAnswers merges a player's words into their own sheet, category by
// category. Accepted only while the round is playing.
func (s *RoomService) SubmitAnswers(ctx context.Context, roomID, playerID string, answers map[string]string) error {
	if len(answers) == 0 {
		return errors.New(errors.ErrCodeValidation, "no answers given")
	}

	_, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStatePlaying},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireMember(room, playerID); err != nil {
				return nil, err
			}
			patch := make(store.Patch, len(answers))
			for category, word := range answers {
				if !containsString(room.Settings.Categories, category) {
					return nil, errors.New(errors.ErrCodeValidation, "category not played in this room: "+category)
				}
				patch["playerResponses."+playerID+"."+category] = cleanAnswer(word)
			}
			return patch, nil
		},
	})
	return err
}

// ForceStop ends the round for everyone. Any member may stop; only the first
// stop counts and it runs the evaluation before returning.
func (s *RoomService) ForceStop(ctx context.Context, roomID, callerID string) error {
	room, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStatePlaying},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireMember(room, callerID); err != nil {
				return nil, err
			}
			return stopPatch(), nil
		},
	})
	if err != nil {
		return ignoreLostRace(err)
	}

	logger.Info("Round stopped", "room", roomID, "round", room.Round, "by", callerID)
	s.timers.cancel(roomID)
	s.evaluate(ctx, room)
	return nil
}

// ExpireRound stops round once its countdown has run out. It is a no-op for
// any other round or before the deadline.
func (s *RoomService) ExpireRound(ctx context.Context, roomID string, round int) error {
	room, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStatePlaying},
		Build: func(room *models.Room) (store.Patch, error) {
			if room.Round != round {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "round already moved on")
			}
			deadline, ok := room.Deadline()
			if ok && s.now().Before(deadline) {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "round is still running")
			}
			return stopPatch(), nil
		},
	})
	if err != nil {
		return ignoreLostRace(err)
	}

	logger.Info("Round expired", "room", roomID, "round", round)
	s.timers.cancel(roomID)
	s.evaluate(ctx, room)
	return nil
}

// AdvanceToNextRound starts another spin from the results screen. Players who
// left during the finished round are removed.
func (s *RoomService) AdvanceToNextRound(ctx context.Context, roomID, callerID string) error {
	_, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateResults},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			patch := newRoundPatch()
			dropLeavers(room, patch)
			return patch, nil
		},
	})
	return ignoreLostRace(err)
}

// ReturnToLobby goes from results back to waiting. Readiness resets, game
// scores are kept.
func (s *RoomService) ReturnToLobby(ctx context.Context, roomID, callerID string) error {
	_, err := s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateResults},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			patch := clearRoundPatch()
			patch["status"] = models.RoomStatusWaiting
			patch["gameState"] = models.GameStateIdle
			for _, id := range room.RosterIDs() {
				if room.IsMember(id) {
					patch["players."+id+".isReady"] = false
				}
			}
			dropLeavers(room, patch)
			return patch, nil
		},
	})
	return ignoreLostRace(err)
}

// CloseRoom finishes the room from any phase. An evaluation still in flight
// will find the room closed and drop its commit.
func (s *RoomService) CloseRoom(ctx context.Context, roomID, callerID string) error {
	_, err := s.store.Update(ctx, roomID, store.Update{
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			if room.Status == models.RoomStatusFinished {
				return nil, nil
			}
			patch := clearRoundPatch()
			patch["status"] = models.RoomStatusFinished
			patch["gameState"] = models.GameStateIdle
			return patch, nil
		},
	})
	if err != nil {
		return err
	}
	s.timers.cancel(roomID)
	logger.Info("Room closed", "room", roomID, "by", callerID)
	return nil
}

func clearRoundPatch() store.Patch {
	return store.Patch{
		"currentLetter":       "",
		"playerResponses":     map[string]interface{}{},
		"roundResults":        nil,
		"roundStartedAt":      nil,
		"evaluationStartedAt": nil,
	}
}

// stopPatch freezes the round. evaluationStartedAt is what the sweeper ages
// abandoned evaluations by.
func stopPatch() store.Patch {
	return store.Patch{
		"gameState":           models.GameStateEvaluating,
		"evaluationStartedAt": store.ServerTimestamp(),
	}
}

func dropLeavers(room *models.Room, patch store.Patch) {
	for _, id := range room.LeftIDs() {
		patch["players."+id] = store.Delete()
	}
}

// newRoundPatch enters spinning with a clean sheet; gameScores carry over.
func newRoundPatch() store.Patch {
	patch := clearRoundPatch()
	patch["gameState"] = models.GameStateSpinning
	patch["round"] = store.Increment(1)
	return patch
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
