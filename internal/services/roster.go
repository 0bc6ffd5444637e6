package services

import (
	"context"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

// JoinRoom adds a player, or refreshes name, avatar and presence when the
// player already has a seat. Joining mid-round is allowed, and a player who
// left during the current game takes their seat back.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, playerID, name, avatar string) (*models.Room, error) {
	if !security.ValidatePlayerID(playerID) {
		return nil, errors.New(errors.ErrCodeValidation, "invalid player id")
	}
	name = cleanName(name)
	avatar = cleanAvatar(avatar)
	prefix := "players." + playerID

	return s.store.Update(ctx, roomID, store.Update{
		Build: func(room *models.Room) (store.Patch, error) {
			if room.Status == models.RoomStatusFinished {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "room is closed")
			}
			if _, seated := room.Players[playerID]; seated {
				return store.Patch{
					prefix + ".name":   name,
					prefix + ".avatar": avatar,
					prefix + ".status": models.PlayerStatusOnline,
					prefix + ".left":   false,
				}, nil
			}
			if len(room.Players) >= room.Settings.MaxPlayers {
				return nil, errors.New(errors.ErrCodeRoomFull, "room is full")
			}
			return store.Patch{
				prefix: models.Player{
					ID:       playerID,
					Name:     name,
					Avatar:   avatar,
					Status:   models.PlayerStatusOnline,
					JoinedAt: s.now(),
				},
			}, nil
		},
	})
}

// LeaveRoom takes a player out of the room. In the lobby the seat is removed
// at once. During a game the player is only marked as left, so answers already
// submitted are graded with everyone else's; the seat goes when the next round
// or the lobby begins. A leaving host hands over to the earliest-joined
// remaining member, and the last member leaving finishes the room.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, playerID string) (*models.Room, error) {
	var promoted string
	room, err := s.store.Update(ctx, roomID, store.Update{
		Build: func(room *models.Room) (store.Patch, error) {
			promoted = ""
			if !room.IsMember(playerID) {
				return nil, nil
			}

			prefix := "players." + playerID
			if room.ActiveCount() == 1 {
				return store.Patch{
					"players":        map[string]interface{}{},
					"status":         models.RoomStatusFinished,
					"gameState":      models.GameStateIdle,
					"hostId":         "",
					"currentLetter":  "",
					"roundStartedAt": nil,
				}, nil
			}

			var patch store.Patch
			if room.Status == models.RoomStatusPlaying {
				patch = store.Patch{
					prefix + ".left":    true,
					prefix + ".status":  models.PlayerStatusOffline,
					prefix + ".isReady": false,
					prefix + ".isHost":  false,
				}
			} else {
				patch = store.Patch{prefix: store.Delete()}
			}
			if room.IsHost(playerID) {
				next, _ := room.NextHost(playerID)
				promoted = next
				patch["hostId"] = next
				patch["players."+next+".isHost"] = true
			}
			return patch, nil
		},
	})
	if err != nil {
		return nil, err
	}

	if room.Status == models.RoomStatusFinished {
		s.timers.cancel(roomID)
		logger.Info("Room finished, last player left", "room", roomID)
	}
	if promoted != "" {
		logger.Info("Host promoted", "room", roomID, "from", playerID, "to", promoted)
	}
	return room, nil
}

// SetReady toggles lobby readiness.
func (s *RoomService) SetReady(ctx context.Context, roomID, playerID string, ready bool) (*models.Room, error) {
	return s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateIdle},
		Build: func(room *models.Room) (store.Patch, error) {
			if room.Status != models.RoomStatusWaiting {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "readiness only changes in the lobby")
			}
			if err := requireMember(room, playerID); err != nil {
				return nil, err
			}
			return store.Patch{"players." + playerID + ".isReady": ready}, nil
		},
	})
}

// SetPresence records connectivity without touching membership. Unknown and
// departed players are ignored so late disconnects after a leave are harmless.
func (s *RoomService) SetPresence(ctx context.Context, roomID, playerID, status string) error {
	switch status {
	case models.PlayerStatusOnline, models.PlayerStatusAway, models.PlayerStatusOffline:
	default:
		return errors.New(errors.ErrCodeValidation, "unknown presence status: "+status)
	}

	_, err := s.store.Update(ctx, roomID, store.Update{
		Build: func(room *models.Room) (store.Patch, error) {
			if !room.IsMember(playerID) || room.Players[playerID].Status == status {
				return nil, nil
			}
			return store.Patch{"players." + playerID + ".status": status}, nil
		},
	})
	return err
}
