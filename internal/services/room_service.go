package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/word_game/internal/catalog"
	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

const (
	maxNameRunes   = 32
	maxAnswerRunes = 64
	maxChatRunes   = 500
	maxAvatarRunes = 500
	createAttempts = 5
)

// ResultRecorder receives one GameResult per member after every evaluated round.
type ResultRecorder interface {
	RecordGameResult(ctx context.Context, result *models.GameResult, displayName, avatar string) (*models.PlayerRanking, error)
}

// Announcer publishes room events outside the game. Implementations must not
// block for long and swallow their own failures.
type Announcer interface {
	RoomOpened(ctx context.Context, room *models.Room)
	RoundWon(ctx context.Context, room *models.Room, winnerName string, score int)
}

// SettingsInput carries the settings a host asked for. Nil fields keep the
// current value.
type SettingsInput struct {
	MaxPlayers           *int     `json:"maxPlayers"`
	RoundDurationSeconds *int     `json:"roundDurationSeconds"`
	Language             *string  `json:"language"`
	IsPrivate            *bool    `json:"isPrivate"`
	Categories           []string `json:"categories"`
}

// RoomService drives rooms through their lifecycle. Every transition is a
// compare-and-set store update; the service keeps no room state of its own
// apart from the deadline timers.
type RoomService struct {
	cfg       *config.Config
	store     store.RoomStore
	grader    grader.Grader
	recorder  ResultRecorder
	announcer Announcer
	timers    *deadlineTimers
	now       func() time.Time
}

func NewRoomService(cfg *config.Config, rooms store.RoomStore, g grader.Grader, recorder ResultRecorder, announcer Announcer) *RoomService {
	return &RoomService{
		cfg:       cfg,
		store:     rooms,
		grader:    g,
		recorder:  recorder,
		announcer: announcer,
		timers:    newDeadlineTimers(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for deadline checks.
func (s *RoomService) WithClock(now func() time.Time) *RoomService {
	s.now = now
	return s
}

// Close stops pending deadline timers.
func (s *RoomService) Close() {
	s.timers.stopAll()
}

func (s *RoomService) CreateRoom(ctx context.Context, creatorID, name, avatar string, in SettingsInput) (*models.Room, error) {
	if !security.ValidatePlayerID(creatorID) {
		return nil, errors.New(errors.ErrCodeValidation, "invalid player id")
	}

	defaults := models.RoomSettings{
		MaxPlayers:           s.cfg.DefaultMaxPlayers,
		RoundDurationSeconds: s.cfg.DefaultRoundSeconds,
		Language:             s.cfg.DefaultLanguage,
	}
	settings, err := s.resolveSettings(defaults, in, 1)
	if err != nil {
		return nil, err
	}

	now := s.now()
	room := &models.Room{
		HostID:    creatorID,
		Status:    models.RoomStatusWaiting,
		GameState: models.GameStateIdle,
		Players: map[string]models.Player{
			creatorID: {
				ID:       creatorID,
				Name:     cleanName(name),
				Avatar:   cleanAvatar(avatar),
				IsHost:   true,
				Status:   models.PlayerStatusOnline,
				JoinedAt: now,
			},
		},
		Settings:        settings,
		PlayerResponses: map[string]map[string]string{},
		GameScores:      map[string]int{},
	}

	for attempt := 1; ; attempt++ {
		room.ID = security.GenerateSecureCode(s.cfg.RoomCodeLength)
		err = s.store.Create(ctx, room)
		if err == nil {
			break
		}
		if !errors.Is(err, errors.ErrCodeAlreadyExists) || attempt >= createAttempts {
			return nil, err
		}
	}

	logger.Info("Room created", "room", room.ID, "host", creatorID, "language", settings.Language)
	if !settings.IsPrivate {
		s.announcer.RoomOpened(context.WithoutCancel(ctx), room.Clone())
	}
	return room, nil
}

// UpdateSettings changes lobby settings. Host only, and only while waiting.
func (s *RoomService) UpdateSettings(ctx context.Context, roomID, callerID string, in SettingsInput) (*models.Room, error) {
	return s.store.Update(ctx, roomID, store.Update{
		ExpectGameState: []string{models.GameStateIdle},
		Build: func(room *models.Room) (store.Patch, error) {
			if err := requireHost(room, callerID); err != nil {
				return nil, err
			}
			if room.Status != models.RoomStatusWaiting {
				return nil, errors.New(errors.ErrCodePreconditionFailed, "settings are locked once the game starts")
			}
			settings, err := s.resolveSettings(room.Settings, in, len(room.Players))
			if err != nil {
				return nil, err
			}
			return store.Patch{"settings": settings}, nil
		},
	})
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.Get(ctx, roomID)
}

func (s *RoomService) SubscribeRoom(ctx context.Context, roomID string, onChange func(*models.Room)) (func(), error) {
	return s.store.Subscribe(ctx, roomID, onChange)
}

func (s *RoomService) SendChat(ctx context.Context, roomID, playerID, text string) (*models.ChatMessage, error) {
	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(playerID) {
		return nil, errors.New(errors.ErrCodeForbidden, "only room members can chat")
	}
	player := room.Players[playerID]

	clean := security.SanitizeText(text, maxChatRunes)
	if clean == "" {
		return nil, errors.New(errors.ErrCodeValidation, "message is empty")
	}

	msg := &models.ChatMessage{RoomID: roomID, PlayerID: playerID, Name: player.Name, Text: clean}
	if err := s.store.AppendChat(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *RoomService) ListChat(ctx context.Context, roomID, playerID string, limit int) ([]models.ChatMessage, error) {
	room, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(playerID) {
		return nil, errors.New(errors.ErrCodeForbidden, "only room members can read the chat")
	}
	return s.store.ListChat(ctx, roomID, limit)
}

func (s *RoomService) SubscribeChat(roomID string, onMessage func(models.ChatMessage)) func() {
	return s.store.SubscribeChat(roomID, onMessage)
}

func (s *RoomService) resolveSettings(base models.RoomSettings, in SettingsInput, playerCount int) (models.RoomSettings, error) {
	out := base
	out.Categories = append([]string(nil), base.Categories...)

	if in.MaxPlayers != nil {
		out.MaxPlayers = *in.MaxPlayers
	}
	if in.RoundDurationSeconds != nil {
		out.RoundDurationSeconds = *in.RoundDurationSeconds
	}
	if in.IsPrivate != nil {
		out.IsPrivate = *in.IsPrivate
	}
	if in.Language != nil && *in.Language != base.Language {
		out.Language = *in.Language
		// categories of another language may not exist in this one
		out.Categories = nil
	}
	if in.Categories != nil {
		out.Categories = append([]string(nil), in.Categories...)
	}

	minPlayers := playerCount
	if minPlayers < 1 {
		minPlayers = 1
	}
	if out.MaxPlayers < minPlayers || out.MaxPlayers > s.cfg.MaxPlayersLimit {
		return out, errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("maxPlayers must be between %d and %d", minPlayers, s.cfg.MaxPlayersLimit))
	}
	if out.RoundDurationSeconds < s.cfg.MinRoundSeconds || out.RoundDurationSeconds > s.cfg.MaxRoundSeconds {
		return out, errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("roundDurationSeconds must be between %d and %d", s.cfg.MinRoundSeconds, s.cfg.MaxRoundSeconds))
	}

	lang, ok := catalog.Lookup(out.Language)
	if !ok {
		return out, errors.New(errors.ErrCodeValidation, "unsupported language: "+out.Language)
	}
	out.Language = lang.Code

	if out.Categories == nil {
		out.Categories = lang.DefaultCategoryKeys()
	}
	if len(out.Categories) == 0 {
		return out, errors.New(errors.ErrCodeValidation, "at least one category is required")
	}
	seen := make(map[string]bool, len(out.Categories))
	for _, key := range out.Categories {
		if !lang.HasCategory(key) {
			return out, errors.New(errors.ErrCodeValidation, "unknown category: "+key)
		}
		if seen[key] {
			return out, errors.New(errors.ErrCodeValidation, "duplicate category: "+key)
		}
		seen[key] = true
	}
	return out, nil
}

func requireHost(room *models.Room, callerID string) error {
	if !room.IsHost(callerID) {
		return errors.New(errors.ErrCodeNotHost, "only the host can do that")
	}
	return nil
}

func requireMember(room *models.Room, playerID string) error {
	if !room.IsMember(playerID) {
		return errors.New(errors.ErrCodeForbidden, "player is not in this room")
	}
	return nil
}

// ignoreLostRace turns a compare-and-set miss into a silent no-op.
func ignoreLostRace(err error) error {
	if errors.Is(err, errors.ErrCodePreconditionFailed) {
		return nil
	}
	return err
}

func cleanName(name string) string {
	if clean := security.SanitizeText(name, maxNameRunes); clean != "" {
		return clean
	}
	return "Player"
}

func cleanAvatar(avatar string) string {
	return security.SanitizeText(avatar, maxAvatarRunes)
}

func cleanAnswer(word string) string {
	return security.SanitizeText(word, maxAnswerRunes)
}
