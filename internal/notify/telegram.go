// Package notify posts public room events to a Telegram channel.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/word_game/internal/catalog"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/logger"
)

const (
	queueSize  = 64
	maxRetries = 3
)

// Sender is the part of the bot API the announcer needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAnnouncer queues announcements and posts them from one worker so
// game transitions never wait on Telegram.
type TelegramAnnouncer struct {
	sender Sender
	chatID int64
	queue  chan tgbotapi.MessageConfig
	wg     sync.WaitGroup
	once   sync.Once
	sleep  func(time.Duration)
}

// NewTelegramAnnouncer authorizes the bot token and starts the worker.
func NewTelegramAnnouncer(token string, chatID int64, debug bool) (*TelegramAnnouncer, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	logger.Info("Announcer authorized on account", "username", api.Self.UserName, "chat_id", chatID)
	return NewAnnouncerWithSender(api, chatID), nil
}

func NewAnnouncerWithSender(sender Sender, chatID int64) *TelegramAnnouncer {
	a := &TelegramAnnouncer{
		sender: sender,
		chatID: chatID,
		queue:  make(chan tgbotapi.MessageConfig, queueSize),
		sleep:  time.Sleep,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *TelegramAnnouncer) RoomOpened(ctx context.Context, room *models.Room) {
	a.enqueue(FormatRoomOpened(room))
}

func (a *TelegramAnnouncer) RoundWon(ctx context.Context, room *models.Room, winnerName string, score int) {
	a.enqueue(FormatRoundWon(room, winnerName, score))
}

// Close drains queued announcements and stops the worker.
func (a *TelegramAnnouncer) Close() {
	a.once.Do(func() { close(a.queue) })
	a.wg.Wait()
}

func (a *TelegramAnnouncer) enqueue(text string) {
	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	select {
	case a.queue <- msg:
	default:
		logger.Warn("Announcement queue full, dropping message", "chat_id", a.chatID)
	}
}

func (a *TelegramAnnouncer) run() {
	defer a.wg.Done()
	for msg := range a.queue {
		a.send(msg)
	}
}

func (a *TelegramAnnouncer) send(msg tgbotapi.MessageConfig) {
	for i := 0; i < maxRetries; i++ {
		_, err := a.sender.Send(msg)
		if err == nil {
			return
		}
		logger.Error("Failed to send announcement", "error", err, "chat_id", a.chatID, "attempt", i+1)

		// only network errors are worth another try
		if strings.Contains(err.Error(), "connection reset") ||
			strings.Contains(err.Error(), "timeout") ||
			strings.Contains(err.Error(), "network is unreachable") {
			a.sleep(time.Duration(i+1) * time.Second)
			continue
		}
		return
	}
}

func FormatRoomOpened(room *models.Room) string {
	host := room.Players[room.HostID].Name
	return fmt.Sprintf(
		"🆕 <b>New room</b> <code>%s</code>\nHost: %s\nLanguage: %s · Players: up to %d · Round: %ds\nCategories: %s",
		html.EscapeString(room.ID),
		html.EscapeString(host),
		html.EscapeString(languageName(room.Settings.Language)),
		room.Settings.MaxPlayers,
		room.Settings.RoundDurationSeconds,
		html.EscapeString(strings.Join(room.Settings.Categories, ", ")),
	)
}

func FormatRoundWon(room *models.Room, winnerName string, score int) string {
	return fmt.Sprintf(
		"🏆 <b>%s</b> won round %d in room <code>%s</code> with %d points (letter %s)",
		html.EscapeString(winnerName),
		room.Round,
		html.EscapeString(room.ID),
		score,
		html.EscapeString(room.CurrentLetter),
	)
}

func languageName(code string) string {
	if lang, ok := catalog.Lookup(code); ok {
		return lang.Name
	}
	return code
}

// Noop discards every announcement.
type Noop struct{}

func (Noop) RoomOpened(ctx context.Context, room *models.Room) {}

func (Noop) RoundWon(ctx context.Context, room *models.Room, winnerName string, score int) {}
