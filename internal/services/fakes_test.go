package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/repositories"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memoryRankings mirrors the transactional contract of the postgres ranking
// repository: a failing callback leaves nothing behind.
type memoryRankings struct {
	mu       sync.Mutex
	profiles map[string]*models.PlayerRanking
	results  map[string]models.GameResult
	txs      []models.CoinTransaction
}

func newMemoryRankings() *memoryRankings {
	return &memoryRankings{
		profiles: make(map[string]*models.PlayerRanking),
		results:  make(map[string]models.GameResult),
	}
}

func (m *memoryRankings) Get(ctx context.Context, playerID string) (*models.PlayerRanking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[playerID]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "player ranking not found")
	}
	return cloneRanking(p), nil
}

func (m *memoryRankings) Mutate(ctx context.Context, playerID string, seed repositories.Seed, fn repositories.MutateFunc) (*models.PlayerRanking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(playerID, seed, fn)
}

func (m *memoryRankings) ApplyGameResult(ctx context.Context, result *models.GameResult, seed repositories.Seed, fn repositories.MutateFunc) (*models.PlayerRanking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.results[result.ID]; seen {
		p, err := m.mutate(result.PlayerID, seed, func(*models.PlayerRanking) ([]models.CoinTransaction, error) { return nil, nil })
		return p, false, err
	}
	p, err := m.mutate(result.PlayerID, seed, fn)
	if err != nil {
		return nil, false, err
	}
	m.results[result.ID] = *result
	return p, true, nil
}

func (m *memoryRankings) ListGameResults(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.GameResult
	for _, r := range m.results {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round > out[j].Round })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRankings) TopPlayers(ctx context.Context, limit int) ([]models.PlayerRanking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PlayerRanking
	for _, p := range m.profiles {
		out = append(out, *cloneRanking(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRankings) GetTransactionHistory(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.CoinTransaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].PlayerID == playerID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memoryRankings) mutate(playerID string, seed repositories.Seed, fn repositories.MutateFunc) (*models.PlayerRanking, error) {
	var pending []models.CoinTransaction
	current, ok := m.profiles[playerID]
	if !ok {
		fresh, starter := seed()
		fresh.PlayerID = playerID
		current = fresh
		pending = append(pending, starter...)
	}

	working := cloneRanking(current)
	txs, err := fn(working)
	if err != nil {
		return nil, err
	}

	m.profiles[playerID] = working
	for _, tx := range append(pending, txs...) {
		tx.PlayerID = playerID
		m.txs = append(m.txs, tx)
	}
	return cloneRanking(working), nil
}

func cloneRanking(p *models.PlayerRanking) *models.PlayerRanking {
	c := *p
	c.Achievements = append(datatypes.JSONSlice[string](nil), p.Achievements...)
	c.DailyMissions = append(datatypes.JSONSlice[models.Mission](nil), p.DailyMissions...)
	return &c
}

type announcement struct {
	Kind   string
	RoomID string
	Winner string
	Score  int
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	events []announcement
}

func (a *recordingAnnouncer) RoomOpened(ctx context.Context, room *models.Room) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, announcement{Kind: "opened", RoomID: room.ID})
}

func (a *recordingAnnouncer) RoundWon(ctx context.Context, room *models.Room, winnerName string, score int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, announcement{Kind: "won", RoomID: room.ID, Winner: winnerName, Score: score})
}

func (a *recordingAnnouncer) wins() []announcement {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []announcement
	for _, e := range a.events {
		if e.Kind == "won" {
			out = append(out, e)
		}
	}
	return out
}

type mockGrader struct {
	mock.Mock
}

func (m *mockGrader) Evaluate(ctx context.Context, req grader.Request) (*grader.Result, error) {
	args := m.Called(req)
	res, _ := args.Get(0).(*grader.Result)
	return res, args.Error(1)
}

type graderFunc func(ctx context.Context, req grader.Request) (*grader.Result, error)

func (f graderFunc) Evaluate(ctx context.Context, req grader.Request) (*grader.Result, error) {
	return f(ctx, req)
}

func answerFor(req grader.Request, category string) string {
	for _, a := range req.Answers {
		if a.Category == category {
			return a.Word
		}
	}
	return ""
}

func testConfig() *config.Config {
	return &config.Config{
		RoomCodeLength:         6,
		DefaultMaxPlayers:      4,
		MaxPlayersLimit:        8,
		DefaultRoundSeconds:    60,
		MinRoundSeconds:        15,
		MaxRoundSeconds:        300,
		DefaultLanguage:        "en",
		GraderTimeoutSeconds:   1,
		GraderConcurrency:      4,
		EvaluationStaleSeconds: 60,
		FinishedRetentionHours: 24,
		DefaultCoins:           100,
		RoundWinRewardCoins:    5,
	}
}

func testWords() *grader.WordList {
	words := grader.NewWordList()
	for _, w := range []string{"Cat", "Cow", "Camel", "Mole", "Quail"} {
		words.Add("en", "Animal", w)
	}
	for _, w := range []string{"Cyan", "Crimson", "Magenta"} {
		words.Add("en", "Color", w)
	}
	return words
}

type harness struct {
	svc       *RoomService
	rooms     *store.MemoryRoomStore
	ranking   *RankingService
	ledger    *memoryRankings
	announcer *recordingAnnouncer
	clock     *fakeClock
	cfg       *config.Config
}

func newHarness(t *testing.T, g grader.Grader) *harness {
	t.Helper()
	if g == nil {
		g = grader.NewDictionaryGrader(testWords())
	}

	cfg := testConfig()
	clock := newFakeClock()
	rooms := store.NewMemoryRoomStore().WithClock(clock.Now)
	ledger := newMemoryRankings()
	ranking := NewRankingService(ledger, ledger, cfg.DefaultCoins, cfg.RoundWinRewardCoins).WithClock(clock.Now)
	announcer := &recordingAnnouncer{}

	svc := NewRoomService(cfg, rooms, g, ranking, announcer).WithClock(clock.Now)
	t.Cleanup(svc.Close)

	return &harness{
		svc:       svc,
		rooms:     rooms,
		ranking:   ranking,
		ledger:    ledger,
		announcer: announcer,
		clock:     clock,
		cfg:       cfg,
	}
}

// lobby creates a room hosted by the first player, seats the rest and marks
// everyone ready.
func (h *harness) lobby(t *testing.T, categories []string, players ...string) string {
	t.Helper()
	ctx := context.Background()

	room, err := h.svc.CreateRoom(ctx, players[0], players[0], "", SettingsInput{Categories: categories})
	require.NoError(t, err)
	h.clock.Advance(time.Second)

	for _, p := range players[1:] {
		_, err := h.svc.JoinRoom(ctx, room.ID, p, p, "")
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}
	for _, p := range players {
		_, err := h.svc.SetReady(ctx, room.ID, p, true)
		require.NoError(t, err)
	}
	return room.ID
}

// play starts (or advances to) a round and commits letter as the host.
func (h *harness) play(t *testing.T, roomID, letter string) *models.Room {
	t.Helper()
	ctx := context.Background()

	room, err := h.svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	switch room.GameState {
	case models.GameStateIdle:
		require.NoError(t, h.svc.StartGame(ctx, roomID, room.HostID))
	case models.GameStateResults:
		require.NoError(t, h.svc.AdvanceToNextRound(ctx, roomID, room.HostID))
	}
	require.NoError(t, h.svc.CommitLetter(ctx, roomID, room.HostID, letter))

	room, err = h.svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, models.GameStatePlaying, room.GameState)
	return room
}

func (h *harness) room(t *testing.T, roomID string) *models.Room {
	t.Helper()
	room, err := h.svc.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return room
}
