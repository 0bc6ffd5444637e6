package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/internal/services"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this_is_a_test_secret_key_with_32_chars_minimum"

type stubRankings struct {
	mu      sync.Mutex
	results []*models.GameResult
}

func (s *stubRankings) RecordGameResult(ctx context.Context, result *models.GameResult, displayName, avatar string) (*models.PlayerRanking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return &models.PlayerRanking{PlayerID: result.PlayerID}, nil
}

func (s *stubRankings) GetOrCreate(ctx context.Context, id security.Identity) (*models.PlayerRanking, error) {
	return &models.PlayerRanking{PlayerID: id.PlayerID, DisplayName: id.DisplayName, Coins: 100}, nil
}

func (s *stubRankings) ClaimMission(ctx context.Context, id security.Identity, missionID string) (*models.PlayerRanking, error) {
	return nil, errors.New(errors.ErrCodeMissionState, "mission not completed yet")
}

func (s *stubRankings) History(ctx context.Context, playerID string, limit int) ([]models.GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GameResult
	for _, r := range s.results {
		if r.PlayerID == playerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRankings) Transactions(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error) {
	return []models.CoinTransaction{}, nil
}

func (s *stubRankings) Leaderboard(ctx context.Context, limit int) ([]models.PlayerRanking, error) {
	return []models.PlayerRanking{}, nil
}

type nopAnnouncer struct{}

func (nopAnnouncer) RoomOpened(ctx context.Context, room *models.Room) {}
func (nopAnnouncer) RoundWon(ctx context.Context, room *models.Room, winnerName string, score int) {}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:            testSecret,
		RateLimitPerSecond:   100,
		RateLimitBurst:       100,
		RoomCodeLength:       6,
		DefaultMaxPlayers:    4,
		MaxPlayersLimit:      8,
		DefaultRoundSeconds:  60,
		MinRoundSeconds:      15,
		MaxRoundSeconds:      300,
		DefaultLanguage:      "en",
		GraderTimeoutSeconds: 1,
		GraderConcurrency:    2,
	}
}

type testServer struct {
	handler  http.Handler
	manager  *HandlerManager
	rankings *stubRankings
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	words := grader.NewWordList()
	words.Add("en", "Animal", "Cat")
	words.Add("en", "Animal", "Cow")

	rankings := &stubRankings{}
	rooms := services.NewRoomService(cfg, store.NewMemoryRoomStore(), grader.NewDictionaryGrader(words), rankings, nopAnnouncer{})
	manager := NewHandlerManager(cfg, rooms, rankings)
	t.Cleanup(func() {
		manager.Close()
		rooms.Close()
	})

	return &testServer{handler: manager.Router(), manager: manager, rankings: rankings}
}

func tokenFor(t *testing.T, playerID string) string {
	t.Helper()
	token, err := security.GenerateJWT(security.Identity{PlayerID: playerID, DisplayName: strings.ToUpper(playerID)}, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, playerID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if playerID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, playerID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeRoom(t *testing.T, rec *httptest.ResponseRecorder) *models.Room {
	t.Helper()
	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room), rec.Body.String())
	return &room
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func TestGuestToken(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/v1/auth/guest", "", map[string]string{"displayName": "<i>Neo</i>"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp guestTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Identity.PlayerID)
	assert.Equal(t, "Neo", resp.Identity.DisplayName)

	claims, err := security.ValidateJWT(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.Identity.PlayerID, claims.PlayerID)

	rec = s.do(t, http.MethodPost, "/v1/auth/guest", "", map[string]string{"playerId": "no spaces allowed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/v1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/catalog", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"defaultLanguage":"en"`)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodOptions, "/v1/rooms", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoundOverHTTP(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/v1/rooms", "host", map[string]interface{}{"categories": []string{"Animal"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decodeRoom(t, rec)
	base := "/v1/rooms/" + room.ID

	rec = s.do(t, http.MethodPost, base+"/join", "guest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GUEST", decodeRoom(t, rec).Players["guest"].Name)

	rec = s.do(t, http.MethodPost, base+"/start", "host", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrCodeNotAllReady, errorCode(t, rec))

	for _, p := range []string{"host", "guest"} {
		rec = s.do(t, http.MethodPost, base+"/ready", p, readyRequest{Ready: true})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/start", "guest", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, errors.ErrCodeNotHost, errorCode(t, rec))

	rec = s.do(t, http.MethodPost, base+"/start", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GameStateSpinning, decodeRoom(t, rec).GameState)

	rec = s.do(t, http.MethodPost, base+"/letter", "host", letterRequest{Letter: "c"})
	require.Equal(t, http.StatusOK, rec.Code)
	room = decodeRoom(t, rec)
	assert.Equal(t, models.GameStatePlaying, room.GameState)
	assert.Equal(t, "C", room.CurrentLetter)

	rec = s.do(t, http.MethodPost, base+"/answers", "guest", answersRequest{Answers: map[string]string{"Animal": "Cow"}})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/stop", "guest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	room = decodeRoom(t, rec)
	assert.Equal(t, models.GameStateResults, room.GameState)
	assert.Equal(t, 10, room.GameScores["guest"])
	assert.Equal(t, 0, room.GameScores["host"])

	rec = s.do(t, http.MethodGet, "/v1/me/history", "guest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.GameResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.True(t, history[0].Won)

	rec = s.do(t, http.MethodPost, base+"/answers", "guest", answersRequest{Answers: map[string]string{"Animal": "Cat"}})
	assert.Equal(t, http.StatusConflict, rec.Code, "answers after the round are refused")

	rec = s.do(t, http.MethodPost, base+"/lobby", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoomStatusWaiting, decodeRoom(t, rec).Status)

	rec = s.do(t, http.MethodDelete, base, "guest", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, base, "host", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatOverHTTP(t *testing.T) {
	s := newTestServer(t, testConfig())

	room := decodeRoom(t, s.do(t, http.MethodPost, "/v1/rooms", "host", nil))
	base := "/v1/rooms/" + room.ID

	rec := s.do(t, http.MethodPost, base+"/chat", "stranger", chatRequest{Text: "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/chat", "host", chatRequest{Text: "<script>x</script>hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/chat?limit=10", "host", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []models.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestSubmitAnswersIsThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	s := newTestServer(t, cfg)

	body := answersRequest{Answers: map[string]string{"Animal": "Cat"}}
	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodPost, "/v1/rooms/NOPE42/answers", "p1", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/v1/rooms/NOPE42/answers", "p1", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimitExceeded, errorCode(t, rec))
}

func TestChatDoesNotStarveAnswers(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	s := newTestServer(t, cfg)

	chat := chatRequest{Text: "hi"}
	rec := s.do(t, http.MethodPost, "/v1/rooms/NOPE42/chat", "p1", chat)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/rooms/NOPE42/chat", "p1", chat)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	answers := answersRequest{Answers: map[string]string{"Animal": "Cat"}}
	rec = s.do(t, http.MethodPost, "/v1/rooms/NOPE42/answers", "p1", answers)
	assert.Equal(t, http.StatusNotFound, rec.Code, "chat used up its own bucket only")
}

func TestMissionClaimConflict(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(t, http.MethodPost, "/v1/me/missions/2026-03-01:play3/claim", "p1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrCodeMissionState, errorCode(t, rec))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{errors.ErrCodeValidation, http.StatusBadRequest},
		{errors.ErrCodeNotHost, http.StatusForbidden},
		{errors.ErrCodeRoomFull, http.StatusConflict},
		{errors.ErrCodePreconditionFailed, http.StatusConflict},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.code), tt.code)
	}
}

func TestRoomSocket(t *testing.T) {
	s := newTestServer(t, testConfig())
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	room := decodeRoom(t, s.do(t, http.MethodPost, "/v1/rooms", "host", nil))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/rooms/" + room.ID + "/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+tokenFor(t, "stranger"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+tokenFor(t, "host"), nil)
	require.NoError(t, err)
	defer conn.Close()

	readRoom := func(match func(*models.Room) bool) *models.Room {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		for {
			var env Envelope
			require.NoError(t, conn.ReadJSON(&env))
			if env.Type != "room" {
				continue
			}
			var r models.Room
			require.NoError(t, json.Unmarshal(env.Data, &r))
			if match(&r) {
				return &r
			}
		}
	}

	readRoom(func(r *models.Room) bool { return r.ID == room.ID })

	rec := s.do(t, http.MethodPost, "/v1/rooms/"+room.ID+"/join", "guest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	joined := readRoom(func(r *models.Room) bool { return r.IsMember("guest") })
	assert.Len(t, joined.Players, 2)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "presence", Data: json.RawMessage(`"away"`)}))
	away := readRoom(func(r *models.Room) bool { return r.Players["host"].Status == models.PlayerStatusAway })
	assert.Equal(t, "host", away.HostID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/v1/rooms/"+room.ID, "host", nil)
		return decodeRoom(t, rec).Players["host"].Status == models.PlayerStatusOffline
	}, 3*time.Second, 20*time.Millisecond, "closing the socket marks the player offline")
}
