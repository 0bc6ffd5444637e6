package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoom(id string) *models.Room {
	joined := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Room{
		ID:        id,
		HostID:    "alice",
		Status:    models.RoomStatusWaiting,
		GameState: models.GameStateIdle,
		Players: map[string]models.Player{
			"alice": {ID: "alice", Name: "Alice", IsHost: true, Status: models.PlayerStatusOnline, JoinedAt: joined},
			"bob":   {ID: "bob", Name: "Bob", Status: models.PlayerStatusOnline, JoinedAt: joined.Add(time.Second)},
		},
		Settings: models.RoomSettings{
			MaxPlayers:           4,
			RoundDurationSeconds: 60,
			Language:             "en",
			Categories:           []string{"Animal", "Color"},
		},
		GameScores: map[string]int{},
	}
}

// runStoreContract exercises the behaviour every RoomStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) RoomStore) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRoom("CREATE1")))

		got, err := s.Get(ctx, "CREATE1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "alice", got.HostID)
		assert.Len(t, got.Players, 2)
		assert.False(t, got.CreatedAt.IsZero())

		err = s.Create(ctx, sampleRoom("CREATE1"))
		assert.True(t, errors.Is(err, errors.ErrCodeAlreadyExists), "got %v", err)

		_, err = s.Get(ctx, "MISSING")
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)
	})

	t.Run("CompareAndSetKeepsFirstLetter", func(t *testing.T) {
		s := newStore(t)
		room := sampleRoom("CAS001")
		room.Status = models.RoomStatusPlaying
		room.GameState = models.GameStateSpinning
		require.NoError(t, s.Create(ctx, room))

		letters := []string{"M", "Q"}
		errs := make([]error, len(letters))
		var wg sync.WaitGroup
		for i, letter := range letters {
			wg.Add(1)
			go func(i int, letter string) {
				defer wg.Done()
				_, errs[i] = s.Update(ctx, "CAS001", Update{
					ExpectGameState: []string{models.GameStateSpinning},
					Patch: Patch{
						"currentLetter":  letter,
						"gameState":      models.GameStatePlaying,
						"roundStartedAt": ServerTimestamp(),
					},
				})
			}(i, letter)
		}
		wg.Wait()

		var winner string
		for i, err := range errs {
			if err == nil {
				require.Empty(t, winner, "both writes committed")
				winner = letters[i]
				continue
			}
			assert.True(t, errors.Is(err, errors.ErrCodePreconditionFailed), "got %v", err)
		}
		require.NotEmpty(t, winner)

		got, err := s.Get(ctx, "CAS001")
		require.NoError(t, err)
		assert.Equal(t, winner, got.CurrentLetter)
		assert.Equal(t, models.GameStatePlaying, got.GameState)
		assert.NotNil(t, got.RoundStartedAt)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("ConcurrentCategoryMerge", func(t *testing.T) {
		s := newStore(t)
		room := sampleRoom("MERGE1")
		room.Status = models.RoomStatusPlaying
		room.GameState = models.GameStatePlaying
		require.NoError(t, s.Create(ctx, room))

		categories := []string{"Animal", "Color", "Food", "Place", "Thing", "Name"}
		var wg sync.WaitGroup
		for i, category := range categories {
			wg.Add(1)
			go func(i int, category string) {
				defer wg.Done()
				_, err := s.Update(ctx, "MERGE1", Update{
					ExpectGameState: []string{models.GameStatePlaying},
					Patch:           Patch{"playerResponses.alice." + category: fmt.Sprintf("word%d", i)},
				})
				assert.NoError(t, err)
			}(i, category)
		}
		wg.Wait()

		got, err := s.Get(ctx, "MERGE1")
		require.NoError(t, err)
		require.Len(t, got.PlayerResponses["alice"], len(categories))
		for i, category := range categories {
			assert.Equal(t, fmt.Sprintf("word%d", i), got.PlayerResponses["alice"][category])
		}
	})

	t.Run("SentinelsAndBuild", func(t *testing.T) {
		s := newStore(t)
		room := sampleRoom("SENT01")
		room.GameScores = map[string]int{"alice": 10}
		room.PlayerResponses = map[string]map[string]string{"alice": {"Animal": "Ant"}}
		require.NoError(t, s.Create(ctx, room))

		got, err := s.Update(ctx, "SENT01", Update{
			Patch: Patch{
				"gameScores.alice":    Increment(5),
				"gameScores.bob":      Increment(0),
				"playerResponses":     Delete(),
				"players.bob.isReady": true,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 15, got.GameScores["alice"])
		score, ok := got.GameScores["bob"]
		assert.True(t, ok)
		assert.Equal(t, 0, score)
		assert.Nil(t, got.PlayerResponses)
		assert.True(t, got.Players["bob"].IsReady)
		assert.Equal(t, "Bob", got.Players["bob"].Name)

		veto := errors.New(errors.ErrCodeNotHost, "only the host")
		_, err = s.Update(ctx, "SENT01", Update{
			Build: func(current *models.Room) (Patch, error) { return nil, veto },
		})
		assert.True(t, errors.Is(err, errors.ErrCodeNotHost))

		unchanged, err := s.Update(ctx, "SENT01", Update{
			Build: func(current *models.Room) (Patch, error) { return Patch{}, nil },
		})
		require.NoError(t, err)
		assert.Equal(t, got.Version, unchanged.Version)

		_, err = s.Update(ctx, "SENT01", Update{Patch: Patch{"id": "OTHER"}})
		assert.True(t, errors.Is(err, errors.ErrCodeValidationFailed), "got %v", err)

		_, err = s.Update(ctx, "MISSING", Update{Patch: Patch{"status": models.RoomStatusFinished}})
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound), "got %v", err)
	})

	t.Run("SubscribeSeesSnapshots", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRoom("SUBS01")))

		var (
			mu       sync.Mutex
			versions []int64
		)
		unsubscribe, err := s.Subscribe(ctx, "SUBS01", func(r *models.Room) {
			mu.Lock()
			versions = append(versions, r.Version)
			mu.Unlock()
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(versions) > 0 && versions[0] == 1
		}, 2*time.Second, 10*time.Millisecond)

		_, err = s.Update(ctx, "SUBS01", Update{Patch: Patch{"players.bob.isReady": true}})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return versions[len(versions)-1] == 2
		}, 2*time.Second, 10*time.Millisecond)

		unsubscribe()
		unsubscribe()

		_, err = s.Update(ctx, "SUBS01", Update{Patch: Patch{"players.alice.isReady": true}})
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		for i := 1; i < len(versions); i++ {
			assert.Greater(t, versions[i], versions[i-1])
		}
		assert.Equal(t, int64(2), versions[len(versions)-1])

		_, err = s.Subscribe(ctx, "MISSING", func(*models.Room) {})
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	})

	t.Run("Chat", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, sampleRoom("CHAT01")))

		received := make(chan models.ChatMessage, 4)
		unsubscribe := s.SubscribeChat("CHAT01", func(m models.ChatMessage) { received <- m })
		defer unsubscribe()

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, text := range []string{"hi", "ready?", "go"} {
			require.NoError(t, s.AppendChat(ctx, &models.ChatMessage{
				RoomID: "CHAT01", PlayerID: "alice", Name: "Alice", Text: text,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		messages, err := s.ListChat(ctx, "CHAT01", 2)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "ready?", messages[0].Text)
		assert.Equal(t, "go", messages[1].Text)
		assert.NotEmpty(t, messages[0].ID)

		for _, want := range []string{"hi", "ready?", "go"} {
			select {
			case m := <-received:
				assert.Equal(t, want, m.Text)
			case <-time.After(2 * time.Second):
				t.Fatalf("chat message %q not delivered", want)
			}
		}

		err = s.AppendChat(ctx, &models.ChatMessage{RoomID: "MISSING", PlayerID: "alice", Text: "x"})
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	})

	t.Run("ListAndPurge", func(t *testing.T) {
		s := newStore(t)
		playing := sampleRoom("LIST01")
		playing.Status = models.RoomStatusPlaying
		playing.GameState = models.GameStatePlaying
		require.NoError(t, s.Create(ctx, playing))

		finished := sampleRoom("LIST02")
		finished.Status = models.RoomStatusFinished
		require.NoError(t, s.Create(ctx, finished))

		rooms, err := s.ListByGameState(ctx, models.GameStatePlaying, models.GameStateEvaluating)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, "LIST01", rooms[0].ID)

		purged, err := s.PurgeFinished(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		_, err = s.Get(ctx, "LIST02")
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
		_, err = s.Get(ctx, "LIST01")
		assert.NoError(t, err)
	})
}
