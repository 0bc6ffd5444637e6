package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/middleware"
	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/internal/services"
)

const guestTokenTTL = 30 * 24 * time.Hour

// Rankings is the part of the ranking ledger exposed over HTTP.
type Rankings interface {
	GetOrCreate(ctx context.Context, identity security.Identity) (*models.PlayerRanking, error)
	ClaimMission(ctx context.Context, identity security.Identity, missionID string) (*models.PlayerRanking, error)
	History(ctx context.Context, playerID string, limit int) ([]models.GameResult, error)
	Transactions(ctx context.Context, playerID string, limit int) ([]models.CoinTransaction, error)
	Leaderboard(ctx context.Context, limit int) ([]models.PlayerRanking, error)
}

type HandlerManager struct {
	Config   *config.Config
	Rooms    *services.RoomService
	Rankings Rankings

	auth          *middleware.Authenticator
	ipLimiter     *middleware.RateLimiter
	answerLimiter *middleware.RateLimiter
	chatLimiter   *middleware.RateLimiter
	upgrader      websocket.Upgrader
}

func NewHandlerManager(cfg *config.Config, rooms *services.RoomService, rankings Rankings) *HandlerManager {
	return &HandlerManager{
		Config:        cfg,
		Rooms:         rooms,
		Rankings:      rankings,
		auth:          middleware.NewAuthenticator(cfg.JWTSecret),
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerSecond*4, cfg.RateLimitBurst*4, 10*time.Minute),
		// answers and chat draw from separate buckets
		answerLimiter: middleware.NewRateLimiter(cfg.RateLimitPerSecond*2, cfg.RateLimitBurst*2, 10*time.Minute),
		chatLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, 10*time.Minute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Close stops the limiter sweeps.
func (h *HandlerManager) Close() {
	h.ipLimiter.Stop()
	h.answerLimiter.Stop()
	h.chatLimiter.Stop()
}

func (h *HandlerManager) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/guest", h.GuestToken).Methods(http.MethodPost)
	v1.HandleFunc("/catalog", h.Catalog).Methods(http.MethodGet)
	v1.HandleFunc("/leaderboard", h.Leaderboard).Methods(http.MethodGet)

	api := v1.NewRoute().Subrouter()
	api.Use(h.auth.Require)

	api.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/me/history", h.History).Methods(http.MethodGet)
	api.HandleFunc("/me/transactions", h.Transactions).Methods(http.MethodGet)
	api.HandleFunc("/me/missions/{missionId}/claim", h.ClaimMission).Methods(http.MethodPost)

	api.HandleFunc("/rooms", h.CreateRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}", h.GetRoom).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", h.CloseRoom).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{id}/settings", h.UpdateSettings).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/{id}/join", h.JoinRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/leave", h.LeaveRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/ready", h.SetReady).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/presence", h.SetPresence).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/start", h.StartGame).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/spin", h.SpinLetter).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/letter", h.CommitLetter).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/answers", h.SubmitAnswers).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/stop", h.ForceStop).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/next", h.NextRound).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/lobby", h.ReturnToLobby).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/chat", h.ListChat).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/chat", h.SendChat).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{id}/ws", h.RoomSocket).Methods(http.MethodGet)

	// preflight requests never match a route, so CORS wraps the router
	return corsMiddleware(h.ipLimiter.PerIP(r))
}

func (h *HandlerManager) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
