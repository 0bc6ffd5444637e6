package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/word_game/internal/config"
	"github.com/mroshb/word_game/internal/database"
	"github.com/mroshb/word_game/internal/grader"
	"github.com/mroshb/word_game/internal/handlers"
	"github.com/mroshb/word_game/internal/notify"
	"github.com/mroshb/word_game/internal/repositories"
	"github.com/mroshb/word_game/internal/services"
	"github.com/mroshb/word_game/internal/store"
	"github.com/mroshb/word_game/pkg/logger"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize logger
	logger.Init()
	defer logger.Sync()

	logger.Info("Starting word game server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}

	// Validate production security settings
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProductionSecurity(); err != nil {
			logger.Fatal("Production security validation failed", err)
		}
		logger.Info("Production security validation passed")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	// Run GORM auto-migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rooms := buildRoomStore(ctx, cfg, db)

	g, err := buildGrader(cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize grader", err)
	}

	var announcer services.Announcer = notify.Noop{}
	if cfg.BotToken != "" {
		tg, err := notify.NewTelegramAnnouncer(cfg.BotToken, cfg.AnnounceChatID, cfg.AppEnv == "development")
		if err != nil {
			logger.Fatal("Failed to initialize announcer", err)
		}
		defer tg.Close()
		announcer = tg
	}

	rankingRepo := repositories.NewRankingRepository(db)
	coinRepo := repositories.NewCoinRepository(db)
	rankings := services.NewRankingService(rankingRepo, coinRepo, cfg.DefaultCoins, cfg.RoundWinRewardCoins)

	roomSvc := services.NewRoomService(cfg, rooms, g, rankings, announcer)
	defer roomSvc.Close()

	// Recover rounds whose deadline timers died with a previous process
	if report, err := roomSvc.Sweep(ctx); err != nil {
		logger.Warn("Startup sweep failed", "error", err)
	} else {
		logger.Info("Startup sweep finished", "expired", report.Expired, "reevaluated", report.Reevaluated, "purged", report.Purged)
	}
	go roomSvc.RunSweeper(ctx, cfg.GetSweepInterval())

	handlerMgr := handlers.NewHandlerManager(cfg, roomSvc, rankings)
	defer handlerMgr.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handlerMgr.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "env", cfg.AppEnv, "room_store", cfg.RoomStore, "grader", cfg.GraderMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

func buildRoomStore(ctx context.Context, cfg *config.Config, db *gorm.DB) store.RoomStore {
	if cfg.RoomStore == config.RoomStoreMemory {
		logger.Warn("Rooms are kept in memory and will not survive a restart")
		return store.NewMemoryRoomStore()
	}

	rooms := store.NewPostgresRoomStore(db)
	go store.NewListener(cfg.GetDSN(), rooms).Run(ctx)
	return rooms
}

func buildGrader(cfg *config.Config, db *gorm.DB) (grader.Grader, error) {
	if cfg.GraderMode == config.GraderModeHTTP {
		return grader.NewHTTPGrader(cfg.GraderURL, cfg.GraderAPIKey, &http.Client{}), nil
	}

	if cfg.WordListPath != "" {
		words, err := grader.LoadWorkbook(cfg.WordListPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Word list loaded", "path", cfg.WordListPath, "words", words.Len())
		return grader.NewDictionaryGrader(words), nil
	}

	return grader.NewDictionaryGrader(repositories.NewDictionaryRepository(db)), nil
}
