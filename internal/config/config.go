package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	RoomStorePostgres = "postgres"
	RoomStoreMemory   = "memory"

	GraderModeDictionary = "dictionary"
	GraderModeHTTP       = "http"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Security
	JWTSecret string

	// Application
	AppEnv    string
	AppPort   string
	LogLevel  string
	RoomStore string

	// Rate Limiting
	RateLimitPerSecond int
	RateLimitBurst     int

	// Rooms
	RoomCodeLength         int
	DefaultMaxPlayers      int
	MaxPlayersLimit        int
	DefaultRoundSeconds    int
	MinRoundSeconds        int
	MaxRoundSeconds        int
	DefaultLanguage        string
	SweepIntervalSeconds   int
	EvaluationStaleSeconds int
	FinishedRetentionHours int

	// Grading
	GraderMode           string
	GraderURL            string
	GraderAPIKey         string
	GraderTimeoutSeconds int
	GraderConcurrency    int
	WordListPath         string

	// Rewards
	DefaultCoins        int64
	RoundWinRewardCoins int64

	// Telegram announcements
	BotToken       string
	AnnounceChatID int64
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "wordgame"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "wordgame_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),

		AppEnv:    getEnv("APP_ENV", "development"),
		AppPort:   getEnv("APP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		RoomStore: getEnv("ROOM_STORE", RoomStorePostgres),

		RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),

		RoomCodeLength:         getEnvInt("ROOM_CODE_LENGTH", 6),
		DefaultMaxPlayers:      getEnvInt("DEFAULT_MAX_PLAYERS", 8),
		MaxPlayersLimit:        getEnvInt("MAX_PLAYERS_LIMIT", 16),
		DefaultRoundSeconds:    getEnvInt("DEFAULT_ROUND_SECONDS", 60),
		MinRoundSeconds:        getEnvInt("MIN_ROUND_SECONDS", 15),
		MaxRoundSeconds:        getEnvInt("MAX_ROUND_SECONDS", 300),
		DefaultLanguage:        getEnv("DEFAULT_LANGUAGE", "en"),
		SweepIntervalSeconds:   getEnvInt("SWEEP_INTERVAL_SECONDS", 15),
		EvaluationStaleSeconds: getEnvInt("EVALUATION_STALE_SECONDS", 60),
		FinishedRetentionHours: getEnvInt("FINISHED_ROOM_RETENTION_HOURS", 24),

		GraderMode:           getEnv("GRADER_MODE", GraderModeDictionary),
		GraderURL:            getEnv("GRADER_URL", ""),
		GraderAPIKey:         getEnv("GRADER_API_KEY", ""),
		GraderTimeoutSeconds: getEnvInt("GRADER_TIMEOUT_SECONDS", 8),
		GraderConcurrency:    getEnvInt("GRADER_CONCURRENCY", 8),
		WordListPath:         getEnv("WORDLIST_PATH", ""),

		DefaultCoins:        getEnvInt64("DEFAULT_COINS", 100),
		RoundWinRewardCoins: getEnvInt64("ROUND_WIN_REWARD_COINS", 5),

		BotToken: getEnv("BOT_TOKEN", ""),
	}

	chatIDStr := getEnv("ANNOUNCE_CHAT_ID", "")
	if chatIDStr != "" {
		id, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ANNOUNCE_CHAT_ID: %w", err)
		}
		cfg.AnnounceChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	switch c.RoomStore {
	case RoomStorePostgres, RoomStoreMemory:
	default:
		return fmt.Errorf("ROOM_STORE must be %q or %q", RoomStorePostgres, RoomStoreMemory)
	}
	// rankings and results always live in postgres
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	switch c.GraderMode {
	case GraderModeDictionary:
	case GraderModeHTTP:
		if c.GraderURL == "" {
			return fmt.Errorf("GRADER_URL is required when GRADER_MODE=http")
		}
	default:
		return fmt.Errorf("GRADER_MODE must be %q or %q", GraderModeDictionary, GraderModeHTTP)
	}
	if c.RoomCodeLength < 4 || c.RoomCodeLength > 12 {
		return fmt.Errorf("ROOM_CODE_LENGTH must be between 4 and 12")
	}
	if c.MinRoundSeconds <= 0 || c.MinRoundSeconds > c.MaxRoundSeconds {
		return fmt.Errorf("MIN_ROUND_SECONDS must be positive and not above MAX_ROUND_SECONDS")
	}
	if c.DefaultRoundSeconds < c.MinRoundSeconds || c.DefaultRoundSeconds > c.MaxRoundSeconds {
		return fmt.Errorf("DEFAULT_ROUND_SECONDS must be within [%d, %d]", c.MinRoundSeconds, c.MaxRoundSeconds)
	}
	if c.DefaultMaxPlayers < 1 || c.DefaultMaxPlayers > c.MaxPlayersLimit {
		return fmt.Errorf("DEFAULT_MAX_PLAYERS must be within [1, %d]", c.MaxPlayersLimit)
	}
	if c.GraderTimeoutSeconds <= 0 {
		return fmt.Errorf("GRADER_TIMEOUT_SECONDS must be positive")
	}
	if c.GraderConcurrency <= 0 {
		return fmt.Errorf("GRADER_CONCURRENCY must be positive")
	}
	if c.BotToken != "" && c.AnnounceChatID == 0 {
		return fmt.Errorf("ANNOUNCE_CHAT_ID is required when BOT_TOKEN is set")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.JWTSecret == "your_jwt_secret_minimum_32_chars_here_change_this" {
		return fmt.Errorf("JWT_SECRET_KEY must be changed from default in production")
	}
	if c.RoomStore == RoomStoreMemory {
		return fmt.Errorf("ROOM_STORE=memory cannot be used in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetGraderTimeout() time.Duration {
	return time.Duration(c.GraderTimeoutSeconds) * time.Second
}

func (c *Config) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) GetEvaluationStaleAfter() time.Duration {
	return time.Duration(c.EvaluationStaleSeconds) * time.Second
}

func (c *Config) GetFinishedRetention() time.Duration {
	return time.Duration(c.FinishedRetentionHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
