package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/scythe504/race24-backend/internal"
)

// Config is the process configuration, read once at startup from the
// environment (with .env overrides for local development).
type Config struct {
	Port int

	// DatabaseURL enables the submission archive when set.
	DatabaseURL string

	RoomSettings internal.RoomSettings

	ReapInterval time.Duration
	MaxRoomIdle  time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config.Load] no .env file, using environment: %v", err)
	}

	settings := internal.DefaultSettings()
	settings.Rounds = envInt("GAME_ROUNDS", settings.Rounds)
	settings.TimePerRound = envDuration("GAME_TIME_PER_ROUND", settings.TimePerRound)
	settings.Countdown = envDuration("GAME_COUNTDOWN", settings.Countdown)
	settings.ResultsDisplay = envDuration("GAME_RESULTS_DISPLAY", settings.ResultsDisplay)
	settings.MaxPlayers = envInt("GAME_MAX_PLAYERS", settings.MaxPlayers)
	settings.PointsToWin = envInt("GAME_POINTS_TO_WIN", settings.PointsToWin)
	settings.SyncSeconds()

	return Config{
		Port:         envInt("PORT", 8080),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RoomSettings: settings,
		ReapInterval: envDuration("ROOM_REAP_INTERVAL", 5*time.Minute),
		MaxRoomIdle:  envDuration("ROOM_MAX_IDLE", 2*time.Hour),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v: %v", key, raw, fallback, err)
		return fallback
	}
	return v
}
