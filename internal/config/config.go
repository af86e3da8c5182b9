package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr              string
	DisplayName       string
	MaxLobbyMembers   int
	FriendRefreshWait time.Duration
	LogLevel          string
}

// Load reads .env if present, then the environment, falling back to
// defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              getenv("ADDR", ":8080"),
		DisplayName:       getenv("DISPLAY_NAME", "player"),
		MaxLobbyMembers:   getint("MAX_LOBBY_MEMBERS", 4),
		FriendRefreshWait: time.Duration(getint("FRIEND_REFRESH_WAIT_MS", 200)) * time.Millisecond,
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

func (c Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
