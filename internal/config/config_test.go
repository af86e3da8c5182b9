package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "player", cfg.DisplayName)
	require.Equal(t, 4, cfg.MaxLobbyMembers)
	require.Equal(t, 200*time.Millisecond, cfg.FriendRefreshWait)
	require.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DISPLAY_NAME", "alice")
	t.Setenv("MAX_LOBBY_MEMBERS", "8")
	t.Setenv("FRIEND_REFRESH_WAIT_MS", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, "alice", cfg.DisplayName)
	require.Equal(t, 8, cfg.MaxLobbyMembers)
	require.Equal(t, 50*time.Millisecond, cfg.FriendRefreshWait)
	require.Equal(t, zapcore.DebugLevel, cfg.ZapLevel())
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_LOBBY_MEMBERS", "many")
	t.Setenv("LOG_LEVEL", "shouting")

	cfg := Load()
	require.Equal(t, 4, cfg.MaxLobbyMembers)
	require.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}
