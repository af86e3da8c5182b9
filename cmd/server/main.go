package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/config"
	"github.com/mliddell/lobby-coordinator/internal/directory"
	"github.com/mliddell/lobby-coordinator/internal/httpapi"
	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/internal/relay/memrelay"
	"github.com/mliddell/lobby-coordinator/internal/session"
)

func main() {
	cfg := config.Load()

	lcfg := zap.NewProductionConfig()
	lcfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	logger, err := lcfg.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// The dev server runs against the in-memory relay; a real deployment
	// would dial the matchmaking service here instead.
	hub := memrelay.NewHub(logger)
	client := hub.NewClient(cfg.DisplayName)

	starter := session.StarterFunc(func(ctx context.Context, lobby relay.LobbyID, members []relay.MemberID) error {
		logger.Info("game starting",
			zap.String("lobby", string(lobby)), zap.Int("members", len(members)))
		return nil
	})

	coord := session.New(ctx, client, starter, logger)
	dir := directory.New(client, cfg.FriendRefreshWait, logger)

	handler := httpapi.SetupRoutes(coord, dir, cfg.MaxLobbyMembers, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
