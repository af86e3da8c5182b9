package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/directory"
	"github.com/mliddell/lobby-coordinator/internal/session"
	"github.com/mliddell/lobby-coordinator/internal/ws"
)

func SetupRoutes(c *session.Coordinator, d *directory.Directory, defaultMax int, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/lobby", CreateLobby(c, defaultMax, log))
	r.Post("/lobby/join", JoinLobby(c))
	r.Post("/lobby/leave", LeaveLobby(c))
	r.Post("/lobby/destroy", DestroyLobby(c))
	r.Post("/lobby/ready", ToggleReady(c))
	r.Post("/lobby/start", StartGame(c))
	r.Post("/lobby/chat", SendChat(c))
	r.Get("/lobby", GetLobby(c))
	r.Get("/lobby/members", GetMembers(c))

	r.Get("/lobbies/public", PublicLobbies(d))
	r.Get("/lobbies/friends", FriendLobbies(d))

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(c, log))
	return r
}
