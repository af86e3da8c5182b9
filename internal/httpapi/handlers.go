package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/directory"
	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/internal/session"
)

type createRequest struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	MaxMembers int    `json:"max_members"`
}

// CreateLobby accepts the request and hands it to the coordinator. Creation
// is asynchronous; callers poll GET /lobby and watch for active=true — the
// absence of that transition is the failure signal.
func CreateLobby(c *session.Coordinator, defaultMax int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name != "" && strings.TrimSpace(req.Name) == "" {
			http.Error(w, "lobby name cannot be blank", http.StatusBadRequest)
			return
		}
		name := req.Name
		if name == "" {
			name = fmt.Sprintf("%s's Lobby", c.SelfName())
		}
		vis, ok := relay.ParseVisibility(req.Visibility)
		if !ok {
			http.Error(w, "unknown visibility", http.StatusBadRequest)
			return
		}
		max := req.MaxMembers
		if max <= 0 {
			max = defaultMax
		}

		c.CreateLobby(vis, name, max)
		log.Info("lobby create requested",
			zap.String("name", name), zap.String("visibility", string(vis)))
		w.WriteHeader(http.StatusAccepted)
	}
}

func JoinLobby(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LobbyID string `json:"lobby_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LobbyID == "" {
			http.Error(w, "missing lobby_id", http.StatusBadRequest)
			return
		}
		c.JoinLobby(relay.LobbyID(req.LobbyID))
		w.WriteHeader(http.StatusAccepted)
	}
}

func LeaveLobby(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.LeaveLobby()
		w.WriteHeader(http.StatusNoContent)
	}
}

func DestroyLobby(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.DestroyLobby()
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleReady(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.ToggleReady()
		w.WriteHeader(http.StatusAccepted)
	}
}

func StartGame(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.StartGame()
		w.WriteHeader(http.StatusAccepted)
	}
}

func SendChat(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			http.Error(w, "missing text", http.StatusBadRequest)
			return
		}
		c.SendChat(req.Text)
		w.WriteHeader(http.StatusAccepted)
	}
}

func GetLobby(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, c.Snapshot())
	}
}

func GetMembers(c *session.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, c.Members())
	}
}

func PublicLobbies(d *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.PublicLobbies(r.Context())
		if err != nil {
			http.Error(w, "lobby list unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, out)
	}
}

func FriendLobbies(d *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.FriendLobbies(r.Context())
		if err != nil {
			http.Error(w, "lobby list unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
