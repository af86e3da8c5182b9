package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/internal/session"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

// Handler streams coordinator updates to the client and translates incoming
// JSON messages into coordinator commands.
func Handler(c *session.Coordinator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.Update, 8)
		subID := uuid.NewString()

		c.Subscribe(subID, out)
		defer c.Unsubscribe(subID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for u := range out {
				u := u
				msg := types.ServerMessage{Type: "Update", Update: &u}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			if !dispatch(c, cm) {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
			}
		}
	}
}

func dispatch(c *session.Coordinator, m types.ClientMessage) bool {
	switch m.Type {
	case "create":
		vis, ok := relay.ParseVisibility(m.Visibility)
		if !ok {
			return false
		}
		max := m.MaxMembers
		if max <= 0 {
			max = 4
		}
		c.CreateLobby(vis, m.Name, max)
	case "join":
		if m.LobbyID == "" {
			return false
		}
		c.JoinLobby(relay.LobbyID(m.LobbyID))
	case "leave":
		// The owner's leave tears the lobby down; everyone else just goes.
		snap := c.Snapshot()
		if snap.Active && snap.OwnerID == snap.SelfID {
			c.DestroyLobby()
		} else {
			c.LeaveLobby()
		}
	case "ready":
		c.ToggleReady()
	case "start":
		c.StartGame()
	case "chat":
		if m.Text == "" {
			return false
		}
		c.SendChat(m.Text)
	default:
		return false
	}
	return true
}
