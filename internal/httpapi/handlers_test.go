package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/directory"
	"github.com/mliddell/lobby-coordinator/internal/relay/memrelay"
	"github.com/mliddell/lobby-coordinator/internal/session"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *memrelay.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := memrelay.NewHub(nil)
	client := hub.NewClient("alice")
	coord := session.New(ctx, client, nil, nil)
	dir := directory.New(client, 50*time.Millisecond, nil)

	srv := httptest.NewServer(SetupRoutes(coord, dir, 4, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, hub
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getLobby(t *testing.T, base string) types.SessionSnapshot {
	t.Helper()
	resp, err := http.Get(base + "/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap types.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateLobby_AcceptedThenActive(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/lobby", map[string]any{
		"name":       "Game Night",
		"visibility": "public",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		snap := getLobby(t, srv.URL)
		return snap.Active && snap.Name == "Game Night"
	}, time.Second, 10*time.Millisecond, "session should become active with its name")

	require.Equal(t, 4, getLobby(t, srv.URL).MaxMembers)
}

func TestCreateLobby_DefaultsNameToOwner(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/lobby", map[string]any{})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		snap := getLobby(t, srv.URL)
		return snap.Active && snap.Name == "alice's Lobby"
	}, time.Second, 10*time.Millisecond)
}

func TestCreateLobby_RejectsUnknownVisibility(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/lobby", map[string]any{
		"name":       "Game Night",
		"visibility": "invite-only",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJoinLobby_RequiresLobbyID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/lobby/join", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublicLobbies_ListsActiveLobby(t *testing.T) {
	srv, _ := newTestServer(t)

	postJSON(t, srv.URL+"/lobby", map[string]any{
		"name":       "Game Night",
		"visibility": "public",
	})
	require.Eventually(t, func() bool {
		snap := getLobby(t, srv.URL)
		return snap.Active && snap.Name == "Game Night"
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/lobbies/public")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []types.LobbySummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	require.Equal(t, "Game Night", out[0].Name)
	require.Equal(t, 1, out[0].MemberCount)
}

func TestLeave_NoSessionStillNoContent(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/lobby/leave", map[string]any{})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.False(t, getLobby(t, srv.URL).Active)
}
