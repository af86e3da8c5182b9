package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/internal/relay/memrelay"
)

func makeLobby(t *testing.T, hub *memrelay.Hub, owner, name, started string) relay.Lobby {
	t.Helper()
	c := hub.NewClient(owner)
	lb, err := c.CreateLobby(context.Background(), 4)
	require.NoError(t, err)
	if name != "" {
		lb.SetData("name", name)
	}
	lb.SetData("started", started)
	lb.SetVisibility(relay.VisibilityPublic)
	lb.SetJoinable(true)
	return lb
}

func TestPublicLobbies_FiltersStartedAndNameless(t *testing.T) {
	hub := memrelay.NewHub(nil)
	makeLobby(t, hub, "alice", "Open Lobby", "false")
	makeLobby(t, hub, "bob", "Running Lobby", "true")
	makeLobby(t, hub, "carol", "", "false")

	d := New(hub.NewClient("observer"), 50*time.Millisecond, nil)
	out, err := d.PublicLobbies(context.Background())
	require.NoError(t, err)

	require.Len(t, out, 1)
	require.Equal(t, "Open Lobby", out[0].Name)
	require.Equal(t, 1, out[0].MemberCount)
	require.Equal(t, 4, out[0].MaxMembers)
}

func TestPublicLobbies_ResultsReplacedPerQuery(t *testing.T) {
	hub := memrelay.NewHub(nil)
	makeLobby(t, hub, "alice", "First", "false")

	d := New(hub.NewClient("observer"), 50*time.Millisecond, nil)
	first, err := d.PublicLobbies(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	makeLobby(t, hub, "bob", "Second", "false")
	second, err := d.PublicLobbies(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)

	// The stored set is the latest query's result, never a mix.
	require.Equal(t, second, d.Results())
}

func TestFriendLobbies_RefreshLandsWithinWait(t *testing.T) {
	hub := memrelay.NewHub(nil)
	hub.SetDataDelay(10 * time.Millisecond)
	makeLobby(t, hub, "alice", "Friend Lobby", "false")

	d := New(hub.NewClient("observer"), 150*time.Millisecond, nil)
	out, err := d.FriendLobbies(context.Background())
	require.NoError(t, err)

	require.Len(t, out, 1)
	require.Equal(t, "Friend Lobby", out[0].Name)
}

func TestFriendLobbies_MissedRefreshLooksLikeEmpty(t *testing.T) {
	hub := memrelay.NewHub(nil)
	hub.SetDataDelay(500 * time.Millisecond)
	makeLobby(t, hub, "alice", "Friend Lobby", "false")

	d := New(hub.NewClient("observer"), 30*time.Millisecond, nil)
	out, err := d.FriendLobbies(context.Background())

	// A refresh that misses the window is indistinguishable from no friends
	// in lobbies: empty list, no error.
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestFriendLobbies_ExcludesStarted(t *testing.T) {
	hub := memrelay.NewHub(nil)
	makeLobby(t, hub, "alice", "Running Lobby", "true")

	d := New(hub.NewClient("observer"), 50*time.Millisecond, nil)
	out, err := d.FriendLobbies(context.Background())
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestFriendLobbies_NoFriendsInLobbies(t *testing.T) {
	hub := memrelay.NewHub(nil)
	hub.NewClient("idle-friend")

	d := New(hub.NewClient("observer"), 50*time.Millisecond, nil)
	out, err := d.FriendLobbies(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestFriendLobbies_ContextCancelledDuringWait(t *testing.T) {
	hub := memrelay.NewHub(nil)
	makeLobby(t, hub, "alice", "Friend Lobby", "false")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	d := New(hub.NewClient("observer"), time.Second, nil)
	_, err := d.FriendLobbies(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
