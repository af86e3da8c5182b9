// Package directory produces displayable lobby listings from the relay's
// public search and from friend presence.
package directory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

// DefaultFriendRefreshWait is how long a friend query waits for requested
// metadata refreshes to land before reading the cache. A heuristic, not a
// guarantee: the relay has no synchronous refresh primitive.
const DefaultFriendRefreshWait = 200 * time.Millisecond

type Directory struct {
	relay relay.Relay
	wait  time.Duration
	log   *zap.Logger

	mu      sync.Mutex
	results []types.LobbySummary
}

func New(rl relay.Relay, wait time.Duration, log *zap.Logger) *Directory {
	if wait <= 0 {
		wait = DefaultFriendRefreshWait
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{relay: rl, wait: wait, log: log.Named("directory")}
}

// PublicLobbies lists joinable public lobbies that have not started yet.
// Nameless lobbies are treated as not yet initialized and dropped.
func (d *Directory) PublicLobbies(ctx context.Context) ([]types.LobbySummary, error) {
	d.invalidate()
	raw, err := d.relay.ListLobbies(ctx, relay.ListFilter{
		MinSlotsAvailable: 1,
		DataEqual:         map[string]string{"started": "false"},
	})
	if err != nil {
		d.log.Error("public lobby list failed", zap.Error(err))
		return nil, err
	}
	out := summarize(raw)
	d.store(out)
	return out, nil
}

// FriendLobbies lists lobbies occupied by in-app friends. It requests a
// metadata refresh per lobby, waits one fixed delay for the async refreshes
// to land, then reads whatever is cached. An empty result and a refresh that
// missed the window look the same: an empty list.
func (d *Directory) FriendLobbies(ctx context.Context) ([]types.LobbySummary, error) {
	d.invalidate()
	friends, err := d.relay.Friends(ctx)
	if err != nil {
		d.log.Error("friend presence query failed", zap.Error(err))
		return nil, err
	}

	seen := make(map[relay.LobbyID]struct{})
	var ids []relay.LobbyID
	for _, f := range friends {
		if !f.InApp || f.Lobby == "" {
			continue
		}
		if _, ok := seen[f.Lobby]; ok {
			continue
		}
		seen[f.Lobby] = struct{}{}
		ids = append(ids, f.Lobby)
	}

	out := []types.LobbySummary{}
	if len(ids) == 0 {
		d.store(out)
		return out, nil
	}

	for _, id := range ids {
		d.relay.RequestLobbyData(id)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(d.wait):
	}

	var raw []relay.LobbySummary
	for _, id := range ids {
		s, ok := d.relay.CachedLobby(id)
		if !ok {
			// Refresh did not land within the wait; skip silently.
			continue
		}
		if s.Data["started"] == "true" {
			continue
		}
		raw = append(raw, s)
	}
	out = summarize(raw)
	d.store(out)
	return out, nil
}

// Results returns the last listing. It is replaced wholesale on every query;
// stale entries are never mixed with fresh ones.
func (d *Directory) Results() []types.LobbySummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.results
}

func (d *Directory) invalidate() {
	d.mu.Lock()
	d.results = nil
	d.mu.Unlock()
}

func (d *Directory) store(out []types.LobbySummary) {
	d.mu.Lock()
	d.results = out
	d.mu.Unlock()
}

func summarize(raw []relay.LobbySummary) []types.LobbySummary {
	out := []types.LobbySummary{}
	for _, s := range raw {
		if s.Name == "" {
			continue
		}
		out = append(out, types.LobbySummary{
			LobbyID:     string(s.ID),
			Name:        s.Name,
			MemberCount: s.MemberCount,
			MaxMembers:  s.MaxMembers,
		})
	}
	return out
}
