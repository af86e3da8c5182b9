package memrelay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/relay"
)

// Client is one member's connection to the hub. It implements relay.Relay.
type Client struct {
	hub    *Hub
	id     relay.MemberID
	name   string
	events chan relay.Event

	// currentLobby is guarded by hub.mu, not the client mutex.
	currentLobby relay.LobbyID

	mu    sync.Mutex
	cache map[relay.LobbyID]relay.LobbySummary
}

var _ relay.Relay = (*Client)(nil)

func (c *Client) SelfID() relay.MemberID { return c.id }

func (c *Client) SelfName() string { return c.name }

func (c *Client) Events() <-chan relay.Event { return c.events }

func (c *Client) CreateLobby(ctx context.Context, maxMembers int) (relay.Lobby, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := c.hub.createLobby(c, maxMembers)
	return &handle{c: c, id: id}, nil
}

func (c *Client) JoinLobby(ctx context.Context, id relay.LobbyID) (relay.Lobby, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.hub.joinLobby(c, id); err != nil {
		return nil, err
	}
	return &handle{c: c, id: id}, nil
}

func (c *Client) ListLobbies(ctx context.Context, filter relay.ListFilter) ([]relay.LobbySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := c.hub.listLobbies(filter)
	c.mu.Lock()
	for _, s := range out {
		c.cache[s.ID] = s
	}
	c.mu.Unlock()
	return out, nil
}

// RequestLobbyData refreshes the client's cached summary asynchronously,
// after the hub's configured delay, the way the real service's metadata
// resync lands some time after the request.
func (c *Client) RequestLobbyData(id relay.LobbyID) {
	c.hub.mu.RLock()
	delay := c.hub.dataDelay
	c.hub.mu.RUnlock()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		s, ok := c.hub.summary(id)
		if !ok {
			return
		}
		c.mu.Lock()
		c.cache[id] = s
		c.mu.Unlock()
		c.push(relay.LobbyDataChanged{LobbyID: id})
	}()
}

func (c *Client) CachedLobby(id relay.LobbyID) (relay.LobbySummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cache[id]
	return s, ok
}

func (c *Client) Friends(ctx context.Context) ([]relay.FriendPresence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.hub.friends(c.id), nil
}

// Inject delivers an arbitrary event to this client, as if the service had
// pushed it. Tests use it to reproduce at-least-once duplicate delivery.
func (c *Client) Inject(ev relay.Event) { c.push(ev) }

func (c *Client) push(ev relay.Event) {
	select {
	case c.events <- ev:
	default:
		c.hub.log.Warn("event dropped: client backlog full",
			zap.String("member", string(c.id)))
	}
}

// handle is a lobby handle bound to one client; reads go straight to the
// hub's authoritative state.
type handle struct {
	c  *Client
	id relay.LobbyID
}

var _ relay.Lobby = (*handle)(nil)

func (hd *handle) ID() relay.LobbyID { return hd.id }

func (hd *handle) OwnerID() relay.MemberID {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ls, ok := h.lobbies[hd.id]; ok {
		return ls.owner
	}
	return ""
}

func (hd *handle) Members() []relay.MemberInfo {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	ls, ok := h.lobbies[hd.id]
	if !ok {
		return nil
	}
	out := make([]relay.MemberInfo, 0, len(ls.members))
	for _, mid := range ls.members {
		out = append(out, relay.MemberInfo{ID: mid, DisplayName: ls.names[mid]})
	}
	return out
}

func (hd *handle) MemberCount() int {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ls, ok := h.lobbies[hd.id]; ok {
		return len(ls.members)
	}
	return 0
}

func (hd *handle) MaxMembers() int {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ls, ok := h.lobbies[hd.id]; ok {
		return ls.maxMembers
	}
	return 0
}

func (hd *handle) Data(key string) string {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ls, ok := h.lobbies[hd.id]; ok {
		return ls.data[key]
	}
	return ""
}

func (hd *handle) SetData(key, value string) {
	hd.c.hub.setLobbyData(hd.c.id, hd.id, key, value)
}

func (hd *handle) MemberData(id relay.MemberID, key string) string {
	h := hd.c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ls, ok := h.lobbies[hd.id]; ok {
		return ls.memberData[id][key]
	}
	return ""
}

func (hd *handle) SetMemberData(key, value string) {
	hd.c.hub.setMemberData(hd.c.id, hd.id, key, value)
}

func (hd *handle) SendChat(text string) {
	hd.c.hub.sendChat(hd.c, hd.id, text)
}

func (hd *handle) SetVisibility(v relay.Visibility) {
	h := hd.c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.lobbies[hd.id]; ok && ls.owner == hd.c.id {
		ls.visibility = v
	}
}

func (hd *handle) SetJoinable(joinable bool) {
	h := hd.c.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.lobbies[hd.id]; ok && ls.owner == hd.c.id {
		ls.joinable = joinable
	}
}

func (hd *handle) Refresh() {
	hd.c.RequestLobbyData(hd.id)
}

func (hd *handle) Leave() {
	hd.c.hub.leaveLobby(hd.c, hd.id)
}
