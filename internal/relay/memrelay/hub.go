// Package memrelay is an in-memory relay implementation. The dev server and
// the tests run against it; a production build would swap in a client for the
// real matchmaking service behind the same relay interfaces.
package memrelay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/relay"
)

// Hub owns every lobby and fans push events out to connected clients.
type Hub struct {
	log       *zap.Logger
	dataDelay time.Duration

	mu      sync.RWMutex
	lobbies map[relay.LobbyID]*lobbyState
	clients map[relay.MemberID]*Client
	leaves  map[relay.LobbyID]map[relay.MemberID]int
}

type lobbyState struct {
	id         relay.LobbyID
	owner      relay.MemberID
	maxMembers int
	visibility relay.Visibility
	joinable   bool
	data       map[string]string
	memberData map[relay.MemberID]map[string]string
	members    []relay.MemberID // join order
	names      map[relay.MemberID]string
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log.Named("memrelay"),
		lobbies: make(map[relay.LobbyID]*lobbyState),
		clients: make(map[relay.MemberID]*Client),
		leaves:  make(map[relay.LobbyID]map[relay.MemberID]int),
	}
}

// SetDataDelay sets an artificial latency on RequestLobbyData completions so
// tests can exercise the directory's fixed-wait refresh window.
func (h *Hub) SetDataDelay(d time.Duration) {
	h.mu.Lock()
	h.dataDelay = d
	h.mu.Unlock()
}

// NewClient connects a new member to the hub.
func (h *Hub) NewClient(name string) *Client {
	c := &Client{
		hub:    h,
		id:     relay.MemberID(uuid.NewString()),
		name:   name,
		events: make(chan relay.Event, 128),
		cache:  make(map[relay.LobbyID]relay.LobbySummary),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

// DropClient simulates a member losing its connection: it is removed from its
// lobby and the remaining members see a MemberDisconnected event.
func (h *Hub) DropClient(id relay.MemberID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	if c.currentLobby != "" {
		h.removeMemberLocked(c.currentLobby, id, false)
	}
}

// LeaveCount reports how many times a member has left a lobby. Test
// introspection for the exactly-once teardown property.
func (h *Hub) LeaveCount(lobby relay.LobbyID, member relay.MemberID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.leaves[lobby][member]
}

func (h *Hub) createLobby(c *Client, maxMembers int) relay.LobbyID {
	h.mu.Lock()
	defer h.mu.Unlock()

	ls := &lobbyState{
		id:         relay.LobbyID(uuid.NewString()),
		owner:      c.id,
		maxMembers: maxMembers,
		visibility: relay.VisibilityPrivate,
		joinable:   true,
		data:       make(map[string]string),
		memberData: make(map[relay.MemberID]map[string]string),
		members:    []relay.MemberID{c.id},
		names:      map[relay.MemberID]string{c.id: c.name},
	}
	h.lobbies[ls.id] = ls
	c.currentLobby = ls.id

	hd := &handle{c: c, id: ls.id}
	c.push(relay.LobbyCreated{Result: relay.ResultOK, Lobby: hd})
	c.push(relay.LobbyEntered{Lobby: hd})
	h.log.Debug("lobby created",
		zap.String("lobby", string(ls.id)), zap.String("owner", string(c.id)))
	return ls.id
}

func (h *Hub) joinLobby(c *Client, id relay.LobbyID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ls, ok := h.lobbies[id]
	if !ok {
		return relay.ErrLobbyNotFound
	}
	if !ls.joinable {
		return relay.ErrNotJoinable
	}
	if len(ls.members) >= ls.maxMembers {
		return relay.ErrLobbyFull
	}

	ls.members = append(ls.members, c.id)
	ls.names[c.id] = c.name
	c.currentLobby = id

	joined := relay.MemberInfo{ID: c.id, DisplayName: c.name}
	for _, mid := range ls.members {
		other, ok := h.clients[mid]
		if !ok || mid == c.id {
			continue
		}
		other.push(relay.MemberJoined{LobbyID: id, Member: joined})
	}
	c.push(relay.LobbyEntered{Lobby: &handle{c: c, id: id}})
	return nil
}

func (h *Hub) leaveLobby(c *Client, id relay.LobbyID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMemberLocked(id, c.id, true)
}

func (h *Hub) removeMemberLocked(id relay.LobbyID, member relay.MemberID, clean bool) {
	ls, ok := h.lobbies[id]
	if !ok {
		return
	}
	idx := -1
	for i, mid := range ls.members {
		if mid == member {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	ls.members = append(ls.members[:idx], ls.members[idx+1:]...)
	left := relay.MemberInfo{ID: member, DisplayName: ls.names[member]}
	delete(ls.memberData, member)
	delete(ls.names, member)
	if c, ok := h.clients[member]; ok && c.currentLobby == id {
		c.currentLobby = ""
	}

	if clean {
		if h.leaves[id] == nil {
			h.leaves[id] = make(map[relay.MemberID]int)
		}
		h.leaves[id][member]++
	}

	if len(ls.members) == 0 {
		delete(h.lobbies, id)
		return
	}
	// The relay decides ownership: the longest-tenured member inherits.
	if ls.owner == member {
		ls.owner = ls.members[0]
	}
	for _, mid := range ls.members {
		other, ok := h.clients[mid]
		if !ok {
			continue
		}
		if clean {
			other.push(relay.MemberLeft{LobbyID: id, Member: left})
		} else {
			other.push(relay.MemberDisconnected{LobbyID: id, Member: left})
		}
	}
}

func (h *Hub) setLobbyData(caller relay.MemberID, id relay.LobbyID, key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls, ok := h.lobbies[id]
	if !ok {
		return
	}
	if ls.owner != caller {
		h.log.Debug("lobby data write ignored: not owner",
			zap.String("lobby", string(id)), zap.String("member", string(caller)))
		return
	}
	ls.data[key] = value
	h.broadcastDataChangedLocked(ls)
}

func (h *Hub) setMemberData(caller relay.MemberID, id relay.LobbyID, key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls, ok := h.lobbies[id]
	if !ok || !ls.has(caller) {
		return
	}
	md := ls.memberData[caller]
	if md == nil {
		md = make(map[string]string)
		ls.memberData[caller] = md
	}
	md[key] = value
	h.broadcastDataChangedLocked(ls)
}

func (h *Hub) broadcastDataChangedLocked(ls *lobbyState) {
	for _, mid := range ls.members {
		if c, ok := h.clients[mid]; ok {
			c.push(relay.LobbyDataChanged{LobbyID: ls.id})
		}
	}
}

func (h *Hub) sendChat(caller *Client, id relay.LobbyID, text string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ls, ok := h.lobbies[id]
	if !ok || !ls.has(caller.id) {
		return
	}
	msg := relay.ChatMessage{
		LobbyID: id,
		Member:  relay.MemberInfo{ID: caller.id, DisplayName: caller.name},
		Text:    text,
	}
	for _, mid := range ls.members {
		if c, ok := h.clients[mid]; ok {
			c.push(msg)
		}
	}
}

func (h *Hub) listLobbies(filter relay.ListFilter) []relay.LobbySummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []relay.LobbySummary
	for _, ls := range h.lobbies {
		if ls.visibility != relay.VisibilityPublic || !ls.joinable {
			continue
		}
		if ls.maxMembers-len(ls.members) < filter.MinSlotsAvailable {
			continue
		}
		match := true
		for k, v := range filter.DataEqual {
			if ls.data[k] != v {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		out = append(out, ls.summaryLocked())
	}
	return out
}

func (h *Hub) summary(id relay.LobbyID) (relay.LobbySummary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ls, ok := h.lobbies[id]
	if !ok {
		return relay.LobbySummary{}, false
	}
	return ls.summaryLocked(), true
}

func (h *Hub) friends(self relay.MemberID) []relay.FriendPresence {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Everyone on the hub is a friend; good enough for a fake.
	out := make([]relay.FriendPresence, 0, len(h.clients))
	for id, c := range h.clients {
		if id == self {
			continue
		}
		out = append(out, relay.FriendPresence{
			ID:          id,
			DisplayName: c.name,
			InApp:       true,
			Lobby:       c.currentLobby,
		})
	}
	return out
}

func (ls *lobbyState) has(id relay.MemberID) bool {
	for _, mid := range ls.members {
		if mid == id {
			return true
		}
	}
	return false
}

func (ls *lobbyState) summaryLocked() relay.LobbySummary {
	data := make(map[string]string, len(ls.data))
	for k, v := range ls.data {
		data[k] = v
	}
	return relay.LobbySummary{
		ID:          ls.id,
		Name:        ls.data["name"],
		MemberCount: len(ls.members),
		MaxMembers:  ls.maxMembers,
		Data:        data,
	}
}
