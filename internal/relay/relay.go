// Package relay defines the narrow interface to the external
// matchmaking/presence service. The service owns the authoritative lobby
// state; everything here is either a request to it or a push event from it.
package relay

import (
	"context"
	"errors"
)

var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrLobbyFull     = errors.New("lobby full")
	ErrNotJoinable   = errors.New("lobby not joinable")
)

type LobbyID string

type MemberID string

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityFriendsOnly Visibility = "friends"
	VisibilityPrivate     Visibility = "private"
)

// ParseVisibility maps a wire string to a Visibility; empty input means public.
func ParseVisibility(s string) (Visibility, bool) {
	switch s {
	case "", "public":
		return VisibilityPublic, true
	case "friends":
		return VisibilityFriendsOnly, true
	case "private":
		return VisibilityPrivate, true
	default:
		return "", false
	}
}

type Result string

const (
	ResultOK      Result = "ok"
	ResultFailure Result = "failure"
)

type MemberInfo struct {
	ID          MemberID
	DisplayName string
}

// LobbySummary is the relay's cached view of a lobby, used for directory
// listings. Data is the metadata snapshot as of the last refresh.
type LobbySummary struct {
	ID          LobbyID
	Name        string
	MemberCount int
	MaxMembers  int
	Data        map[string]string
}

type ListFilter struct {
	MinSlotsAvailable int
	// DataEqual restricts results to lobbies whose metadata matches every
	// listed key exactly.
	DataEqual map[string]string
}

type FriendPresence struct {
	ID          MemberID
	DisplayName string
	InApp       bool
	Lobby       LobbyID // empty when the friend is not in a lobby
}

// Relay is one participant's connection to the matchmaking service.
// Events() delivers push callbacks: unordered across causes, at least once,
// but never concurrently (a single channel drained by a single consumer).
type Relay interface {
	CreateLobby(ctx context.Context, maxMembers int) (Lobby, error)
	JoinLobby(ctx context.Context, id LobbyID) (Lobby, error)
	ListLobbies(ctx context.Context, filter ListFilter) ([]LobbySummary, error)

	// RequestLobbyData asks the relay to refresh its local metadata cache for
	// a lobby the caller is not in. Completion is asynchronous; read the
	// result later via CachedLobby.
	RequestLobbyData(id LobbyID)
	CachedLobby(id LobbyID) (LobbySummary, bool)

	Friends(ctx context.Context) ([]FriendPresence, error)

	SelfID() MemberID
	SelfName() string

	Events() <-chan Event
}

// Lobby is a handle to a lobby the local member currently occupies (or just
// created). Reads reflect the relay's current authoritative state.
type Lobby interface {
	ID() LobbyID
	OwnerID() MemberID

	// Members returns a snapshot of the current enumeration, not a stream.
	Members() []MemberInfo
	MemberCount() int
	MaxMembers() int

	Data(key string) string
	SetData(key, value string)
	MemberData(id MemberID, key string) string
	SetMemberData(key, value string)

	SendChat(text string)

	SetVisibility(v Visibility)
	SetJoinable(joinable bool)
	Refresh()
	Leave()
}

type Event interface{ isEvent() }

type LobbyCreated struct {
	Result Result
	Lobby  Lobby
}

type LobbyEntered struct {
	Lobby Lobby
}

type MemberJoined struct {
	LobbyID LobbyID
	Member  MemberInfo
}

type MemberLeft struct {
	LobbyID LobbyID
	Member  MemberInfo
}

type MemberDisconnected struct {
	LobbyID LobbyID
	Member  MemberInfo
}

type LobbyDataChanged struct {
	LobbyID LobbyID
}

type ChatMessage struct {
	LobbyID LobbyID
	Member  MemberInfo
	Text    string
}

func (LobbyCreated) isEvent()       {}
func (LobbyEntered) isEvent()       {}
func (MemberJoined) isEvent()       {}
func (MemberLeft) isEvent()         {}
func (MemberDisconnected) isEvent() {}
func (LobbyDataChanged) isEvent()   {}
func (ChatMessage) isEvent()        {}
