package types

// SessionSnapshot is the read-only view of the one active lobby session.
// Active=false means "no lobby"; the other fields are zero then.
type SessionSnapshot struct {
	Active     bool   `json:"active"`
	LobbyID    string `json:"lobby_id,omitempty"`
	Name       string `json:"name,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	SelfID     string `json:"self_id"`
	SelfReady  bool   `json:"self_ready"`
	Started    bool   `json:"started"`
	Closing    bool   `json:"closing"`
	AllReady   bool   `json:"all_ready"`
	CanStart   bool   `json:"can_start"`
	MaxMembers int    `json:"max_members,omitempty"`
}

type MemberView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Ready       bool   `json:"ready"`
	IsOwner     bool   `json:"is_owner"`
}

type LobbySummary struct {
	LobbyID     string `json:"lobby_id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	MaxMembers  int    `json:"max_members"`
}

type ChatEntry struct {
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

// Update is one change notification: a full snapshot plus, for chat traffic,
// the message that triggered it.
type Update struct {
	Version int             `json:"version"`
	Session SessionSnapshot `json:"session"`
	Members []MemberView    `json:"members"`
	Chat    *ChatEntry      `json:"chat,omitempty"`
}

type ClientMessage struct {
	Type       string `json:"type"` // "create" | "join" | "leave" | "ready" | "start" | "chat"
	LobbyID    string `json:"lobby_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	MaxMembers int    `json:"max_members,omitempty"`
	Text       string `json:"text,omitempty"`
}

type ServerMessage struct {
	Type   string  `json:"type"` // "Update" | "Error"
	Update *Update `json:"update,omitempty"`
	Error  string  `json:"error,omitempty"`
}
