package session

import (
	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

type msg interface{ isMsg() }

// UI-layer commands. None of them carry a reply: callers observe the outcome
// through snapshots and update broadcasts.

type cmdCreate struct {
	vis        relay.Visibility
	name       string
	maxMembers int
}

type cmdJoin struct{ id relay.LobbyID }

type cmdLeave struct{}

type cmdDestroy struct{}

type cmdSetMemberData struct{ key, value string }

type cmdToggleReady struct{}

type cmdStart struct{}

type cmdChat struct{ text string }

// Completions of relay RPCs issued by the loop. The RPC itself runs on a
// spawned goroutine; its result re-enters the inbox so only the loop ever
// touches session state.

type createDone struct {
	lobby relay.Lobby
	name  string
	vis   relay.Visibility
	err   error
}

type joinDone struct {
	id  relay.LobbyID
	err error
}

type relayEvent struct{ ev relay.Event }

type subscribeMsg struct {
	id     string
	outbox chan types.Update
}

type unsubscribeMsg struct{ id string }

type getView struct{ reply chan View }

type shutdownMsg struct{}

func (cmdCreate) isMsg()        {}
func (cmdJoin) isMsg()          {}
func (cmdLeave) isMsg()         {}
func (cmdDestroy) isMsg()       {}
func (cmdSetMemberData) isMsg() {}
func (cmdToggleReady) isMsg()   {}
func (cmdStart) isMsg()         {}
func (cmdChat) isMsg()          {}
func (createDone) isMsg()       {}
func (joinDone) isMsg()         {}
func (relayEvent) isMsg()       {}
func (subscribeMsg) isMsg()     {}
func (unsubscribeMsg) isMsg()   {}
func (getView) isMsg()          {}
func (shutdownMsg) isMsg()      {}

// View reflects coordinator internals without data races; test-only, like a
// state snapshot reply.
type View struct {
	Version    int
	NumSubs    int
	LocalReady bool
	Session    types.SessionSnapshot
	Members    []types.MemberView
}
