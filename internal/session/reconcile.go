package session

import (
	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

// memberSource is the slice of the lobby handle a reconcile pass needs.
type memberSource interface {
	Members() []relay.MemberInfo
	OwnerID() relay.MemberID
	MemberData(id relay.MemberID, key string) string
}

// reconcilePass re-derives the member cache from a fresh snapshot of the
// handle's enumeration. Removals happen before additions and updates, cache
// insertion order is preserved, and running it again against the same
// snapshot changes nothing.
func reconcilePass(h memberSource, cache []types.MemberView) []types.MemberView {
	snap := h.Members()
	present := make(map[string]struct{}, len(snap))
	for _, mi := range snap {
		present[string(mi.ID)] = struct{}{}
	}

	next := make([]types.MemberView, 0, len(snap))
	for _, m := range cache {
		if _, ok := present[m.ID]; ok {
			next = append(next, m)
		}
	}

	owner := string(h.OwnerID())
	for _, mi := range snap {
		idx := indexOf(next, string(mi.ID))
		if idx < 0 {
			next = append(next, types.MemberView{ID: string(mi.ID)})
			idx = len(next) - 1
		}
		next[idx].DisplayName = mi.DisplayName
		next[idx].Ready = h.MemberData(mi.ID, keyReady) == "true"
		next[idx].IsOwner = string(mi.ID) == owner
	}
	return next
}

func indexOf(members []types.MemberView, id string) int {
	for i, m := range members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// allReady reports whether every non-owner member is ready. The owner's own
// flag does not gate the start: a lobby holding only the owner counts as
// ready.
func allReady(members []types.MemberView) bool {
	for _, m := range members {
		if !m.IsOwner && !m.Ready {
			return false
		}
	}
	return true
}
