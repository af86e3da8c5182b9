// Package session owns the one active lobby membership per coordinator and
// turns the relay's unordered, at-least-once event stream into a consistent
// local view of the lobby: members, readiness, ownership, teardown.
package session

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/mliddell/lobby-coordinator/internal/relay"
	"github.com/mliddell/lobby-coordinator/pkg/types"
)

// Lobby metadata conventions shared by every member.
const (
	keyName    = "name"
	keyReady   = "ready"
	keyStarted = "started"
	keyClosing = "closing"
)

// Starter is the transport/session collaborator asked to load the game for
// this member once the lobby starts.
type Starter interface {
	StartGame(ctx context.Context, lobby relay.LobbyID, members []relay.MemberID) error
}

type StarterFunc func(ctx context.Context, lobby relay.LobbyID, members []relay.MemberID) error

func (f StarterFunc) StartGame(ctx context.Context, lobby relay.LobbyID, members []relay.MemberID) error {
	return f(ctx, lobby, members)
}

// activeSession is the coordinator's cached view of the current session.
// nil means "no lobby".
type activeSession struct {
	handle  relay.Lobby
	id      relay.LobbyID
	name    string
	started bool
	closing bool
}

// Coordinator is an actor: one goroutine drains the inbox, so command
// handling, RPC completions and relay events never interleave. Relay RPCs run
// on spawned goroutines and complete back through the inbox, which is why a
// completion may find the session gone or replaced and must tolerate it.
type Coordinator struct {
	inbox   chan msg
	relay   relay.Relay
	starter Starter
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	version int
	sess    *activeSession
	members []types.MemberView
	ready   bool // local optimistic flag; aggregation reads remote data only
	subs    map[string]chan types.Update
}

func New(parent context.Context, rl relay.Relay, st Starter, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if st == nil {
		st = StarterFunc(func(context.Context, relay.LobbyID, []relay.MemberID) error { return nil })
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:   make(chan msg, 64),
		relay:   rl,
		starter: st,
		log:     log.Named("session"),
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[string]chan types.Update),
	}
	go c.pump()
	go c.loop()
	return c
}

// CreateLobby asks the relay for a new lobby. Asynchronous, no direct return:
// on failure the session simply stays unset.
func (c *Coordinator) CreateLobby(vis relay.Visibility, name string, maxMembers int) {
	c.send(cmdCreate{vis: vis, name: name, maxMembers: maxMembers})
}

func (c *Coordinator) JoinLobby(id relay.LobbyID) { c.send(cmdJoin{id: id}) }

// LeaveLobby is idempotent: with no active session it is a no-op.
func (c *Coordinator) LeaveLobby() { c.send(cmdLeave{}) }

// DestroyLobby is owner-only; a non-owner call is ignored. The closing signal
// is written before leaving so remaining members observe it.
func (c *Coordinator) DestroyLobby() { c.send(cmdDestroy{}) }

func (c *Coordinator) SetMemberData(key, value string) {
	c.send(cmdSetMemberData{key: key, value: value})
}

func (c *Coordinator) ToggleReady() { c.send(cmdToggleReady{}) }

func (c *Coordinator) StartGame() { c.send(cmdStart{}) }

func (c *Coordinator) SendChat(text string) { c.send(cmdChat{text: text}) }

func (c *Coordinator) Subscribe(id string, outbox chan types.Update) {
	c.send(subscribeMsg{id: id, outbox: outbox})
}

func (c *Coordinator) Unsubscribe(id string) { c.send(unsubscribeMsg{id: id}) }

func (c *Coordinator) Shutdown() { c.send(shutdownMsg{}) }

// SelfName is the local member's display name as the relay reports it.
func (c *Coordinator) SelfName() string { return c.relay.SelfName() }

// Snapshot returns the current session view. Zero value after shutdown.
func (c *Coordinator) Snapshot() types.SessionSnapshot {
	return c.view().Session
}

// Members returns the cached member list in cache-insertion order.
func (c *Coordinator) Members() []types.MemberView {
	m := c.view().Members
	if m == nil {
		m = []types.MemberView{}
	}
	return m
}

func (c *Coordinator) view() View {
	reply := make(chan View, 1)
	select {
	case c.inbox <- getView{reply: reply}:
	case <-c.ctx.Done():
		return View{}
	}
	select {
	case v := <-reply:
		return v
	case <-c.ctx.Done():
		return View{}
	}
}

func (c *Coordinator) send(m msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

// pump forwards relay events into the inbox so the loop sees commands, RPC
// completions and pushes as one FIFO stream.
func (c *Coordinator) pump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.relay.Events():
			if !ok {
				return
			}
			c.send(relayEvent{ev: ev})
		}
	}
}

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch m := m.(type) {
			case cmdCreate:
				go func() {
					lb, err := c.relay.CreateLobby(c.ctx, m.maxMembers)
					c.send(createDone{lobby: lb, name: m.name, vis: m.vis, err: err})
				}()

			case cmdJoin:
				go func() {
					_, err := c.relay.JoinLobby(c.ctx, m.id)
					c.send(joinDone{id: m.id, err: err})
				}()

			case createDone:
				c.handleCreateDone(m)

			case joinDone:
				if m.err != nil {
					c.log.Error("lobby join failed",
						zap.String("lobby", string(m.id)), zap.Error(m.err))
				}

			case cmdLeave:
				c.leaveNow()

			case cmdDestroy:
				c.destroy()

			case cmdSetMemberData:
				if c.sess != nil {
					c.sess.handle.SetMemberData(m.key, m.value)
				}

			case cmdToggleReady:
				if c.sess != nil {
					c.ready = !c.ready
					c.sess.handle.SetMemberData(keyReady, strconv.FormatBool(c.ready))
				}

			case cmdStart:
				c.start()

			case cmdChat:
				if c.sess != nil {
					c.sess.handle.SendChat(m.text)
				}

			case relayEvent:
				c.handleEvent(m.ev)

			case subscribeMsg:
				c.subs[m.id] = m.outbox
				m.outbox <- types.Update{
					Version: c.version,
					Session: c.snapshot(),
					Members: cloneMembers(c.members),
				}

			case unsubscribeMsg:
				if ch, ok := c.subs[m.id]; ok {
					close(ch)
					delete(c.subs, m.id)
				}

			case getView:
				m.reply <- View{
					Version:    c.version,
					NumSubs:    len(c.subs),
					LocalReady: c.ready,
					Session:    c.snapshot(),
					Members:    cloneMembers(c.members),
				}

			case shutdownMsg:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Coordinator) handleCreateDone(m createDone) {
	if m.err != nil {
		c.log.Error("lobby create failed", zap.Error(m.err))
		return
	}
	// Initial metadata before anyone can see the lobby in a listing. The
	// flags go first: directory queries drop nameless lobbies, so once the
	// name is visible the flags already are. The session itself is set by
	// the Entered event, same as a join.
	m.lobby.SetData(keyStarted, "false")
	m.lobby.SetData(keyClosing, "false")
	m.lobby.SetData(keyName, m.name)
	m.lobby.SetVisibility(m.vis)
	m.lobby.SetJoinable(true)
	c.log.Info("lobby created",
		zap.String("lobby", string(m.lobby.ID())), zap.String("name", m.name))
}

func (c *Coordinator) handleEvent(ev relay.Event) {
	switch ev := ev.(type) {
	case relay.LobbyCreated:
		if ev.Result != relay.ResultOK {
			c.log.Error("lobby create rejected", zap.String("result", string(ev.Result)))
		}

	case relay.LobbyEntered:
		c.entered(ev.Lobby)

	case relay.MemberJoined:
		c.memberChurn(ev.LobbyID)

	case relay.MemberLeft:
		c.memberChurn(ev.LobbyID)

	case relay.MemberDisconnected:
		c.memberChurn(ev.LobbyID)

	case relay.LobbyDataChanged:
		c.dataChanged(ev.LobbyID)

	case relay.ChatMessage:
		if c.sess != nil && c.sess.id == ev.LobbyID {
			c.publish(&types.ChatEntry{
				SenderID:   string(ev.Member.ID),
				SenderName: ev.Member.DisplayName,
				Text:       ev.Text,
			})
		}
	}
}

// entered is the single point where a session becomes active, for created and
// joined lobbies alike.
func (c *Coordinator) entered(h relay.Lobby) {
	c.sess = &activeSession{
		handle:  h,
		id:      h.ID(),
		name:    h.Data(keyName),
		started: h.Data(keyStarted) == "true",
	}
	c.ready = false
	h.SetMemberData(keyReady, "false")
	c.members = reconcilePass(h, nil)
	c.log.Info("lobby entered",
		zap.String("lobby", string(c.sess.id)), zap.String("name", c.sess.name))
	c.publish(nil)
}

func (c *Coordinator) memberChurn(id relay.LobbyID) {
	if c.sess == nil || c.sess.id != id {
		return
	}
	// Member churn during teardown is noise; the closing signal already told
	// everyone to go.
	if c.sess.handle.Data(keyClosing) == "true" {
		c.sess.closing = true
		return
	}
	c.members = reconcilePass(c.sess.handle, c.members)
	c.publish(nil)
}

func (c *Coordinator) dataChanged(id relay.LobbyID) {
	if c.sess == nil || c.sess.id != id {
		return
	}
	if c.sess.handle.Data(keyClosing) == "true" {
		// Leave unconditionally. The closing owner already tore its session
		// down before the signal lands here, and the relay may have promoted
		// us to owner in the meantime, so checking ownership would strand the
		// promoted member in the dying lobby.
		c.sess.closing = true
		c.log.Info("owner closed the lobby, leaving",
			zap.String("lobby", string(id)))
		c.leaveNow()
		return
	}

	c.sess.name = c.sess.handle.Data(keyName)
	wasStarted := c.sess.started
	c.sess.started = c.sess.handle.Data(keyStarted) == "true"
	c.members = reconcilePass(c.sess.handle, c.members)
	if c.sess.started && !wasStarted && c.relay.SelfID() != c.sess.handle.OwnerID() {
		c.fireStarter()
	}
	c.publish(nil)
}

func (c *Coordinator) leaveNow() {
	if c.sess == nil {
		return
	}
	id := c.sess.id
	c.sess.handle.Leave()
	c.sess = nil
	c.members = nil
	c.ready = false
	c.log.Info("left lobby", zap.String("lobby", string(id)))
	c.publish(nil)
}

func (c *Coordinator) destroy() {
	if c.sess == nil {
		return
	}
	if c.relay.SelfID() != c.sess.handle.OwnerID() {
		c.log.Debug("destroy ignored: not owner", zap.String("lobby", string(c.sess.id)))
		return
	}
	// Closing goes out before the leave so members still subscribed to data
	// changes observe it.
	c.sess.handle.SetData(keyClosing, "true")
	c.sess.closing = true
	c.leaveNow()
}

func (c *Coordinator) start() {
	if c.sess == nil || c.sess.started {
		return
	}
	if c.relay.SelfID() != c.sess.handle.OwnerID() {
		c.log.Debug("start ignored: not owner", zap.String("lobby", string(c.sess.id)))
		return
	}
	if !allReady(c.members) {
		c.log.Debug("start ignored: not all ready", zap.String("lobby", string(c.sess.id)))
		return
	}
	c.sess.handle.SetJoinable(false)
	c.sess.handle.SetData(keyStarted, "true")
	c.sess.started = true
	c.fireStarter()
	c.publish(nil)
}

func (c *Coordinator) fireStarter() {
	ids := make([]relay.MemberID, 0, len(c.members))
	for _, m := range c.members {
		ids = append(ids, relay.MemberID(m.ID))
	}
	if err := c.starter.StartGame(c.ctx, c.sess.id, ids); err != nil {
		c.log.Error("game start hook failed",
			zap.String("lobby", string(c.sess.id)), zap.Error(err))
	}
}

func (c *Coordinator) snapshot() types.SessionSnapshot {
	s := types.SessionSnapshot{
		SelfID:    string(c.relay.SelfID()),
		SelfReady: c.ready,
	}
	if c.sess == nil {
		return s
	}
	s.Active = true
	s.LobbyID = string(c.sess.id)
	s.Name = c.sess.name
	s.OwnerID = string(c.sess.handle.OwnerID())
	s.Started = c.sess.started
	s.Closing = c.sess.closing
	s.MaxMembers = c.sess.handle.MaxMembers()
	s.AllReady = allReady(c.members)
	s.CanStart = s.AllReady && !s.Started && s.OwnerID == s.SelfID
	return s
}

// publish bumps the version and notifies every subscriber, dropping the ones
// that stopped draining.
func (c *Coordinator) publish(chat *types.ChatEntry) {
	c.version++
	u := types.Update{
		Version: c.version,
		Session: c.snapshot(),
		Members: cloneMembers(c.members),
		Chat:    chat,
	}
	for id, ch := range c.subs {
		select {
		case ch <- u:
		default:
			close(ch)
			delete(c.subs, id)
		}
	}
}

func (c *Coordinator) shutdown() {
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.cancel()
}

func cloneMembers(in []types.MemberView) []types.MemberView {
	if in == nil {
		return nil
	}
	out := make([]types.MemberView, len(in))
	copy(out, in)
	return out
}
