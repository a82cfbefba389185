package area

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/protocol"
)

// LobbyName is the lobby's binding name and the name it reports counts
// under.
const LobbyName = "lobby"

// Lobby is the hub every session lands in after login and returns to after
// leaving a dungeon. It listens to the membership aggregator and relays
// area arrivals, departures, and count changes to its members.
//
// Precondition: exactly one Lobby exists per arena; use FindOrCreateLobby.
type Lobby struct {
	base

	tableMu sync.Mutex
	// counts holds the last reported member count per announced area.
	counts map[string]int32
}

// FindOrCreateLobby returns the arena's lobby singleton, creating and
// registering it with the aggregator on first call.
func FindOrCreateLobby(deps Deps) *Lobby {
	obj, created := deps.Arena.BindIfAbsent(BindingPrefix+LobbyName, func() any {
		return &Lobby{
			base:   newBase(LobbyName, deps),
			counts: make(map[string]int32),
		}
	})
	l := obj.(*Lobby)
	if created {
		deps.Agg.AddListener(l)
		// Announce the lobby itself so its member counts refer to an
		// area clients have been told about.
		deps.Agg.NotifyAreaAdded(LobbyName)
	}
	return l
}

// Join sends the newcomer the current name map, the per-area counts, and
// the list of characters on their account, then adds them to the roster.
func (l *Lobby) Join(s *session.Session) {
	s.Send(protocol.EncodeNameMap(l.nameMap()))
	s.Send(protocol.EncodeLobbyWelcome(l.details()))
	s.Send(protocol.EncodeCharacterList(s.CharacterManager().Characters()))
	l.join(s)
}

// Leave removes the session from the roster.
func (l *Lobby) Leave(s *session.Session) {
	l.leave(s)
}

// CreateMessageHandler returns a handler scoped to the lobby command
// table.
func (l *Lobby) CreateMessageHandler() session.MessageHandler {
	return &lobbyHandler{lobby: l}
}

// details snapshots the announced areas sorted by name.
func (l *Lobby) details() []protocol.MembershipDetail {
	l.tableMu.Lock()
	defer l.tableMu.Unlock()
	out := make([]protocol.MembershipDetail, 0, len(l.counts))
	for name, count := range l.counts {
		out = append(out, protocol.MembershipDetail{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AreaAdded records the new areas and announces them to the members.
func (l *Lobby) AreaAdded(names []string) {
	l.tableMu.Lock()
	for _, name := range names {
		if _, known := l.counts[name]; !known {
			l.counts[name] = 0
		}
	}
	l.tableMu.Unlock()
	for _, name := range names {
		l.channel.Broadcast(protocol.EncodeAreaAdded(name))
	}
}

// AreaRemoved forgets the areas and announces their departure.
func (l *Lobby) AreaRemoved(names []string) {
	l.tableMu.Lock()
	for _, name := range names {
		delete(l.counts, name)
	}
	l.tableMu.Unlock()
	for _, name := range names {
		l.channel.Broadcast(protocol.EncodeAreaRemoved(name))
	}
}

// MembershipChanged updates the table for known areas and relays every
// change to the members.
func (l *Lobby) MembershipChanged(details []protocol.MembershipDetail) {
	l.tableMu.Lock()
	for _, d := range details {
		if _, known := l.counts[d.Name]; known {
			l.counts[d.Name] = d.Count
		}
	}
	l.tableMu.Unlock()
	for _, d := range details {
		l.channel.Broadcast(protocol.EncodeAreaCountChanged(d.Name, d.Count))
	}
}

// lobbyHandler dispatches client messages received while the session is in
// the lobby. Unknown or malformed messages are logged and dropped.
type lobbyHandler struct {
	lobby *Lobby
}

func (h *lobbyHandler) HandleMessage(s *session.Session, msg []byte) {
	switch protocol.Command(msg) {
	case protocol.CmdMoveRequest:
		h.handleMoveRequest(s, msg)
	default:
		h.lobby.logger.Warn("unknown lobby command",
			zap.String("session", s.Name()),
			zap.Uint8("command", protocol.Command(msg)),
		)
	}
}

func (h *lobbyHandler) handleMoveRequest(s *session.Session, msg []byte) {
	areaName, characterName, err := protocol.DecodeMoveRequest(msg)
	if err != nil {
		h.lobby.logger.Warn("malformed move request",
			zap.String("session", s.Name()),
			zap.Error(err),
		)
		return
	}
	if err := s.CharacterManager().SetCurrentCharacter(characterName); err != nil {
		s.SendServerNotice("No such character: " + characterName)
		return
	}
	target := Find(h.lobby.arena, areaName)
	if target == nil {
		s.SendServerNotice("No such area: " + areaName)
		return
	}
	s.MoveToArea(target)
}
