// Package session tracks one logged-in user across reconnects: the current
// connection, the area the user stands in, the message handler bound to
// that area, and the user's characters. Sessions are never destroyed while
// the server runs, so characters survive disconnection.
package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/net"
	"github.com/delvegame/delve/internal/protocol"
)

// Area is a shared place sessions join and leave. Implemented by the area
// package.
type Area interface {
	Name() string
	Join(s *Session)
	Leave(s *Session)
	// CreateMessageHandler returns a fresh handler bound to this area's
	// command table.
	CreateMessageHandler() MessageHandler
	MemberCount() int
}

// MessageHandler interprets inbound payloads for one area's command table
// on behalf of one session.
type MessageHandler interface {
	HandleMessage(s *Session, msg []byte)
}

// Session is the server-side identity of one user, keyed by stable name.
//
// Invariant: at rest, currentArea == nil ⇔ messageHandler == nil ⇔
// connection == nil. A disconnected session holds none of them.
type Session struct {
	name   string
	logger *zap.Logger
	sched  *task.Scheduler
	lobby  func() Area

	charMgr *character.PlayerCharacterManager

	// transMu serializes whole area transitions. A scheduled lobby move
	// and a concurrent disconnect must not interleave their leave/join
	// halves; each takes transMu for the full sequence.
	transMu sync.Mutex

	mu      sync.Mutex
	conn    *net.Conn
	area    Area
	handler MessageHandler
}

// New creates a session for the named user. lobby resolves the lobby area
// when a death or dungeon exit schedules a return trip.
//
// Precondition: name must be non-empty; all arguments must be non-nil.
func New(name string, logger *zap.Logger, sched *task.Scheduler, charFactory func(n character.Notifier) *character.PlayerCharacterManager, lobby func() Area) *Session {
	s := &Session{
		name:   name,
		logger: logger.With(zap.String("session", name)),
		sched:  sched,
		lobby:  lobby,
	}
	s.charMgr = charFactory(s)
	return s
}

// Name returns the session's stable user name.
func (s *Session) Name() string { return s.name }

// CharacterManager returns the session's character manager. It is created
// once and reused for the session's whole lifetime.
func (s *Session) CharacterManager() *character.PlayerCharacterManager {
	return s.charMgr
}

// SetConnection binds the active connection handle. Rebinding the same
// connection is a no-op.
func (s *Session) SetConnection(c *net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == c {
		return
	}
	s.conn = c
}

// AttachConnection binds c only while no other connection holds the
// session. The check and the bind are one atomic step, so two racing
// logins for the same name cannot both succeed.
//
// Postcondition: Returns true iff c is now the session's connection.
func (s *Session) AttachConnection(c *net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.conn != c {
		return false
	}
	s.conn = c
	return true
}

// Connection returns the active connection, or nil while disconnected.
func (s *Session) Connection() *net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// CurrentArea returns the area the session stands in, or nil.
func (s *Session) CurrentArea() Area {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area
}

// MoveToArea leaves the current area, if any, and joins target. A nil
// target leaves the session fully disconnected: no area, no handler, no
// connection. The session is never a member of two areas at once; the
// leave completes before the join starts, and concurrent transitions run
// one after the other.
func (s *Session) MoveToArea(target Area) {
	s.transMu.Lock()
	defer s.transMu.Unlock()
	s.moveTo(target)
}

// moveTo runs one transition. Caller holds transMu.
func (s *Session) moveTo(target Area) {
	s.mu.Lock()
	prev := s.area
	s.area = nil
	s.handler = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Leave(s)
		s.LeaveCurrentLevel()
	}

	if target == nil {
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	handler := target.CreateMessageHandler()
	s.mu.Lock()
	s.area = target
	s.handler = handler
	s.mu.Unlock()

	target.Join(s)
	s.logger.Debug("moved to area", zap.String("area", target.Name()))
}

// ReceivedMessage routes one inbound payload to the current area's handler.
// Messages arriving while the session is in no area are logged and dropped.
// The handler runs outside the session lock because handlers move sessions
// between areas.
func (s *Session) ReceivedMessage(msg []byte) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		s.logger.Warn("message dropped, session not in any area")
		return
	}
	handler.HandleMessage(s, msg)
}

// Disconnected tears the session down to its durable core.
func (s *Session) Disconnected() {
	s.MoveToArea(nil)
}

// LeaveCurrentLevel removes the active character from its dungeon level, if
// it stands on one. Safe to call repeatedly; death handlers and area leave
// paths both call it.
func (s *Session) LeaveCurrentLevel() {
	s.charMgr.LeaveCurrentLevel()
}

// Send queues an encoded message on the session's connection, dropping it
// while disconnected.
func (s *Session) Send(msg []byte) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	conn.Send(msg)
}

// SendCharacter pushes a character snapshot to the client.
func (s *Session) SendCharacter(id int32, stats protocol.CharacterStats) {
	s.Send(protocol.EncodeCharacter(id, stats))
}

// SendServerNotice pushes a server-generated text notice to the client.
func (s *Session) SendServerNotice(text string) {
	s.Send(protocol.EncodeServerNotice(text))
}

// SendBoard pushes a full board snapshot to the client.
func (s *Session) SendBoard(board protocol.Board) {
	s.Send(protocol.EncodeBoard(&board))
}

// SendBoardUpdates pushes changed board spaces to the client.
func (s *Session) SendBoardUpdates(updates []protocol.BoardSpace) {
	s.Send(protocol.EncodeBoardUpdates(updates))
}

// ScheduleMoveToLobby queues a move back to the lobby as a follow-up task,
// off the caller's stack. Death handling and dungeon exits use it so that
// area transitions never run inside level or combat code. A session that
// disconnected before the task runs stays out of the lobby.
func (s *Session) ScheduleMoveToLobby() {
	s.sched.Submit(func() {
		s.transMu.Lock()
		defer s.transMu.Unlock()
		s.mu.Lock()
		connected := s.conn != nil
		s.mu.Unlock()
		if !connected {
			s.logger.Debug("dropping lobby move for disconnected session")
			return
		}
		s.moveTo(s.lobby())
	})
}
