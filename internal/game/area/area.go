// Package area implements the shared places sessions move between: the
// lobby, the dungeons, and the character-creation area. Each area owns a
// broadcast channel and a roster, hands out message handlers bound to its
// own command table, and reports its member count to the membership
// aggregator.
package area

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/game/membership"
	"github.com/delvegame/delve/internal/game/registry"
	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/net"
	"github.com/delvegame/delve/internal/protocol"
)

// BindingPrefix namespaces area bindings in the shared arena.
const BindingPrefix = "area:"

// CharacterStore persists characters as they are created and changed. The
// postgres repository implements it; a nil store disables persistence.
type CharacterStore interface {
	SaveCharacter(ctx context.Context, owner string, spriteID int32, stats protocol.CharacterStats) error
}

// Deps carries the collaborators every area needs.
type Deps struct {
	Logger    *zap.Logger
	Arena     *registry.Arena
	Agg       *membership.Aggregator
	Sched     *task.Scheduler
	Src       dice.Source
	DamageDie int
	// Store is optional; nil disables character persistence.
	Store CharacterStore
}

// Find returns the area bound under name, or nil.
func Find(arena *registry.Arena, name string) session.Area {
	obj, ok := arena.Lookup(BindingPrefix + name)
	if !ok {
		return nil
	}
	a, ok := obj.(session.Area)
	if !ok {
		return nil
	}
	return a
}

// base carries the roster and channel bookkeeping shared by every area
// variant. The per-variant welcome traffic stays in the variants; the base
// transaction is deliberately short, a map touch and a broadcast.
type base struct {
	name    string
	logger  *zap.Logger
	channel *net.Channel
	agg     *membership.Aggregator
	arena   *registry.Arena

	mu     sync.Mutex
	roster map[*session.Session]string
}

func newBase(name string, deps Deps) base {
	return base{
		name:    name,
		logger:  deps.Logger.With(zap.String("area", name)),
		channel: net.NewChannel(name, deps.Logger),
		agg:     deps.Agg,
		arena:   deps.Arena,
		roster:  make(map[*session.Session]string),
	}
}

// Name returns the area's unique name.
func (b *base) Name() string { return b.name }

// MemberCount returns the roster size.
func (b *base) MemberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.roster)
}

// join adds the session to the roster and channel, announces the new
// member's display name, and reports the new count.
func (b *base) join(s *session.Session) {
	b.mu.Lock()
	b.roster[s] = s.Name()
	count := len(b.roster)
	b.mu.Unlock()

	if conn := s.Connection(); conn != nil {
		b.channel.Join(conn)
		id := conn.ID()
		b.channel.Broadcast(protocol.EncodeNameMap(map[string]string{
			id.String(): s.Name(),
		}))
	}
	b.agg.NotifyMembershipChanged(b.name, int32(count))
	b.logger.Debug("session joined",
		zap.String("session", s.Name()),
		zap.Int("members", count),
	)
}

// leave removes the session from the roster and channel and reports the
// new count. Leaving while absent is a no-op.
func (b *base) leave(s *session.Session) {
	b.mu.Lock()
	_, present := b.roster[s]
	delete(b.roster, s)
	count := len(b.roster)
	b.mu.Unlock()
	if !present {
		return
	}

	if conn := s.Connection(); conn != nil {
		b.channel.Leave(conn)
	}
	b.agg.NotifyMembershipChanged(b.name, int32(count))
	b.logger.Debug("session left",
		zap.String("session", s.Name()),
		zap.Int("members", count),
	)
}

// nameMap returns the connection-id → display-name map of every connected
// member.
func (b *base) nameMap() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.roster))
	for s, name := range b.roster {
		if conn := s.Connection(); conn != nil {
			id := conn.ID()
			out[id.String()] = name
		}
	}
	return out
}
