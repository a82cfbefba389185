package net

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/protocol"
)

// Channel is a named broadcast group of connections. Joining and leaving
// announce the member to the rest of the group with member-joined and
// member-left notices carrying the connection id.
type Channel struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	members map[uuid.UUID]*Conn
}

// NewChannel creates an empty channel.
//
// Precondition: name must be non-empty; logger must be non-nil.
func NewChannel(name string, logger *zap.Logger) *Channel {
	return &Channel{
		name:    name,
		logger:  logger.With(zap.String("channel", name)),
		members: make(map[uuid.UUID]*Conn),
	}
}

// Name returns the channel name.
func (ch *Channel) Name() string { return ch.name }

// Join adds c to the channel and announces it to the existing members.
// Joining twice is a no-op.
func (ch *Channel) Join(c *Conn) {
	ch.mu.Lock()
	if _, ok := ch.members[c.ID()]; ok {
		ch.mu.Unlock()
		return
	}
	others := ch.snapshotLocked()
	ch.members[c.ID()] = c
	ch.mu.Unlock()

	id := c.ID()
	notice := protocol.EncodeMemberNotice(true, id[:])
	for _, m := range others {
		m.Send(notice)
	}
	ch.logger.Debug("member joined", zap.String("conn_id", c.ID().String()))
}

// Leave removes c from the channel and announces the departure to the
// remaining members. Leaving while absent is a no-op.
func (ch *Channel) Leave(c *Conn) {
	ch.mu.Lock()
	if _, ok := ch.members[c.ID()]; !ok {
		ch.mu.Unlock()
		return
	}
	delete(ch.members, c.ID())
	others := ch.snapshotLocked()
	ch.mu.Unlock()

	id := c.ID()
	notice := protocol.EncodeMemberNotice(false, id[:])
	for _, m := range others {
		m.Send(notice)
	}
	ch.logger.Debug("member left", zap.String("conn_id", c.ID().String()))
}

// Broadcast sends msg to every member.
func (ch *Channel) Broadcast(msg []byte) {
	ch.mu.Lock()
	members := ch.snapshotLocked()
	ch.mu.Unlock()

	for _, m := range members {
		m.Send(msg)
	}
}

// Size returns the current member count.
func (ch *Channel) Size() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.members)
}

// Sends happen outside the lock; snapshot the roster first.
func (ch *Channel) snapshotLocked() []*Conn {
	out := make([]*Conn, 0, len(ch.members))
	for _, m := range ch.members {
		out = append(out, m)
	}
	return out
}
