package area

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/protocol"
)

// CreatorName is the creation area's binding name.
const CreatorName = "creator"

const persistTimeout = 5 * time.Second

// Creator is the character-creation area. Sessions without a character are
// routed here after login; each create request rolls a fresh stat block,
// adds the character to the session, and persists it when a store is
// configured.
type Creator struct {
	base

	src      dice.Source
	store    CharacterStore
	nextID   func() int32
	getLobby func() session.Area
}

// FindOrCreateCreator returns the arena's creation-area singleton.
// nextID allocates character ids; getLobby resolves the area to move
// finished sessions to.
func FindOrCreateCreator(deps Deps, nextID func() int32, getLobby func() session.Area) *Creator {
	obj, created := deps.Arena.BindIfAbsent(BindingPrefix+CreatorName, func() any {
		return &Creator{
			base:     newBase(CreatorName, deps),
			src:      deps.Src,
			store:    deps.Store,
			nextID:   nextID,
			getLobby: getLobby,
		}
	})
	if created {
		deps.Agg.NotifyAreaAdded(CreatorName)
	}
	return obj.(*Creator)
}

// Join adds the session to the roster.
func (c *Creator) Join(s *session.Session) {
	c.join(s)
	s.SendServerNotice("Welcome. Send a name and sprite to roll a new character.")
}

// Leave removes the session from the roster.
func (c *Creator) Leave(s *session.Session) {
	c.leave(s)
}

// CreateMessageHandler returns a handler scoped to the creation command
// table.
func (c *Creator) CreateMessageHandler() session.MessageHandler {
	return &creatorHandler{creator: c}
}

// rollStats rolls a full stat block: three six-sided dice per ability, and
// hit points of ten plus one eight-sided die.
func (c *Creator) rollStats(name string) protocol.CharacterStats {
	roll3d6 := func() int32 {
		total := 0
		for i := 0; i < 3; i++ {
			total += dice.Roll(c.src, 6)
		}
		return int32(total)
	}
	hp := int32(10 + dice.Roll(c.src, 8))
	return protocol.CharacterStats{
		Name:         name,
		Strength:     roll3d6(),
		Intelligence: roll3d6(),
		Dexterity:    roll3d6(),
		Wisdom:       roll3d6(),
		Constitution: roll3d6(),
		Charisma:     roll3d6(),
		HitPoints:    hp,
		MaxHitPoints: hp,
	}
}

// creatorHandler dispatches client messages received while the session is
// in the creation area.
type creatorHandler struct {
	creator *Creator
}

func (h *creatorHandler) HandleMessage(s *session.Session, msg []byte) {
	switch protocol.Command(msg) {
	case protocol.CmdCreateCharacter:
		h.handleCreate(s, msg)
	case protocol.CmdCreateDone:
		s.MoveToArea(h.creator.getLobby())
	default:
		h.creator.logger.Warn("unknown creator command",
			zap.String("session", s.Name()),
			zap.Uint8("command", protocol.Command(msg)),
		)
	}
}

func (h *creatorHandler) handleCreate(s *session.Session, msg []byte) {
	c := h.creator
	spriteID, name, err := protocol.DecodeCreateCharacter(msg)
	if err != nil {
		c.logger.Warn("malformed create request",
			zap.String("session", s.Name()),
			zap.Error(err),
		)
		return
	}
	if name == "" {
		s.SendServerNotice("A character needs a name.")
		return
	}

	id := c.nextID()
	stats := c.rollStats(name)
	pc, err := s.CharacterManager().AddCharacter(id, stats)
	if err != nil {
		s.SendServerNotice("You already have a character named " + name + ".")
		return
	}
	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.store.SaveCharacter(ctx, s.Name(), spriteID, stats); err != nil {
			c.logger.Error("character persist failed",
				zap.String("session", s.Name()),
				zap.String("character", name),
				zap.Error(err),
			)
		}
	}
	s.SendCharacter(pc.ID(), pc.Stats())
}
