package level

import (
	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
)

// Connector is a directional link between a level and another area, anchored
// at a fixed entry coordinate. Direction is inferred from the character's
// state, not from caller intent: an unplaced character is coming in, a
// placed one is heading out.
type Connector struct {
	logger *zap.Logger
	level  *Level
	x, y   int32
}

// NewConnector creates a connector placing inbound characters onto level at
// (x, y).
//
// Precondition: level and logger must be non-nil; (x, y) must be a walkable
// space.
func NewConnector(level *Level, x, y int32, logger *zap.Logger) *Connector {
	return &Connector{
		logger: logger.With(zap.String("level", level.Name())),
		level:  level,
		x:      x,
		y:      y,
	}
}

// EnteredConnection runs one transition for the manager's character.
//
// Inbound (no current level): place the character at the connector's entry
// coordinate. Outbound (already on a level): head toward the connected
// area, which only human-controlled characters may do; autonomous managers
// are rejected so they never leak into human-only areas.
//
// Postcondition: Returns true iff the transition may proceed.
func (c *Connector) EnteredConnection(mgr character.Manager) bool {
	if mgr.CurrentLevel() == nil {
		if !c.level.AddCharacterAt(mgr, c.x, c.y) {
			c.logger.Warn("entry space blocked",
				zap.Int32("x", c.x),
				zap.Int32("y", c.y),
			)
			return false
		}
		return true
	}

	pcm, ok := mgr.(*character.PlayerCharacterManager)
	if !ok {
		c.logger.Debug("rejected autonomous character at exit")
		return false
	}
	pcm.ScheduleMoveToLobby()
	return true
}
