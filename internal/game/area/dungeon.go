package area

import (
	"time"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/level"
	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/protocol"
)

// Dungeon is a playable area built around a single level. Joining drops the
// session's active character at the entry point; the dungeon's monsters act
// on a repeating tick for as long as the server runs.
type Dungeon struct {
	base

	level      *level.Level
	spriteSize int32
	sprites    map[int32][]byte
	entry      *level.Connector
	spawns     []*character.AICharacterManager
	aiTask     *task.RepeatingTask
}

// NewDungeon assembles a dungeon, places its spawns on the level, registers
// it in the arena, announces it to the aggregator, and starts the AI tick.
//
// Precondition: name is not yet bound in the arena.
func NewDungeon(name string, deps Deps, lvl *level.Level, spriteSize int32, sprites map[int32][]byte, entry *level.Connector, spawns []*character.AICharacterManager, aiTick time.Duration) *Dungeon {
	d := &Dungeon{
		base:       newBase(name, deps),
		level:      lvl,
		spriteSize: spriteSize,
		sprites:    sprites,
		entry:      entry,
		spawns:     spawns,
	}
	for _, m := range spawns {
		if !lvl.AddCharacter(m) {
			d.logger.Warn("no room for spawn", zap.String("spawn", m.CurrentCharacter().Name()))
		}
	}
	deps.Arena.Bind(BindingPrefix+name, d)
	deps.Agg.NotifyAreaAdded(name)
	if aiTick > 0 && len(spawns) > 0 {
		d.aiTask = deps.Sched.ScheduleRepeating(aiTick, d.actAll)
	}
	return d
}

// Join sends the newcomer the sprite table, the current name map, and
// their character sheet, then walks them in through the entry connection.
func (d *Dungeon) Join(s *session.Session) {
	s.Send(protocol.EncodeSpriteMap(d.spriteSize, d.sprites))
	s.Send(protocol.EncodeNameMap(d.nameMap()))
	cm := s.CharacterManager()
	if c := cm.CurrentCharacter(); c != nil {
		s.SendCharacter(c.ID(), c.Stats())
	}
	d.join(s)
	if !d.entry.EnteredConnection(cm) {
		s.SendServerNotice("The entrance is blocked.")
	}
}

// Leave removes the session from the roster and pulls their character off
// the level if it is still placed.
func (d *Dungeon) Leave(s *session.Session) {
	d.leave(s)
	s.LeaveCurrentLevel()
}

// CreateMessageHandler returns a handler scoped to the dungeon command
// table.
func (d *Dungeon) CreateMessageHandler() session.MessageHandler {
	return &dungeonHandler{dungeon: d}
}

// actAll gives every spawn one action. A spawn that died since the last
// tick is off the board and fully healed; it is re-placed at a random open
// space before acting, so the dungeon never drains empty.
func (d *Dungeon) actAll() {
	for _, m := range d.spawns {
		if m.CurrentLevel() == nil {
			if !d.level.AddCharacter(m) {
				d.logger.Warn("no room to respawn",
					zap.String("spawn", m.CurrentCharacter().Name()))
				continue
			}
		}
		m.Act()
	}
}

// dungeonHandler dispatches client messages received while the session is
// in a dungeon. Unknown or malformed messages are logged and dropped.
type dungeonHandler struct {
	dungeon *Dungeon
}

func (h *dungeonHandler) HandleMessage(s *session.Session, msg []byte) {
	switch protocol.Command(msg) {
	case protocol.CmdMove:
		h.handleMove(s, msg)
	case protocol.CmdTake:
		h.handleTake(s)
	case protocol.CmdEquip:
		s.SendServerNotice("You have nothing to equip.")
	case protocol.CmdUse:
		s.SendServerNotice("You have nothing to use.")
	default:
		h.dungeon.logger.Warn("unknown dungeon command",
			zap.String("session", s.Name()),
			zap.Uint8("command", protocol.Command(msg)),
		)
	}
}

func (h *dungeonHandler) handleMove(s *session.Session, msg []byte) {
	direction, err := protocol.DecodeMoveDirection(msg)
	if err != nil {
		h.dungeon.logger.Warn("malformed move",
			zap.String("session", s.Name()),
			zap.Error(err),
		)
		return
	}
	cm := s.CharacterManager()
	lvl := cm.CurrentLevel()
	if lvl == nil {
		return
	}
	lvl.Move(cm, direction)
}

func (h *dungeonHandler) handleTake(s *session.Session) {
	cm := s.CharacterManager()
	lvl := cm.CurrentLevel()
	if lvl == nil {
		return
	}
	if !lvl.Take(cm) {
		s.SendServerNotice("There is nothing here to take.")
	}
}
