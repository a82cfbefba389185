package scripting

import (
	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/protocol"
)

// occupantLister is the view of a level the behavior glue needs beyond
// character.Level. The level package implements it.
type occupantLister interface {
	Occupants() []character.Manager
}

// BehaviorFor returns a behavior driven by the named script's decide hook,
// or nil when no such script is loaded. The hook receives the monster and
// the players sharing its level, and answers "up", "down", "left",
// "right", or "stay". Anything else, including a Lua error, degrades to a
// random walk.
func (m *Manager) BehaviorFor(name string) character.Behavior {
	if !m.Loaded(name) {
		m.logger.Warn("unknown behavior script, falling back to random walk",
			zap.String("script", name),
		)
		return nil
	}
	return func(am *character.AICharacterManager) {
		lvl := am.CurrentLevel()
		if lvl == nil {
			return
		}

		var players []ActorInfo
		if lister, ok := lvl.(occupantLister); ok {
			for _, mgr := range lister.Occupants() {
				if _, isPlayer := mgr.(*character.PlayerCharacterManager); !isPlayer {
					continue
				}
				players = append(players, snapshotActor(mgr))
			}
		}

		choice, ok := m.CallDecide(name, snapshotActor(am), players)
		if !ok {
			am.RandomWalk()
			return
		}
		if choice == "stay" {
			return
		}
		direction, valid := parseDirection(choice)
		if !valid {
			am.RandomWalk()
			return
		}
		lvl.Move(am, direction)
	}
}

func snapshotActor(mgr character.Manager) ActorInfo {
	x, y := mgr.Position()
	info := ActorInfo{X: x, Y: y}
	if c := mgr.CurrentCharacter(); c != nil {
		stats := c.Stats()
		info.Name = stats.Name
		info.HP = stats.HitPoints
		info.MaxHP = stats.MaxHitPoints
	}
	return info
}

func parseDirection(s string) (int16, bool) {
	switch s {
	case "up":
		return protocol.DirUp, true
	case "down":
		return protocol.DirDown, true
	case "left":
		return protocol.DirLeft, true
	case "right":
		return protocol.DirRight, true
	}
	return 0, false
}
