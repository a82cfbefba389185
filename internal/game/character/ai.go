package character

import (
	"sync"

	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/protocol"
)

// Behavior decides one action for an autonomous character. It is invoked
// from the AI tick and typically ends with a Level.Move call.
type Behavior func(m *AICharacterManager)

// AICharacterManager drives one autonomous character. It has no session;
// board traffic addressed to it is discarded.
type AICharacterManager struct {
	src       dice.Source
	damageDie int
	behavior  Behavior

	mu        sync.Mutex
	character *AICharacter
	level     Level
	x, y      int32
}

// NewAICharacterManager creates a manager driving a character with the
// given identity and stats. A nil behavior selects the built-in random
// walk.
//
// Precondition: src must be non-nil; damageDie >= 1.
func NewAICharacterManager(id int32, stats protocol.CharacterStats, src dice.Source, damageDie int, behavior Behavior) *AICharacterManager {
	m := &AICharacterManager{
		src:       src,
		damageDie: damageDie,
		behavior:  behavior,
		x:         unplaced,
		y:         unplaced,
	}
	m.character = &AICharacter{mgr: m, id: id, stats: stats}
	return m
}

// Act performs one action: the configured behavior, or a one-space random
// walk. Does nothing while the character is off the board.
func (m *AICharacterManager) Act() {
	if m.CurrentLevel() == nil {
		return
	}
	if m.behavior != nil {
		m.behavior(m)
		return
	}
	m.RandomWalk()
}

// RandomWalk moves one space in a uniformly random direction.
func (m *AICharacterManager) RandomWalk() {
	level := m.CurrentLevel()
	if level == nil {
		return
	}
	directions := []int16{protocol.DirUp, protocol.DirDown, protocol.DirLeft, protocol.DirRight}
	level.Move(m, directions[dice.Roll(m.src, len(directions))-1])
}

// CurrentCharacter returns the driven character.
func (m *AICharacterManager) CurrentCharacter() Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.character
}

// CurrentLevel returns the level the character stands on, or nil.
func (m *AICharacterManager) CurrentLevel() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// SetCurrentLevel records the level reference. A nil level also resets the
// position to unplaced.
func (m *AICharacterManager) SetCurrentLevel(l Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = l
	if l == nil {
		m.x, m.y = unplaced, unplaced
	}
}

// Position returns the character's coordinates, (-1, -1) when unplaced.
func (m *AICharacterManager) Position() (int32, int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// SetPosition records the character's coordinates.
func (m *AICharacterManager) SetPosition(x, y int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y = x, y
}

// LeaveCurrentLevel removes the character from its level and clears the
// level reference. Idempotent.
func (m *AICharacterManager) LeaveCurrentLevel() {
	m.mu.Lock()
	level := m.level
	m.level = nil
	m.x, m.y = unplaced, unplaced
	m.mu.Unlock()

	if level != nil {
		level.RemoveCharacter(m)
	}
}

// SendBoard discards the snapshot; there is no client behind an autonomous
// character.
func (m *AICharacterManager) SendBoard(protocol.Board) {}

// SendUpdates discards the updates.
func (m *AICharacterManager) SendUpdates([]protocol.BoardSpace) {}

// AICharacter is an autonomous avatar.
type AICharacter struct {
	mgr *AICharacterManager
	id  int32

	mu    sync.Mutex
	stats protocol.CharacterStats
}

// ID returns the character's sprite and identity number.
func (c *AICharacter) ID() int32 { return c.id }

// Name returns the display name.
func (c *AICharacter) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Name
}

// Stats returns a snapshot of the character's statistics.
func (c *AICharacter) Stats() protocol.CharacterStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// TakeDamage lowers hit points by amount, floored at zero.
func (c *AICharacter) TakeDamage(amount int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.HitPoints -= amount
	if c.stats.HitPoints < 0 {
		c.stats.HitPoints = 0
	}
}

// CollidedFrom resolves attacker moving into this character. The defender
// never yields the space.
func (c *AICharacter) CollidedFrom(attacker Character) ActionResult {
	if attacker.CollidedInto(c) {
		c.NotifyStatsChanged()
	}
	return ActionFail
}

// CollidedInto attacks defender with a single damage-die roll.
func (c *AICharacter) CollidedInto(defender Character) bool {
	defender.TakeDamage(int32(dice.Roll(c.mgr.src, c.mgr.damageDie)))
	return true
}

// NotifyStatsChanged handles death: at zero hit points the character leaves
// its level and heals back to max, ready to be respawned by its dungeon.
func (c *AICharacter) NotifyStatsChanged() {
	if c.Stats().HitPoints > 0 {
		return
	}
	c.mgr.LeaveCurrentLevel()
	c.mu.Lock()
	c.stats.HitPoints = c.stats.MaxHitPoints
	c.mu.Unlock()
}
