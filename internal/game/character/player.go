package character

import (
	"fmt"
	"sort"
	"sync"

	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/protocol"
)

// PlayerCharacterManager owns one session's characters. It is created once
// per session and reused across reconnects.
type PlayerCharacterManager struct {
	notifier  Notifier
	src       dice.Source
	damageDie int

	mu         sync.Mutex
	characters map[string]*PlayerCharacter
	current    *PlayerCharacter
	level      Level
	x, y       int32
}

// NewPlayerCharacterManager creates an empty manager for one session.
//
// Precondition: notifier and src must be non-nil; damageDie >= 1.
func NewPlayerCharacterManager(notifier Notifier, src dice.Source, damageDie int) *PlayerCharacterManager {
	return &PlayerCharacterManager{
		notifier:   notifier,
		src:        src,
		damageDie:  damageDie,
		characters: make(map[string]*PlayerCharacter),
		x:          unplaced,
		y:          unplaced,
	}
}

// AddCharacter registers a new character under its stats name.
//
// Precondition: stats.Name must be non-empty.
// Postcondition: Returns the new character, or an error if the name is taken.
func (m *PlayerCharacterManager) AddCharacter(id int32, stats protocol.CharacterStats) (*PlayerCharacter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.characters[stats.Name]; ok {
		return nil, fmt.Errorf("character %q already exists", stats.Name)
	}
	pc := &PlayerCharacter{mgr: m, id: id, stats: stats}
	m.characters[stats.Name] = pc
	return pc, nil
}

// SetCurrentCharacter activates the named character.
//
// Postcondition: CurrentCharacter returns the named character, or the
// active character is unchanged and an error is returned.
func (m *PlayerCharacterManager) SetCurrentCharacter(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.characters[name]
	if !ok {
		return fmt.Errorf("unknown character %q", name)
	}
	m.current = pc
	return nil
}

// Characters returns stat snapshots of every owned character, ordered by
// name.
func (m *PlayerCharacterManager) Characters() []protocol.CharacterStats {
	m.mu.Lock()
	chars := make([]*PlayerCharacter, 0, len(m.characters))
	for _, pc := range m.characters {
		chars = append(chars, pc)
	}
	m.mu.Unlock()

	sort.Slice(chars, func(i, j int) bool { return chars[i].Name() < chars[j].Name() })
	out := make([]protocol.CharacterStats, len(chars))
	for i, pc := range chars {
		out[i] = pc.Stats()
	}
	return out
}

// CurrentCharacter returns the active character, or nil when none is
// selected.
func (m *PlayerCharacterManager) CurrentCharacter() Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current
}

// CurrentLevel returns the level the active character stands on, or nil.
func (m *PlayerCharacterManager) CurrentLevel() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// SetCurrentLevel records the level reference. A nil level also resets the
// position to unplaced.
func (m *PlayerCharacterManager) SetCurrentLevel(l Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = l
	if l == nil {
		m.x, m.y = unplaced, unplaced
	}
}

// Position returns the character's coordinates, (-1, -1) when unplaced.
func (m *PlayerCharacterManager) Position() (int32, int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// SetPosition records the character's coordinates.
func (m *PlayerCharacterManager) SetPosition(x, y int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y = x, y
}

// LeaveCurrentLevel removes the active character from its level and clears
// the level reference. Safe to call multiple times in a row; only the
// first call after a placement does anything.
func (m *PlayerCharacterManager) LeaveCurrentLevel() {
	m.mu.Lock()
	level := m.level
	m.level = nil
	m.x, m.y = unplaced, unplaced
	m.mu.Unlock()

	if level != nil {
		level.RemoveCharacter(m)
	}
}

// ScheduleMoveToLobby queues the owning session's return to the lobby.
func (m *PlayerCharacterManager) ScheduleMoveToLobby() {
	m.notifier.ScheduleMoveToLobby()
}

// SendBoard forwards a board snapshot to the owning session's client.
func (m *PlayerCharacterManager) SendBoard(board protocol.Board) {
	m.notifier.SendBoard(board)
}

// SendUpdates forwards changed board spaces to the owning session's client.
func (m *PlayerCharacterManager) SendUpdates(updates []protocol.BoardSpace) {
	m.notifier.SendBoardUpdates(updates)
}

// PlayerCharacter is a human-controlled avatar.
type PlayerCharacter struct {
	mgr *PlayerCharacterManager
	id  int32

	mu    sync.Mutex
	stats protocol.CharacterStats
}

// ID returns the character's sprite and identity number.
func (pc *PlayerCharacter) ID() int32 { return pc.id }

// Name returns the display name.
func (pc *PlayerCharacter) Name() string {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats.Name
}

// Stats returns a snapshot of the character's statistics.
func (pc *PlayerCharacter) Stats() protocol.CharacterStats {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats
}

// TakeDamage lowers hit points by amount, floored at zero.
//
// Postcondition: 0 <= HitPoints <= MaxHitPoints.
func (pc *PlayerCharacter) TakeDamage(amount int32) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.stats.HitPoints -= amount
	if pc.stats.HitPoints < 0 {
		pc.stats.HitPoints = 0
	}
}

// CollidedFrom resolves attacker moving into this character: the attacker
// strikes, the player is told about any damage, and stat changes are
// pushed to the client. The defender never yields the space.
func (pc *PlayerCharacter) CollidedFrom(attacker Character) ActionResult {
	before := pc.Stats().HitPoints
	if attacker.CollidedInto(pc) {
		lost := before - pc.Stats().HitPoints
		if lost > 0 {
			pc.mgr.notifier.SendServerNotice(
				fmt.Sprintf("%s hit you for %d damage", attacker.Name(), lost))
		}
		pc.NotifyStatsChanged()
	}
	return ActionFail
}

// CollidedInto attacks defender with a single damage-die roll.
//
// Postcondition: Returns true; an attack always counts as a stat change.
func (pc *PlayerCharacter) CollidedInto(defender Character) bool {
	defender.TakeDamage(int32(dice.Roll(pc.mgr.src, pc.mgr.damageDie)))
	return true
}

// NotifyStatsChanged pushes the current snapshot to the client. A character
// at zero hit points dies: the client is told, the character leaves its
// level, hit points reset to max, and a move back to the lobby is
// scheduled.
func (pc *PlayerCharacter) NotifyStatsChanged() {
	snapshot := pc.Stats()
	pc.mgr.notifier.SendCharacter(pc.id, snapshot)

	if snapshot.HitPoints > 0 {
		return
	}
	pc.mgr.notifier.SendServerNotice("You died!")
	pc.mgr.LeaveCurrentLevel()

	pc.mu.Lock()
	pc.stats.HitPoints = pc.stats.MaxHitPoints
	pc.mu.Unlock()

	pc.mgr.notifier.ScheduleMoveToLobby()
}
