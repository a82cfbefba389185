// Package character owns the in-game avatars: the characters a session can
// play, the managers that track which one is active and where it stands,
// and the collision protocol that resolves one character moving into
// another.
package character

import (
	"github.com/delvegame/delve/internal/protocol"
)

// ActionResult is the outcome of a board action.
type ActionResult int

const (
	// ActionFail means the action did not happen; a mover stays put.
	ActionFail ActionResult = iota
	// ActionSuccess means the action completed and the mover advanced.
	ActionSuccess
	// ActionCharacterLeft means the action removed the character from the
	// level (stairs, death, eviction).
	ActionCharacterLeft
)

// Character is one combat-capable avatar.
type Character interface {
	// ID is the character's sprite and identity number.
	ID() int32
	// Name is the display name.
	Name() string
	// Stats returns a snapshot of the character's statistics.
	Stats() protocol.CharacterStats
	// TakeDamage lowers hit points by amount, floored at zero.
	TakeDamage(amount int32)
	// CollidedFrom reacts to attacker moving into this character. The
	// defender calls back into the attacker to resolve the attack, reacts
	// to any stat change, and reports whether the attacker gains the
	// space.
	CollidedFrom(attacker Character) ActionResult
	// CollidedInto performs this character's attack on defender. Returns
	// true if the defender's stats changed.
	CollidedInto(defender Character) bool
	// NotifyStatsChanged reacts to this character's own stats changing,
	// including death handling when hit points reach zero.
	NotifyStatsChanged()
}

// Collide resolves attacker moving into defender's space and returns
// whether the attacker may take the space. Resolution order is fixed: the
// defender reacts (calling back into the attacker) before any movement is
// considered.
func Collide(attacker, defender Character) ActionResult {
	return defender.CollidedFrom(attacker)
}

// Level is the dungeon floor a manager's character stands on. Implemented
// by the level package; declared here so managers can hold their current
// level without importing it.
type Level interface {
	Name() string
	// AddCharacterAt places the manager's character at (x, y). Returns
	// false if the space cannot be entered.
	AddCharacterAt(mgr Manager, x, y int32) bool
	// RemoveCharacter takes the manager's character off the board.
	// Removing an absent character is a no-op.
	RemoveCharacter(mgr Manager)
	// Move attempts to move the manager's character one space. Returns
	// true if the character ended up in the requested space.
	Move(mgr Manager, direction int16) bool
	// Take attempts to pick up the item under the manager's character.
	Take(mgr Manager) bool
	// BoardSnapshot returns a static copy of the board.
	BoardSnapshot() protocol.Board
}

// Manager tracks one owner's characters: which one is active, what level it
// stands on, and where. A manager with no level has position (-1, -1).
type Manager interface {
	// CurrentCharacter returns the active character, or nil.
	CurrentCharacter() Character
	// CurrentLevel returns the level the active character stands on, or nil.
	CurrentLevel() Level
	SetCurrentLevel(l Level)
	// Position returns the character's coordinates, (-1, -1) when unplaced.
	Position() (x, y int32)
	SetPosition(x, y int32)
	// SendBoard pushes a full board snapshot toward the owner.
	SendBoard(board protocol.Board)
	// SendUpdates pushes changed board spaces toward the owner.
	SendUpdates(updates []protocol.BoardSpace)
}

// Notifier is the slice of a session a character manager needs to reach its
// client. Implemented by the session package.
type Notifier interface {
	SendCharacter(id int32, stats protocol.CharacterStats)
	SendServerNotice(text string)
	SendBoard(board protocol.Board)
	SendBoardUpdates(updates []protocol.BoardSpace)
	// ScheduleMoveToLobby queues a transition back to the lobby as a
	// follow-up task; it must not run in the caller's stack.
	ScheduleMoveToLobby()
}

// unplaced is the coordinate used while a character is not on any level.
const unplaced int32 = -1
