// Package level implements the dungeon floor: a tile grid with occupancy,
// movement with collision dispatch, and the connectors that carry
// characters between a level and another area.
package level

import (
	"sync"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/protocol"
)

// Tile identifiers shared with clients.
const (
	TileWall   int32 = 0
	TileFloor  int32 = 1
	TileStairs int32 = 2
)

type space struct {
	tile     int32
	occupant character.Manager
}

// id returns what a client should draw at this space.
func (s *space) id() int32 {
	if s.occupant != nil {
		if c := s.occupant.CurrentCharacter(); c != nil {
			return c.ID()
		}
	}
	return s.tile
}

// Level is one dungeon floor. It implements character.Level.
//
// Invariant: a manager is in the roster iff exactly one space holds it as
// occupant, at the manager's recorded position.
type Level struct {
	name   string
	logger *zap.Logger
	src    dice.Source

	mu     sync.Mutex
	width  int32
	height int32
	spaces []space
	roster map[character.Manager]struct{}
	// exits maps space index (y*width+x) to the connector behind it.
	exits map[int32]*Connector
}

// New creates a level from a row-major tile grid.
//
// Precondition: len(tiles) == width*height; width, height >= 1; logger and
// src must be non-nil.
func New(name string, width, height int32, tiles []int32, logger *zap.Logger, src dice.Source) *Level {
	spaces := make([]space, len(tiles))
	for i, tile := range tiles {
		spaces[i] = space{tile: tile}
	}
	return &Level{
		name:   name,
		logger: logger.With(zap.String("level", name)),
		src:    src,
		width:  width,
		height: height,
		spaces: spaces,
		roster: make(map[character.Manager]struct{}),
		exits:  make(map[int32]*Connector),
	}
}

// SetExit installs the outbound connector behind the stairs tile at (x, y).
// Every stairs tile gets its own call; each exit fires independently.
func (l *Level) SetExit(conn *Connector, x, y int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exits[y*l.width+x] = conn
}

// Name returns the level's name.
func (l *Level) Name() string { return l.name }

// Size returns the board dimensions.
func (l *Level) Size() (width, height int32) { return l.width, l.height }

func (l *Level) at(x, y int32) *space {
	return &l.spaces[y*l.width+x]
}

func (l *Level) inBounds(x, y int32) bool {
	return x >= 0 && x < l.width && y >= 0 && y < l.height
}

// testMove reports whether (x, y) can be entered by walking: on the board,
// walkable tile, nobody standing there. Caller holds l.mu.
func (l *Level) testMove(x, y int32) bool {
	if !l.inBounds(x, y) {
		return false
	}
	sp := l.at(x, y)
	return sp.tile != TileWall && sp.occupant == nil
}

// AddCharacter places the manager's character at a random open space.
//
// Postcondition: Returns true and the character is on the board, or false
// when the board has no open space for it.
func (l *Level) AddCharacter(mgr character.Manager) bool {
	// Bounded retry: a full board must not spin forever.
	for attempt := 0; attempt < 1000; attempt++ {
		x := int32(dice.Roll(l.src, int(l.width)) - 1)
		y := int32(dice.Roll(l.src, int(l.height)) - 1)
		if l.AddCharacterAt(mgr, x, y) {
			return true
		}
	}
	l.logger.Warn("no open space for character")
	return false
}

// AddCharacterAt places the manager's character at (x, y), records the
// placement on the manager, sends the newcomer the board, and broadcasts
// the changed space.
func (l *Level) AddCharacterAt(mgr character.Manager, x, y int32) bool {
	l.mu.Lock()
	if !l.testMove(x, y) {
		l.mu.Unlock()
		return false
	}
	mgr.SetCurrentLevel(l)
	mgr.SetPosition(x, y)
	l.at(x, y).occupant = mgr
	l.roster[mgr] = struct{}{}
	board := l.snapshotLocked()
	update := protocol.BoardSpace{X: x, Y: y, ID: l.at(x, y).id()}
	targets := l.rosterLocked()
	l.mu.Unlock()

	mgr.SendBoard(board)
	l.broadcast(targets, []protocol.BoardSpace{update})
	return true
}

// RemoveCharacter takes the manager's character off the board and
// broadcasts the vacated space. Removing an absent character is a no-op.
func (l *Level) RemoveCharacter(mgr character.Manager) {
	l.mu.Lock()
	if _, ok := l.roster[mgr]; !ok {
		l.mu.Unlock()
		return
	}
	delete(l.roster, mgr)
	x, y := mgr.Position()
	var updates []protocol.BoardSpace
	if l.inBounds(x, y) && l.at(x, y).occupant == mgr {
		l.at(x, y).occupant = nil
		updates = append(updates, protocol.BoardSpace{X: x, Y: y, ID: l.at(x, y).id()})
	}
	targets := l.rosterLocked()
	l.mu.Unlock()

	l.broadcast(targets, updates)
}

// Move attempts to move the manager's character one space in direction.
// Walking into a wall or off the board fails. Walking into a character
// resolves a collision; the mover advances only if the defender yields.
// Walking onto the stairs runs the exit connector.
//
// Postcondition: Returns true iff the character occupies the requested
// space.
func (l *Level) Move(mgr character.Manager, direction int16) bool {
	l.mu.Lock()
	if _, ok := l.roster[mgr]; !ok {
		l.mu.Unlock()
		return false
	}
	origX, origY := mgr.Position()
	x, y := origX, origY
	switch direction {
	case protocol.DirUp:
		y--
	case protocol.DirDown:
		y++
	case protocol.DirLeft:
		x--
	case protocol.DirRight:
		x++
	default:
		l.mu.Unlock()
		return false
	}
	if !l.inBounds(x, y) {
		l.mu.Unlock()
		return false
	}
	sp := l.at(x, y)
	if sp.tile == TileWall {
		l.mu.Unlock()
		return false
	}

	if sp.occupant != nil {
		attacker := mgr.CurrentCharacter()
		defender := sp.occupant.CurrentCharacter()
		l.mu.Unlock()
		if attacker == nil || defender == nil {
			return false
		}
		// Collision resolution can re-enter the level (a dying defender
		// removes itself), so it runs outside the lock.
		if character.Collide(attacker, defender) != character.ActionSuccess {
			return false
		}
		// Defender yielded; retry the step onto what is now open ground.
		return l.Move(mgr, direction)
	}

	if exit, ok := l.exits[y*l.width+x]; ok {
		l.mu.Unlock()
		if exit.EnteredConnection(mgr) {
			l.RemoveCharacter(mgr)
			mgr.SetCurrentLevel(nil)
		}
		// Either way the character did not take the requested space.
		return false
	}

	sp.occupant = mgr
	l.at(origX, origY).occupant = nil
	mgr.SetPosition(x, y)
	updates := []protocol.BoardSpace{
		{X: origX, Y: origY, ID: l.at(origX, origY).id()},
		{X: x, Y: y, ID: sp.id()},
	}
	targets := l.rosterLocked()
	l.mu.Unlock()

	l.broadcast(targets, updates)
	return true
}

// Take attempts to pick up whatever is under the manager's character.
// Items are not modeled on this board, so there is never anything to take.
func (l *Level) Take(character.Manager) bool {
	return false
}

// BoardSnapshot returns a static copy of the board.
func (l *Level) BoardSnapshot() protocol.Board {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Level) snapshotLocked() protocol.Board {
	ids := make([]int32, len(l.spaces))
	for i := range l.spaces {
		ids[i] = l.spaces[i].id()
	}
	return protocol.Board{Width: l.width, Height: l.height, Spaces: ids}
}

func (l *Level) rosterLocked() []character.Manager {
	out := make([]character.Manager, 0, len(l.roster))
	for mgr := range l.roster {
		out = append(out, mgr)
	}
	return out
}

func (l *Level) broadcast(targets []character.Manager, updates []protocol.BoardSpace) {
	if len(updates) == 0 {
		return
	}
	for _, mgr := range targets {
		mgr.SendUpdates(updates)
	}
}

// Occupants returns the managers whose characters stand on the level.
func (l *Level) Occupants() []character.Manager {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rosterLocked()
}

// MemberCount returns how many characters stand on the level.
func (l *Level) MemberCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.roster)
}
