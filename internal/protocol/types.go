package protocol

// Direction codes carried by the dungeon move command.
const (
	DirUp    int16 = 0
	DirDown  int16 = 1
	DirLeft  int16 = 2
	DirRight int16 = 3
)

// CharacterStats is the full statistics block for one character as it
// travels on the wire. It is shared by the lobby character list, the
// character snapshot command, and the creation flow.
type CharacterStats struct {
	Name         string
	Strength     int32
	Intelligence int32
	Dexterity    int32
	Wisdom       int32
	Constitution int32
	Charisma     int32
	HitPoints    int32
	MaxHitPoints int32
}

// MembershipDetail pairs an area name with its current member count.
type MembershipDetail struct {
	Name  string
	Count int32
}

// BoardSpace is one updated cell of a level board: a coordinate and the
// identifier drawn there (tile id, or a character's sprite id).
type BoardSpace struct {
	X  int32
	Y  int32
	ID int32
}

// Board is a full snapshot of a level board in row-major order.
//
// Invariant: len(Spaces) == int(Width) * int(Height).
type Board struct {
	Width  int32
	Height int32
	Spaces []int32
}

// At returns the identifier at (x, y).
//
// Precondition: 0 <= x < Width and 0 <= y < Height.
func (b *Board) At(x, y int32) int32 {
	return b.Spaces[y*b.Width+x]
}
