package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/delvegame/delve/internal/protocol"
)

// TestEncodeAreaAdded_Layout verifies the fixed byte layout: command byte
// first, then the raw UTF-8 name with no terminator.
func TestEncodeAreaAdded_Layout(t *testing.T) {
	msg := protocol.EncodeAreaAdded("dungeon1")
	require.NotEmpty(t, msg)
	assert.Equal(t, protocol.CmdAreaAdded, protocol.Command(msg))
	assert.Equal(t, []byte("dungeon1"), msg[1:])
}

func TestEncodeAreaCountChanged_Layout(t *testing.T) {
	msg := protocol.EncodeAreaCountChanged("lobby", 7)
	assert.Equal(t, protocol.CmdAreaCountChanged, protocol.Command(msg))
	// 4-byte big-endian count, then raw name bytes.
	assert.Equal(t, []byte{0, 0, 0, 7}, msg[1:5])
	assert.Equal(t, []byte("lobby"), msg[5:])

	name, count, err := protocol.DecodeAreaCountChanged(msg)
	require.NoError(t, err)
	assert.Equal(t, "lobby", name)
	assert.Equal(t, int32(7), count)
}

func TestNameMap_Roundtrip(t *testing.T) {
	in := map[string]string{
		"0a1b": "alice",
		"ffee": "bob",
	}
	out, err := protocol.DecodeNameMap(protocol.EncodeNameMap(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLobbyWelcome_Roundtrip(t *testing.T) {
	in := []protocol.MembershipDetail{
		{Name: "lobby", Count: 3},
		{Name: "dungeon1", Count: 0},
	}
	out, err := protocol.DecodeLobbyWelcome(protocol.EncodeLobbyWelcome(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCharacter_Roundtrip(t *testing.T) {
	stats := protocol.CharacterStats{
		Name: "seth", Strength: 20, Intelligence: 20, Dexterity: 20,
		Wisdom: 20, Constitution: 20, Charisma: 20,
		HitPoints: 50, MaxHitPoints: 50,
	}
	id, out, err := protocol.DecodeCharacter(protocol.EncodeCharacter(41, stats))
	require.NoError(t, err)
	assert.Equal(t, int32(41), id)
	assert.Equal(t, stats, out)
}

func TestSpriteMap_Roundtrip(t *testing.T) {
	sprites := map[int32][]byte{
		1:  {0xde, 0xad},
		41: {0xbe, 0xef, 0x00},
	}
	size, out, err := protocol.DecodeSpriteMap(protocol.EncodeSpriteMap(32, sprites))
	require.NoError(t, err)
	assert.Equal(t, int32(32), size)
	assert.Equal(t, sprites, out)
}

func TestBoardUpdates_Roundtrip(t *testing.T) {
	in := []protocol.BoardSpace{{X: 1, Y: 2, ID: 41}, {X: 0, Y: 0, ID: -1}}
	out, err := protocol.DecodeBoardUpdates(protocol.EncodeBoardUpdates(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMoveRequest_Roundtrip(t *testing.T) {
	area, char, err := protocol.DecodeMoveRequest(protocol.EncodeMoveRequest("dungeon1", "seth"))
	require.NoError(t, err)
	assert.Equal(t, "dungeon1", area)
	assert.Equal(t, "seth", char)
}

// TestMoveRequest_EmptyCharacterName covers the trailing-field layout: the
// character name occupies the remaining buffer, so empty is representable.
func TestMoveRequest_EmptyCharacterName(t *testing.T) {
	area, char, err := protocol.DecodeMoveRequest(protocol.EncodeMoveRequest("lobby", ""))
	require.NoError(t, err)
	assert.Equal(t, "lobby", area)
	assert.Empty(t, char)
}

func TestMoveDirection_Roundtrip(t *testing.T) {
	for _, dir := range []int16{1, 2, 3, 4, -1} {
		got, err := protocol.DecodeMoveDirection(protocol.EncodeMoveDirection(dir))
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	}
}

func TestMemberNotice_Commands(t *testing.T) {
	id := []byte{0x01, 0x02, 0x03}
	joined := protocol.EncodeMemberNotice(true, id)
	left := protocol.EncodeMemberNotice(false, id)
	assert.Equal(t, protocol.CmdMemberJoined, protocol.Command(joined))
	assert.Equal(t, protocol.CmdMemberLeft, protocol.Command(left))
	assert.Equal(t, id, joined[1:])
	assert.Equal(t, id, left[1:])
}

// TestDecode_Truncated verifies that every decoder reports ErrTruncated
// rather than panicking when the payload ends early.
func TestDecode_Truncated(t *testing.T) {
	full := protocol.EncodeLobbyWelcome([]protocol.MembershipDetail{{Name: "lobby", Count: 1}})
	for cut := 1; cut < len(full); cut++ {
		_, err := protocol.DecodeLobbyWelcome(full[:cut])
		assert.ErrorIs(t, err, protocol.ErrTruncated, "cut at %d", cut)
	}

	char := protocol.EncodeCharacter(7, protocol.CharacterStats{Name: "x"})
	_, _, err := protocol.DecodeCharacter(char[:len(char)-2])
	assert.ErrorIs(t, err, protocol.ErrTruncated)

	_, err = protocol.DecodeMoveDirection([]byte{protocol.CmdMove})
	assert.ErrorIs(t, err, protocol.ErrTruncated)
}

// TestBoard_Roundtrip_Property exercises arbitrary board dimensions and
// contents through the full-board codec.
func TestBoard_Roundtrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.Int32Range(0, 12).Draw(rt, "w")
		h := rapid.Int32Range(0, 12).Draw(rt, "h")
		spaces := make([]int32, 0, w*h)
		for i := int32(0); i < w*h; i++ {
			spaces = append(spaces, rapid.Int32().Draw(rt, "id"))
		}
		in := &protocol.Board{Width: w, Height: h, Spaces: spaces}
		out, err := protocol.DecodeBoard(protocol.EncodeBoard(in))
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		if out.Width != w || out.Height != h {
			rt.Fatalf("dimensions changed: %dx%d -> %dx%d", w, h, out.Width, out.Height)
		}
		for i := range spaces {
			if out.Spaces[i] != spaces[i] {
				rt.Fatalf("space %d changed", i)
			}
		}
	})
}
