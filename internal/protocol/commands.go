// Package protocol implements the binary wire format spoken between the
// game server and its clients: one command byte followed by a payload of
// fixed big-endian fields, raw UTF-8 string bytes, or a length-prefixed
// structured blob. The codec is pure byte-layout transformation; it never
// touches a connection and never mutates game state.
//
// Command codes are scoped per area type: code 1 is the lobby welcome on a
// lobby channel and the sprite map on a dungeon channel. The message handler
// bound to a session's current area is solely responsible for interpretation.
package protocol

// Commands shared by every area channel.
const (
	// CmdNameMap carries a member-id → display-name map, bulk or single entry.
	CmdNameMap byte = 0
	// CmdMemberJoined and CmdMemberLeft carry the raw channel-membership id
	// of a member that joined or left the channel.
	CmdMemberJoined byte = 8
	CmdMemberLeft   byte = 9
	// CmdCharacter carries a 4-byte character id followed by a stats blob.
	CmdCharacter byte = 64
)

// Server-to-client commands on a lobby channel.
const (
	CmdLobbyWelcome     byte = 1 // set of (area name, member count) details
	CmdAreaCountChanged byte = 2 // 4-byte count, then raw area-name bytes
	CmdAreaAdded        byte = 3 // raw area-name bytes
	CmdAreaRemoved      byte = 4 // raw area-name bytes
	CmdCharacterList    byte = 5 // set of character stats blobs
)

// Client-to-server commands on a lobby channel.
const (
	// CmdMoveRequest asks to move into a named area playing a named
	// character: 4-byte name length, area-name bytes, then character-name
	// bytes to the end of the payload.
	CmdMoveRequest byte = 1
)

// Server-to-client commands on a dungeon channel.
const (
	CmdSpriteMap    byte = 1 // 4-byte sprite size, then id → sprite-bytes map
	CmdBoard        byte = 2 // full board snapshot
	CmdBoardUpdates byte = 3 // collection of changed board spaces
	CmdServerNotice byte = 4 // raw text bytes, server-generated
)

// Client-to-server commands on a dungeon channel.
const (
	CmdMove  byte = 1 // 2-byte signed direction code
	CmdTake  byte = 2
	CmdEquip byte = 3
	CmdUse   byte = 4
)

// Client-to-server commands on the character-creation channel.
const (
	// CmdCreateCharacter carries a 4-byte sprite id followed by the new
	// character's name bytes.
	CmdCreateCharacter byte = 1
	// CmdCreateDone asks to return to the lobby.
	CmdCreateDone byte = 2
)

// Commands exchanged before a connection is bound to a session.
const (
	// CmdLogin and CmdRegister carry a 4-byte name length, name bytes, then
	// password bytes to the end of the payload.
	CmdLogin    byte = 1
	CmdRegister byte = 2
	// CmdAuthOK carries the raw session name; CmdAuthFailed a raw reason.
	CmdAuthOK     byte = 1
	CmdAuthFailed byte = 2
)

// Command returns the command byte of an encoded message.
//
// Precondition: msg must be non-empty; callers bound-check before decode.
func Command(msg []byte) byte {
	return msg[0]
}
