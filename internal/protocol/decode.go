package protocol

// Client-to-server payload decoders. Each returns ErrTruncated for a
// payload that ends early; the handler logs and drops the message.

// EncodeMoveRequest encodes a lobby move-to-area request (lobby client
// command 1): 4-byte area-name length, area-name bytes, then character-name
// bytes to the end of the payload.
func EncodeMoveRequest(areaName, characterName string) []byte {
	w := NewWriter(CmdMoveRequest)
	w.String(areaName)
	w.RawString(characterName)
	return w.Bytes()
}

// DecodeMoveRequest decodes a lobby client command-1 payload.
func DecodeMoveRequest(msg []byte) (areaName, characterName string, err error) {
	r := NewReader(msg)
	areaName = r.String()
	characterName = r.RestString()
	return areaName, characterName, r.Err()
}

// EncodeMoveDirection encodes a dungeon movement request (dungeon client
// command 1): a 2-byte signed direction code.
func EncodeMoveDirection(direction int16) []byte {
	w := NewWriter(CmdMove)
	w.Int16(direction)
	return w.Bytes()
}

// DecodeMoveDirection decodes a dungeon client command-1 payload.
func DecodeMoveDirection(msg []byte) (int16, error) {
	r := NewReader(msg)
	d := r.Int16()
	return d, r.Err()
}

// EncodeCreateCharacter encodes a character-creation request (creator
// client command 1): a 4-byte sprite id followed by the name bytes.
func EncodeCreateCharacter(spriteID int32, name string) []byte {
	w := NewWriter(CmdCreateCharacter)
	w.Int32(spriteID)
	w.RawString(name)
	return w.Bytes()
}

// DecodeCreateCharacter decodes a creator client command-1 payload.
func DecodeCreateCharacter(msg []byte) (int32, string, error) {
	r := NewReader(msg)
	id := r.Int32()
	name := r.RestString()
	return id, name, r.Err()
}

// EncodeCredentials encodes a login or registration request (pre-session
// command 1 or 2): 4-byte name length, name bytes, then password bytes to
// the end of the payload.
func EncodeCredentials(command byte, name, password string) []byte {
	w := NewWriter(command)
	w.String(name)
	w.RawString(password)
	return w.Bytes()
}

// DecodeCredentials decodes a login or registration payload.
func DecodeCredentials(msg []byte) (name, password string, err error) {
	r := NewReader(msg)
	name = r.String()
	password = r.RestString()
	return name, password, r.Err()
}

// EncodeAuthOK encodes a successful authentication reply: the raw session
// name bytes.
func EncodeAuthOK(name string) []byte {
	w := NewWriter(CmdAuthOK)
	w.RawString(name)
	return w.Bytes()
}

// EncodeAuthFailed encodes a rejected authentication reply: the raw reason
// bytes.
func EncodeAuthFailed(reason string) []byte {
	w := NewWriter(CmdAuthFailed)
	w.RawString(reason)
	return w.Bytes()
}
