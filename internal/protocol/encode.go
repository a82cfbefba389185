package protocol

import "sort"

// Structured blobs (name maps, stat blocks, sprite maps) are written as
// explicit length-prefixed layouts rather than through a reflective
// serializer, so every encoding below is deterministic: map entries are
// sorted by key before writing.

// EncodeNameMap encodes a member-id → display-name map (command 0).
func EncodeNameMap(names map[string]string) []byte {
	w := NewWriter(CmdNameMap)
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.Int32(int32(len(keys)))
	for _, k := range keys {
		w.String(k)
		w.String(names[k])
	}
	return w.Bytes()
}

// DecodeNameMap decodes a command-0 payload.
func DecodeNameMap(msg []byte) (map[string]string, error) {
	r := NewReader(msg)
	n := r.Int32()
	names := make(map[string]string, n)
	for i := int32(0); i < n; i++ {
		k := r.String()
		v := r.String()
		if r.Err() != nil {
			return nil, r.Err()
		}
		names[k] = v
	}
	return names, r.Err()
}

// EncodeLobbyWelcome encodes the set of area membership details sent to a
// session entering the lobby (lobby command 1).
func EncodeLobbyWelcome(details []MembershipDetail) []byte {
	w := NewWriter(CmdLobbyWelcome)
	w.Int32(int32(len(details)))
	for _, d := range details {
		w.String(d.Name)
		w.Int32(d.Count)
	}
	return w.Bytes()
}

// DecodeLobbyWelcome decodes a lobby command-1 payload.
func DecodeLobbyWelcome(msg []byte) ([]MembershipDetail, error) {
	r := NewReader(msg)
	n := r.Int32()
	if r.Err() != nil {
		return nil, r.Err()
	}
	details := make([]MembershipDetail, 0, n)
	for i := int32(0); i < n; i++ {
		d := MembershipDetail{Name: r.String(), Count: r.Int32()}
		if r.Err() != nil {
			return nil, r.Err()
		}
		details = append(details, d)
	}
	return details, nil
}

// EncodeAreaCountChanged encodes a membership-count change notice
// (lobby command 2): a 4-byte count followed by raw area-name bytes.
func EncodeAreaCountChanged(name string, count int32) []byte {
	w := NewWriter(CmdAreaCountChanged)
	w.Int32(count)
	w.RawString(name)
	return w.Bytes()
}

// DecodeAreaCountChanged decodes a lobby command-2 payload.
func DecodeAreaCountChanged(msg []byte) (string, int32, error) {
	r := NewReader(msg)
	count := r.Int32()
	name := r.RestString()
	return name, count, r.Err()
}

// EncodeAreaAdded encodes an area-added notice (lobby command 3).
func EncodeAreaAdded(name string) []byte {
	w := NewWriter(CmdAreaAdded)
	w.RawString(name)
	return w.Bytes()
}

// EncodeAreaRemoved encodes an area-removed notice (lobby command 4).
func EncodeAreaRemoved(name string) []byte {
	w := NewWriter(CmdAreaRemoved)
	w.RawString(name)
	return w.Bytes()
}

// writeStats appends one stats blob to w.
func writeStats(w *Writer, s CharacterStats) {
	w.String(s.Name)
	w.Int32(s.Strength)
	w.Int32(s.Intelligence)
	w.Int32(s.Dexterity)
	w.Int32(s.Wisdom)
	w.Int32(s.Constitution)
	w.Int32(s.Charisma)
	w.Int32(s.HitPoints)
	w.Int32(s.MaxHitPoints)
}

func readStats(r *Reader) CharacterStats {
	return CharacterStats{
		Name:         r.String(),
		Strength:     r.Int32(),
		Intelligence: r.Int32(),
		Dexterity:    r.Int32(),
		Wisdom:       r.Int32(),
		Constitution: r.Int32(),
		Charisma:     r.Int32(),
		HitPoints:    r.Int32(),
		MaxHitPoints: r.Int32(),
	}
}

// EncodeCharacterList encodes the session's characters (lobby command 5).
func EncodeCharacterList(stats []CharacterStats) []byte {
	w := NewWriter(CmdCharacterList)
	w.Int32(int32(len(stats)))
	for _, s := range stats {
		writeStats(w, s)
	}
	return w.Bytes()
}

// DecodeCharacterList decodes a lobby command-5 payload.
func DecodeCharacterList(msg []byte) ([]CharacterStats, error) {
	r := NewReader(msg)
	n := r.Int32()
	if r.Err() != nil {
		return nil, r.Err()
	}
	stats := make([]CharacterStats, 0, n)
	for i := int32(0); i < n; i++ {
		s := readStats(r)
		if r.Err() != nil {
			return nil, r.Err()
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// EncodeCharacter encodes a single character snapshot (command 64):
// a 4-byte character id followed by the stats blob.
func EncodeCharacter(id int32, stats CharacterStats) []byte {
	w := NewWriter(CmdCharacter)
	w.Int32(id)
	writeStats(w, stats)
	return w.Bytes()
}

// DecodeCharacter decodes a command-64 payload.
func DecodeCharacter(msg []byte) (int32, CharacterStats, error) {
	r := NewReader(msg)
	id := r.Int32()
	stats := readStats(r)
	return id, stats, r.Err()
}

// EncodeSpriteMap encodes a sprite-id → image-bytes map preceded by the
// square sprite size in pixels (dungeon command 1).
func EncodeSpriteMap(spriteSize int32, sprites map[int32][]byte) []byte {
	w := NewWriter(CmdSpriteMap)
	w.Int32(spriteSize)
	ids := make([]int32, 0, len(sprites))
	for id := range sprites {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w.Int32(int32(len(ids)))
	for _, id := range ids {
		w.Int32(id)
		w.Int32(int32(len(sprites[id])))
		w.Raw(sprites[id])
	}
	return w.Bytes()
}

// DecodeSpriteMap decodes a dungeon command-1 payload.
func DecodeSpriteMap(msg []byte) (int32, map[int32][]byte, error) {
	r := NewReader(msg)
	size := r.Int32()
	n := r.Int32()
	if r.Err() != nil {
		return 0, nil, r.Err()
	}
	sprites := make(map[int32][]byte, n)
	for i := int32(0); i < n; i++ {
		id := r.Int32()
		length := r.Int32()
		raw := r.Bytes(int(length))
		if r.Err() != nil {
			return 0, nil, r.Err()
		}
		img := make([]byte, length)
		copy(img, raw)
		sprites[id] = img
	}
	return size, sprites, r.Err()
}

// EncodeBoard encodes a full board snapshot (dungeon command 2).
//
// Precondition: len(b.Spaces) == int(b.Width) * int(b.Height).
func EncodeBoard(b *Board) []byte {
	w := NewWriter(CmdBoard)
	w.Int32(b.Width)
	w.Int32(b.Height)
	for _, id := range b.Spaces {
		w.Int32(id)
	}
	return w.Bytes()
}

// DecodeBoard decodes a dungeon command-2 payload.
func DecodeBoard(msg []byte) (*Board, error) {
	r := NewReader(msg)
	b := &Board{Width: r.Int32(), Height: r.Int32()}
	if r.Err() != nil || b.Width < 0 || b.Height < 0 {
		return nil, ErrTruncated
	}
	total := int(b.Width) * int(b.Height)
	b.Spaces = make([]int32, 0, total)
	for i := 0; i < total; i++ {
		b.Spaces = append(b.Spaces, r.Int32())
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return b, nil
}

// EncodeBoardUpdates encodes a collection of changed spaces
// (dungeon command 3).
func EncodeBoardUpdates(updates []BoardSpace) []byte {
	w := NewWriter(CmdBoardUpdates)
	w.Int32(int32(len(updates)))
	for _, u := range updates {
		w.Int32(u.X)
		w.Int32(u.Y)
		w.Int32(u.ID)
	}
	return w.Bytes()
}

// DecodeBoardUpdates decodes a dungeon command-3 payload.
func DecodeBoardUpdates(msg []byte) ([]BoardSpace, error) {
	r := NewReader(msg)
	n := r.Int32()
	if r.Err() != nil {
		return nil, r.Err()
	}
	updates := make([]BoardSpace, 0, n)
	for i := int32(0); i < n; i++ {
		u := BoardSpace{X: r.Int32(), Y: r.Int32(), ID: r.Int32()}
		if r.Err() != nil {
			return nil, r.Err()
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// EncodeServerNotice encodes a server-generated text message
// (dungeon command 4). The text is raw bytes to the end of the payload.
func EncodeServerNotice(text string) []byte {
	w := NewWriter(CmdServerNotice)
	w.RawString(text)
	return w.Bytes()
}

// EncodeMemberNotice encodes a channel-membership notice (command 8 when
// joining, 9 when leaving) carrying the member's raw id bytes.
func EncodeMemberNotice(joined bool, memberID []byte) []byte {
	cmd := CmdMemberLeft
	if joined {
		cmd = CmdMemberJoined
	}
	w := NewWriter(cmd)
	w.Raw(memberID)
	return w.Bytes()
}
