package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/delvegame/delve/internal/protocol"
)

// fixedSource always rolls its configured values in order, repeating the
// last one.
type fixedSource struct {
	values []int
	idx    int
}

func (s *fixedSource) Intn(n int) int {
	v := s.values[s.idx]
	if s.idx < len(s.values)-1 {
		s.idx++
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// rollOf returns a source that makes dice.Roll produce exactly roll.
func rollOf(roll int) *fixedSource {
	return &fixedSource{values: []int{roll - 1}}
}

type fakeNotifier struct {
	characters  []protocol.CharacterStats
	notices     []string
	boards      []protocol.Board
	updates     [][]protocol.BoardSpace
	lobbyMoves  int
	characterID int32
}

func (n *fakeNotifier) SendCharacter(id int32, stats protocol.CharacterStats) {
	n.characterID = id
	n.characters = append(n.characters, stats)
}
func (n *fakeNotifier) SendServerNotice(text string) { n.notices = append(n.notices, text) }
func (n *fakeNotifier) SendBoard(b protocol.Board)   { n.boards = append(n.boards, b) }
func (n *fakeNotifier) SendBoardUpdates(u []protocol.BoardSpace) {
	n.updates = append(n.updates, u)
}
func (n *fakeNotifier) ScheduleMoveToLobby() { n.lobbyMoves++ }

type fakeLevel struct {
	name    string
	removed []Manager
}

func (l *fakeLevel) Name() string                          { return l.name }
func (l *fakeLevel) AddCharacterAt(Manager, int32, int32) bool { return true }
func (l *fakeLevel) RemoveCharacter(mgr Manager)           { l.removed = append(l.removed, mgr) }
func (l *fakeLevel) Move(Manager, int16) bool              { return false }
func (l *fakeLevel) Take(Manager) bool                     { return false }
func (l *fakeLevel) BoardSnapshot() protocol.Board         { return protocol.Board{} }

func warriorStats(hp, maxHP int32) protocol.CharacterStats {
	return protocol.CharacterStats{
		Name:         "grendel",
		Strength:     14,
		Intelligence: 8,
		Dexterity:    12,
		Wisdom:       10,
		Constitution: 13,
		Charisma:     9,
		HitPoints:    hp,
		MaxHitPoints: maxHP,
	}
}

func newTestPlayer(t *testing.T, hp, maxHP int32, src *fixedSource) (*PlayerCharacterManager, *PlayerCharacter, *fakeNotifier) {
	t.Helper()
	n := &fakeNotifier{}
	m := NewPlayerCharacterManager(n, src, 8)
	pc, err := m.AddCharacter(7, warriorStats(hp, maxHP))
	require.NoError(t, err)
	require.NoError(t, m.SetCurrentCharacter("grendel"))
	return m, pc, n
}

func TestTakeDamageFloorsAtZero(t *testing.T) {
	_, pc, _ := newTestPlayer(t, 5, 20, rollOf(1))

	pc.TakeDamage(3)
	assert.Equal(t, int32(2), pc.Stats().HitPoints)

	pc.TakeDamage(10)
	assert.Equal(t, int32(0), pc.Stats().HitPoints)
}

func TestCollideDefenderHoldsGround(t *testing.T) {
	_, attackerPC, _ := newTestPlayer(t, 20, 20, rollOf(3))
	_, defenderPC, _ := newTestPlayer(t, 20, 20, rollOf(1))

	result := Collide(attackerPC, defenderPC)
	assert.Equal(t, ActionFail, result)
	assert.Equal(t, int32(17), defenderPC.Stats().HitPoints)
}

func TestCollideSendsDamageNoticeAndSnapshot(t *testing.T) {
	_, attackerPC, _ := newTestPlayer(t, 20, 20, rollOf(3))
	_, defenderPC, defN := newTestPlayer(t, 20, 20, rollOf(1))

	Collide(attackerPC, defenderPC)

	require.Len(t, defN.notices, 1)
	assert.Contains(t, defN.notices[0], "3 damage")
	assert.Contains(t, defN.notices[0], "grendel")

	require.Len(t, defN.characters, 1)
	assert.Equal(t, int32(17), defN.characters[0].HitPoints)
	assert.Equal(t, int32(7), defN.characterID)
}

func TestDeathResetsAndSchedulesLobbyMove(t *testing.T) {
	// A 5 HP player struck for 8 damage dies, leaves the level, heals to
	// max, and gets a lobby move scheduled.
	monster := NewAICharacterManager(42, protocol.CharacterStats{
		Name: "troll", HitPoints: 30, MaxHitPoints: 30,
	}, rollOf(8), 8, nil)

	defMgr, defenderPC, defN := newTestPlayer(t, 5, 20, rollOf(1))
	level := &fakeLevel{name: "depths:0"}
	defMgr.SetCurrentLevel(level)
	defMgr.SetPosition(3, 4)

	result := Collide(monster.CurrentCharacter(), defenderPC)
	assert.Equal(t, ActionFail, result)

	assert.Contains(t, defN.notices, "You died!")
	assert.Equal(t, []Manager{defMgr}, level.removed)
	assert.Nil(t, defMgr.CurrentLevel())

	x, y := defMgr.Position()
	assert.Equal(t, int32(-1), x)
	assert.Equal(t, int32(-1), y)

	assert.Equal(t, int32(20), defenderPC.Stats().HitPoints)
	assert.Equal(t, 1, defN.lobbyMoves)

	// The snapshot pushed to the client shows the lethal state.
	require.NotEmpty(t, defN.characters)
	assert.Equal(t, int32(0), defN.characters[0].HitPoints)
}

func TestHitPointsClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxHP := rapid.Int32Range(1, 100).Draw(t, "max_hp")
		hp := rapid.Int32Range(1, maxHP).Draw(t, "hp")
		damage := rapid.Int32Range(0, 200).Draw(t, "damage")

		n := &fakeNotifier{}
		m := NewPlayerCharacterManager(n, rollOf(1), 8)
		pc, err := m.AddCharacter(1, warriorStats(hp, maxHP))
		if err != nil {
			t.Fatalf("add character: %v", err)
		}

		pc.TakeDamage(damage)
		got := pc.Stats().HitPoints
		want := hp - damage
		if want < 0 {
			want = 0
		}
		if got != want {
			t.Fatalf("hp after %d damage: got %d, want %d", damage, got, want)
		}
		if got < 0 || got > maxHP {
			t.Fatalf("hp %d outside [0, %d]", got, maxHP)
		}
	})
}
