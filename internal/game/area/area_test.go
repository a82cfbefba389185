package area

import (
	stdnet "net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/membership"
	"github.com/delvegame/delve/internal/game/registry"
	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/net"
	"github.com/delvegame/delve/internal/protocol"
)

// fixedSource always picks the same face, so rolls are deterministic.
type fixedSource struct{ pick int }

func (f fixedSource) Intn(n int) int {
	if f.pick >= n {
		return n - 1
	}
	return f.pick
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	logger := zaptest.NewLogger(t)
	sched := task.NewScheduler(logger, 64)
	t.Cleanup(sched.Stop)
	return Deps{
		Logger:    logger,
		Arena:     registry.NewArena(),
		Agg:       membership.NewAggregator(logger, sched, time.Hour),
		Sched:     sched,
		Src:       fixedSource{},
		DamageDie: 8,
	}
}

// newTestSession builds a session wired to one side of a pipe; the
// returned client side sees every frame the server sends the session.
func newTestSession(t *testing.T, deps Deps, name string) (*session.Session, stdnet.Conn) {
	t.Helper()
	s := session.New(name, zaptest.NewLogger(t), deps.Sched,
		func(n character.Notifier) *character.PlayerCharacterManager {
			return character.NewPlayerCharacterManager(n, deps.Src, deps.DamageDie)
		},
		func() session.Area { return Find(deps.Arena, LobbyName) },
	)
	client, server := stdnet.Pipe()
	conn := net.NewConn(server, zaptest.NewLogger(t), 64, 0)
	s.SetConnection(conn)
	t.Cleanup(func() {
		conn.Close()
		client.Close()
	})
	return s, client
}

func readFrameTimeout(t *testing.T, c stdnet.Conn) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	payload, err := net.ReadFrame(c)
	require.NoError(t, err)
	return payload
}

// recordingListener captures aggregator deliveries for inspection.
type recordingListener struct {
	mu      sync.Mutex
	changed [][]protocol.MembershipDetail
}

func (l *recordingListener) AreaAdded([]string)   {}
func (l *recordingListener) AreaRemoved([]string) {}

func (l *recordingListener) MembershipChanged(details []protocol.MembershipDetail) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := make([]protocol.MembershipDetail, len(details))
	copy(copied, details)
	l.changed = append(l.changed, copied)
}

func (l *recordingListener) changedBatches() [][]protocol.MembershipDetail {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]protocol.MembershipDetail, len(l.changed))
	copy(out, l.changed)
	return out
}

func TestJoinReportsCountOncePerTick(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sched := task.NewScheduler(logger, 64)
	defer sched.Stop()
	agg := membership.NewAggregator(logger, sched, 20*time.Millisecond)
	deps := Deps{
		Logger:    logger,
		Arena:     registry.NewArena(),
		Agg:       agg,
		Sched:     sched,
		Src:       fixedSource{},
		DamageDie: 8,
	}
	listener := &recordingListener{}
	agg.AddListener(listener)
	agg.Start()
	defer agg.Stop()

	lobby := FindOrCreateLobby(deps)
	s, _ := newTestSession(t, deps, "alice")
	s.MoveToArea(lobby)

	// Wait out several ticks; the single join must arrive exactly once.
	time.Sleep(120 * time.Millisecond)

	var lobbyReports int
	for _, batch := range listener.changedBatches() {
		for _, d := range batch {
			if d.Name == LobbyName {
				lobbyReports++
				assert.Equal(t, int32(1), d.Count)
			}
		}
	}
	assert.Equal(t, 1, lobbyReports)
}

func TestLobbyAndCreatorAreAnnouncedAreas(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sched := task.NewScheduler(logger, 64)
	defer sched.Stop()
	agg := membership.NewAggregator(logger, sched, 20*time.Millisecond)
	deps := Deps{
		Logger:    logger,
		Arena:     registry.NewArena(),
		Agg:       agg,
		Sched:     sched,
		Src:       fixedSource{},
		DamageDie: 8,
	}
	agg.Start()
	defer agg.Stop()

	lobby := FindOrCreateLobby(deps)
	FindOrCreateCreator(deps, idCounter(), func() session.Area { return lobby })

	// Both land in the lobby's area table on the next tick, so count
	// notices always name an area clients have been told about.
	require.Eventually(t, func() bool {
		names := make(map[string]bool)
		for _, d := range lobby.details() {
			names[d.Name] = true
		}
		return names[LobbyName] && names[CreatorName]
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLeaveAbsentSessionIsNoOp(t *testing.T) {
	deps := testDeps(t)
	lobby := FindOrCreateLobby(deps)
	s, _ := newTestSession(t, deps, "ghost")

	lobby.Leave(s)
	assert.Equal(t, 0, lobby.MemberCount())
}
