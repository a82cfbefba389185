package membership

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/protocol"
)

type recordingListener struct {
	mu      sync.Mutex
	added   [][]string
	removed [][]string
	changed [][]protocol.MembershipDetail
	calls   []string
}

func (l *recordingListener) AreaAdded(names []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.added = append(l.added, names)
	l.calls = append(l.calls, "added")
}

func (l *recordingListener) AreaRemoved(names []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, names)
	l.calls = append(l.calls, "removed")
}

func (l *recordingListener) MembershipChanged(details []protocol.MembershipDetail) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changed = append(l.changed, details)
	l.calls = append(l.calls, "changed")
}

type panickyListener struct{}

func (panickyListener) AreaAdded([]string)                          { panic("added") }
func (panickyListener) AreaRemoved([]string)                        { panic("removed") }
func (panickyListener) MembershipChanged([]protocol.MembershipDetail) { panic("changed") }

func newTestAggregator(t *testing.T) (*Aggregator, *task.Scheduler) {
	t.Helper()
	sched := task.NewScheduler(zaptest.NewLogger(t), 16)
	t.Cleanup(sched.Stop)
	return NewAggregator(zaptest.NewLogger(t), sched, time.Hour), sched
}

func TestDeliverCompressedDelta(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyAreaAdded("depths")
	a.NotifyAreaRemoved("old-keep")
	a.NotifyMembershipChanged("lobby", 3)

	a.deliver()

	require.Len(t, l.added, 1)
	assert.Equal(t, []string{"depths"}, l.added[0])
	require.Len(t, l.removed, 1)
	assert.Equal(t, []string{"old-keep"}, l.removed[0])
	require.Len(t, l.changed, 1)
	assert.Equal(t, []protocol.MembershipDetail{{Name: "lobby", Count: 3}}, l.changed[0])

	// Removals before additions before count changes.
	assert.Equal(t, []string{"removed", "added", "changed"}, l.calls)
}

func TestAddThenRemoveCancelsBoth(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyAreaAdded("x")
	a.NotifyAreaRemoved("x")

	a.deliver()

	// Listeners were never told "x" existed, so neither notice goes out.
	assert.Empty(t, l.added)
	assert.Empty(t, l.removed)
}

func TestRemoveThenAddCancelsRemove(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyAreaRemoved("x")
	a.NotifyAreaAdded("x")

	a.deliver()

	assert.Empty(t, l.removed)
	require.Len(t, l.added, 1)
	assert.Equal(t, []string{"x"}, l.added[0])
}

func TestMembershipChangedLastWriteWins(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyMembershipChanged("x", 1)
	a.NotifyMembershipChanged("x", 7)

	a.deliver()

	require.Len(t, l.changed, 1)
	assert.Equal(t, []protocol.MembershipDetail{{Name: "x", Count: 7}}, l.changed[0])
}

func TestRemoveSuppressesStaleCount(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyMembershipChanged("x", 4)
	a.NotifyAreaRemoved("x")

	a.deliver()

	assert.Empty(t, l.changed)
	require.Len(t, l.removed, 1)
}

func TestCollectionsClearedAfterDelivery(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyAreaAdded("x")
	a.NotifyMembershipChanged("y", 2)
	a.deliver()

	// Nothing pending, so a second pass delivers nothing.
	a.deliver()

	assert.Len(t, l.added, 1)
	assert.Len(t, l.changed, 1)
	assert.Empty(t, l.removed)
}

func TestEmptyPassDeliversNothing(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.deliver()

	assert.Empty(t, l.calls)
}

func TestNoDuplicateDeliveryWithinOneTick(t *testing.T) {
	a, _ := newTestAggregator(t)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyMembershipChanged("lobby", 1)
	a.deliver()

	require.Len(t, l.changed, 1)
	assert.Equal(t, []string{"changed"}, l.calls)
}

func TestPanickingListenerDoesNotStopDelivery(t *testing.T) {
	a, _ := newTestAggregator(t)
	a.AddListener(panickyListener{})
	healthy := &recordingListener{}
	a.AddListener(healthy)

	a.NotifyAreaAdded("x")
	a.NotifyAreaRemoved("y")
	a.NotifyMembershipChanged("z", 1)

	a.deliver()

	assert.Len(t, healthy.added, 1)
	assert.Len(t, healthy.removed, 1)
	assert.Len(t, healthy.changed, 1)

	// And the aggregator state survives for the next pass.
	a.NotifyAreaAdded("w")
	a.deliver()
	assert.Len(t, healthy.added, 2)
}

func TestAddRemoveMutuallyExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sched := task.NewScheduler(zap.NewNop(), 16)
		defer sched.Stop()
		a := NewAggregator(zap.NewNop(), sched, time.Hour)
		l := &recordingListener{}
		a.AddListener(l)

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 20).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				a.NotifyAreaAdded("x")
			case 1:
				a.NotifyAreaRemoved("x")
			case 2:
				a.NotifyMembershipChanged("x", 1)
			}
		}

		a.deliver()

		// However the events interleave, one pass never announces both
		// the addition and the removal of the same area.
		if len(l.added) > 0 && len(l.removed) > 0 {
			t.Fatalf("both added and removed delivered for ops %v", ops)
		}
	})
}

func TestStartDeliversPeriodically(t *testing.T) {
	sched := task.NewScheduler(zaptest.NewLogger(t), 16)
	t.Cleanup(sched.Stop)
	a := NewAggregator(zaptest.NewLogger(t), sched, 10*time.Millisecond)
	l := &recordingListener{}
	a.AddListener(l)

	a.NotifyAreaAdded("depths")
	a.Start()
	defer a.Stop()

	deadline := time.After(2 * time.Second)
	for {
		l.mu.Lock()
		n := len(l.added)
		l.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("tick never delivered")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestStartIdempotent(t *testing.T) {
	a, _ := newTestAggregator(t)
	a.Start()
	a.Start()
	a.Stop()
	a.Stop()
}
