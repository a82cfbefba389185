// Package membership batches area roster-change events and periodically
// delivers compressed deltas to registered listeners. Between ticks an add
// cancels a pending remove for the same area and vice versa, and only the
// most recent member count per area survives, so listeners see one
// coherent delta per pass instead of every intermediate event.
package membership

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/task"
	"github.com/delvegame/delve/internal/protocol"
)

// DefaultTick is the delay between delivery passes when none is configured.
const DefaultTick = 4000 * time.Millisecond

// Listener receives compressed membership deltas. Within one pass removals
// arrive before additions before count changes, so a listener never sees a
// stale count for a just-removed area.
type Listener interface {
	AreaAdded(names []string)
	AreaRemoved(names []string)
	MembershipChanged(details []protocol.MembershipDetail)
}

// Aggregator is the process-wide membership event collector. It runs
// forever once started; only Stop halts rescheduling.
type Aggregator struct {
	logger *zap.Logger
	sched  *task.Scheduler
	tick   time.Duration

	mu        sync.Mutex
	listeners []Listener
	added     map[string]struct{}
	removed   map[string]struct{}
	updates   map[string]protocol.MembershipDetail
	timer     *task.RepeatingTask
}

// NewAggregator creates an aggregator delivering via sched every tick.
// A non-positive tick selects DefaultTick.
//
// Precondition: logger and sched must be non-nil.
func NewAggregator(logger *zap.Logger, sched *task.Scheduler, tick time.Duration) *Aggregator {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Aggregator{
		logger:  logger.With(zap.String("component", "membership")),
		sched:   sched,
		tick:    tick,
		added:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
		updates: make(map[string]protocol.MembershipDetail),
	}
}

// Start schedules the periodic delivery pass. The next pass is scheduled
// after the previous one completes, so a slow pass delays the next rather
// than overlapping it.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		return
	}
	a.timer = a.sched.ScheduleRepeating(a.tick, a.deliver)
}

// Stop halts future delivery passes.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	timer := a.timer
	a.timer = nil
	a.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
}

// AddListener registers a delta recipient.
//
// Precondition: l must be non-nil.
func (a *Aggregator) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// NotifyAreaAdded records that the named area now exists. A pending
// removal for the same name is cancelled.
func (a *Aggregator) NotifyAreaAdded(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.added[name] = struct{}{}
	delete(a.removed, name)
}

// NotifyAreaRemoved records that the named area is gone. Pending count
// updates for the name are cancelled; removed areas never report stale
// counts. Removing an area whose addition is still pending cancels both
// notices entirely, since listeners were never told the area existed.
func (a *Aggregator) NotifyAreaRemoved(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, pending := a.added[name]; pending {
		delete(a.added, name)
	} else {
		a.removed[name] = struct{}{}
	}
	delete(a.updates, name)
}

// NotifyMembershipChanged records the area's current member count,
// last write wins.
func (a *Aggregator) NotifyMembershipChanged(name string, count int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates[name] = protocol.MembershipDetail{Name: name, Count: count}
}

// deliver runs one delivery pass: removals, then additions, then count
// changes, each to every listener, then clears all three collections. A
// panicking listener does not stop delivery to the others.
func (a *Aggregator) deliver() {
	a.mu.Lock()
	listeners := append([]Listener(nil), a.listeners...)
	removed := drainSet(a.removed)
	added := drainSet(a.added)
	changed := make([]protocol.MembershipDetail, 0, len(a.updates))
	for name, detail := range a.updates {
		changed = append(changed, detail)
		delete(a.updates, name)
	}
	a.mu.Unlock()

	if len(removed) > 0 {
		for _, l := range listeners {
			a.safeDeliver(func() { l.AreaRemoved(removed) })
		}
	}
	if len(added) > 0 {
		for _, l := range listeners {
			a.safeDeliver(func() { l.AreaAdded(added) })
		}
	}
	if len(changed) > 0 {
		for _, l := range listeners {
			a.safeDeliver(func() { l.MembershipChanged(changed) })
		}
	}
}

func (a *Aggregator) safeDeliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("listener panicked during delivery",
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

func drainSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
		delete(set, name)
	}
	return out
}
