// Package task provides the game task scheduler. One-shot tasks run on a
// dedicated worker goroutine in submission order; repeating tasks reschedule
// themselves after each run, so a slow pass delays the next one rather than
// stacking behind it.
package task

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler executes submitted tasks sequentially and manages repeating
// timers. It is safe for concurrent use.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	queue   chan func()
	timers  map[*RepeatingTask]struct{}
	stopped bool
	done    chan struct{}
}

// RepeatingTask is a handle to a self-rescheduling task. Cancel stops future
// runs; a run already in flight completes.
type RepeatingTask struct {
	sched *Scheduler
	fn    func()
	delay time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
}

// NewScheduler creates a scheduler with the given one-shot queue capacity and
// starts its worker goroutine.
//
// Precondition: logger must be non-nil; queueSize must be >= 1.
func NewScheduler(logger *zap.Logger, queueSize int) *Scheduler {
	if queueSize < 1 {
		panic("task.NewScheduler: queueSize must be >= 1")
	}
	s := &Scheduler{
		logger: logger,
		queue:  make(chan func(), queueSize),
		timers: make(map[*RepeatingTask]struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.done)
	for fn := range s.queue {
		s.invoke(fn)
	}
}

func (s *Scheduler) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked",
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// Submit enqueues fn for execution on the worker goroutine. Tasks run in
// submission order. Submit after Stop is a logged no-op.
//
// Precondition: fn must be non-nil.
func (s *Scheduler) Submit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Warn("task submitted after scheduler stop, dropped")
		return
	}
	// Held across the send so Stop cannot close the queue mid-submit. The
	// worker drains without taking the lock, so a full queue still clears.
	s.queue <- fn
}

// ScheduleRepeating runs fn after delay and then again delay after each
// completed run. fn runs on the timer goroutine, not the worker.
//
// Precondition: delay must be > 0; fn must be non-nil.
// Postcondition: Returns a handle whose Cancel stops future runs.
func (s *Scheduler) ScheduleRepeating(delay time.Duration, fn func()) *RepeatingTask {
	if delay <= 0 {
		panic("task.ScheduleRepeating: delay must be > 0")
	}
	rt := &RepeatingTask{sched: s, fn: fn, delay: delay}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		rt.cancelled = true
		return rt
	}
	s.timers[rt] = struct{}{}
	s.mu.Unlock()

	rt.arm()
	return rt
}

func (rt *RepeatingTask) arm() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.cancelled {
		return
	}
	rt.timer = time.AfterFunc(rt.delay, rt.fire)
}

func (rt *RepeatingTask) fire() {
	rt.mu.Lock()
	cancelled := rt.cancelled
	rt.mu.Unlock()
	if cancelled {
		return
	}
	rt.sched.invoke(rt.fn)
	// Reschedule only after the run completes.
	rt.arm()
}

// Cancel stops future runs. Safe to call multiple times.
//
// Postcondition: fn is not invoked again after any in-flight run completes.
func (rt *RepeatingTask) Cancel() {
	rt.mu.Lock()
	rt.cancelled = true
	if rt.timer != nil {
		rt.timer.Stop()
	}
	rt.mu.Unlock()

	rt.sched.mu.Lock()
	delete(rt.sched.timers, rt)
	rt.sched.mu.Unlock()
}

// Stop cancels all repeating tasks, drains the one-shot queue, and waits for
// the worker to finish. Safe to call once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.stopped = true
	timers := make([]*RepeatingTask, 0, len(s.timers))
	for rt := range s.timers {
		timers = append(timers, rt)
	}
	s.mu.Unlock()

	for _, rt := range timers {
		rt.Cancel()
	}
	close(s.queue)
	<-s.done
}
