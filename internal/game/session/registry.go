package session

import (
	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/dice"
	"github.com/delvegame/delve/internal/game/registry"
	"github.com/delvegame/delve/internal/game/task"
)

// bindingPrefix namespaces session bindings in the shared arena.
const bindingPrefix = "session:"

// Registry materializes sessions lazily by user name. Concurrent logins for
// the same name converge on one session; the loser of the creation race
// discards its candidate.
type Registry struct {
	arena     *registry.Arena
	logger    *zap.Logger
	sched     *task.Scheduler
	src       dice.Source
	damageDie int
	lobby     func() Area
}

// NewRegistry creates a session registry on top of the shared arena.
//
// Precondition: all arguments must be non-nil; damageDie >= 1.
func NewRegistry(arena *registry.Arena, logger *zap.Logger, sched *task.Scheduler, src dice.Source, damageDie int, lobby func() Area) *Registry {
	return &Registry{
		arena:     arena,
		logger:    logger,
		sched:     sched,
		src:       src,
		damageDie: damageDie,
		lobby:     lobby,
	}
}

// FindOrCreate returns the session bound to name, creating it on first
// login.
//
// Postcondition: All callers for the same name receive the same session.
func (r *Registry) FindOrCreate(name string) *Session {
	obj, created := r.arena.BindIfAbsent(bindingPrefix+name, func() any {
		return New(name, r.logger, r.sched, func(n character.Notifier) *character.PlayerCharacterManager {
			return character.NewPlayerCharacterManager(n, r.src, r.damageDie)
		}, r.lobby)
	})
	if created {
		r.logger.Info("session created", zap.String("session", name))
	}
	return obj.(*Session)
}

// Lookup returns the session bound to name, or nil if the user has never
// logged in.
func (r *Registry) Lookup(name string) *Session {
	obj, ok := r.arena.Lookup(bindingPrefix + name)
	if !ok {
		return nil
	}
	return obj.(*Session)
}
