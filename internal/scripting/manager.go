package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/dice"
)

// ActorInfo is a snapshot of a character's state passed to Lua callbacks.
type ActorInfo struct {
	Name  string
	X     int32
	Y     int32
	HP    int32
	MaxHP int32
}

// vm is one loaded behavior script with its own sandboxed state.
type vm struct {
	L      *lua.LState
	cancel context.CancelFunc
	limit  int
}

// Manager owns one sandboxed LState per behavior script and exposes the
// decide hook. Each LState is single-threaded; the mutex serializes every
// call so dungeon ticks on different goroutines cannot share a VM
// mid-execution.
type Manager struct {
	mu     sync.Mutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadDir creates a sandboxed VM for every *.lua file in dir, keyed by
// file name. Files load in lexicographic order; a VM loaded earlier under
// the same name is replaced.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadDir(dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := m.load(name, filepath.Join(dir, name), instLimit); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) load(name, path string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	if err := L.DoFile(path); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", path, err)
	}

	m.mu.Lock()
	if old, ok := m.vms[name]; ok {
		old.cancel()
		old.L.Close()
	}
	m.vms[name] = &vm{L: L, cancel: cancel, limit: instLimit}
	m.mu.Unlock()
	return nil
}

// Loaded reports whether a script is registered under name.
func (m *Manager) Loaded(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vms[name]
	return ok
}

// Close shuts down every VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vms {
		v.cancel()
		v.L.Close()
	}
	m.vms = make(map[string]*vm)
}

// CallDecide calls the script's global decide(self, players) function and
// returns its string result. Returns ok=false when the script is missing,
// defines no decide hook, errors at runtime, or returns a non-string. Lua
// errors are logged at Warn level and never propagated.
func (m *Manager) CallDecide(name string, self ActorInfo, players []ActorInfo) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vms[name]
	if !ok {
		return "", false
	}

	fn := v.L.GetGlobal("decide")
	if fn == lua.LNil {
		return "", false
	}

	// Fresh instruction budget per call; the counter does not reset itself.
	v.cancel()
	ctx, cancel := newCountingContext(budget(v.limit))
	v.cancel = cancel
	v.L.SetContext(ctx)

	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, actorTable(v.L, self), actorList(v.L, players)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", name),
			zap.Error(err),
		)
		return "", false
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	s, isString := ret.(lua.LString)
	if !isString {
		return "", false
	}
	return string(s), true
}

func budget(limit int) int {
	if limit <= 0 {
		return DefaultInstructionLimit
	}
	return limit
}

func actorTable(L *lua.LState, a ActorInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "name", lua.LString(a.Name))
	L.SetField(t, "x", lua.LNumber(a.X))
	L.SetField(t, "y", lua.LNumber(a.Y))
	L.SetField(t, "hp", lua.LNumber(a.HP))
	L.SetField(t, "max_hp", lua.LNumber(a.MaxHP))
	return t
}

func actorList(L *lua.LState, actors []ActorInfo) *lua.LTable {
	t := L.NewTable()
	for _, a := range actors {
		t.Append(actorTable(L, a))
	}
	return t
}
