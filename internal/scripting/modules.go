package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the game.* Lua table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: game global is defined in L; game.roll(sides) rolls one
// die with the manager's randomness source.
func (m *Manager) RegisterModules(L *lua.LState) {
	game := L.NewTable()
	L.SetField(game, "roll", L.NewFunction(func(L *lua.LState) int {
		sides := L.CheckInt(1)
		if sides < 1 {
			L.ArgError(1, "sides must be positive")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(sides) + 1))
		return 1
	}))
	L.SetGlobal("game", game)
}
