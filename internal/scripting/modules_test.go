package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delvegame/delve/internal/scripting"
)

func TestGameRollAvailableToScripts(t *testing.T) {
	dir := t.TempDir()
	// fixedSource rolls every die at its lowest face.
	writeScript(t, dir, "gambler.lua", `
function decide(self, players)
	if game.roll(6) == 1 then
		return "up"
	end
	return "down"
end
`)
	m := newTestManager(t, dir, 0)

	choice, ok := m.CallDecide("gambler.lua", scripting.ActorInfo{}, nil)
	require.True(t, ok)
	assert.Equal(t, "up", choice)
}

func TestGameRollRejectsNonPositiveSides(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "cheater.lua", `function decide(self, players) return game.roll(0) end`)
	m := newTestManager(t, dir, 0)

	// The argument error surfaces as a swallowed runtime error.
	_, ok := m.CallDecide("cheater.lua", scripting.ActorInfo{}, nil)
	assert.False(t, ok)
}
