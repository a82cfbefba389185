package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/delvegame/delve/internal/game/dice"
)

// fixedSource returns a predetermined sequence of values.
type fixedSource struct {
	values []int
	i      int
}

func (f *fixedSource) Intn(n int) int {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v % n
}

func TestRoll_Range(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 200; i++ {
		r := dice.Roll(src, 8)
		assert.GreaterOrEqual(t, r, 1)
		assert.LessOrEqual(t, r, 8)
	}
}

func TestRoll_UsesSource(t *testing.T) {
	src := &fixedSource{values: []int{0, 7, 3}}
	assert.Equal(t, 1, dice.Roll(src, 8))
	assert.Equal(t, 8, dice.Roll(src, 8))
	assert.Equal(t, 4, dice.Roll(src, 8))
}

// TestRoll_Range_Property verifies 1 <= Roll(src, sides) <= sides for
// arbitrary die sizes.
func TestRoll_Range_Property(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		sides := rapid.IntRange(1, 1000).Draw(rt, "sides")
		r := dice.Roll(src, sides)
		if r < 1 || r > sides {
			rt.Fatalf("roll %d out of range [1,%d]", r, sides)
		}
	})
}

func TestCryptoSource_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}
