package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndLookup(t *testing.T) {
	a := NewArena()
	a.Bind("lobby", "the-lobby")

	obj, ok := a.Lookup("lobby")
	require.True(t, ok)
	assert.Equal(t, "the-lobby", obj)
}

func TestLookupUnbound(t *testing.T) {
	a := NewArena()
	obj, ok := a.Lookup("missing")
	assert.False(t, ok)
	assert.Nil(t, obj)
}

func TestBindReplaces(t *testing.T) {
	a := NewArena()
	a.Bind("x", 1)
	a.Bind("x", 2)

	obj, ok := a.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 2, obj)
}

func TestBindIfAbsentCreatesOnce(t *testing.T) {
	a := NewArena()
	calls := 0

	obj, created := a.BindIfAbsent("lobby", func() any {
		calls++
		return "first"
	})
	assert.True(t, created)
	assert.Equal(t, "first", obj)

	obj, created = a.BindIfAbsent("lobby", func() any {
		calls++
		return "second"
	})
	assert.False(t, created)
	assert.Equal(t, "first", obj)
	assert.Equal(t, 1, calls)
}

func TestBindIfAbsentConcurrent(t *testing.T) {
	a := NewArena()

	const goroutines = 32
	results := make([]any, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obj, _ := a.BindIfAbsent("shared", func() any {
				return new(int)
			})
			results[i] = obj
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i], "caller %d got a different instance", i)
	}
}

func TestUnbind(t *testing.T) {
	a := NewArena()
	a.Bind("x", 1)
	a.Unbind("x")

	_, ok := a.Lookup("x")
	assert.False(t, ok)

	// Unbinding an absent name must not panic.
	a.Unbind("x")
}

func TestNames(t *testing.T) {
	a := NewArena()
	a.Bind("a", 1)
	a.Bind("b", 2)

	assert.ElementsMatch(t, []string{"a", "b"}, a.Names())
}
