package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncedSwissMap(t *testing.T) {
	m := NewSyncedSwissMap[string, int](4)

	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Length())

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))

	_, ok = m.Get("a")
	assert.False(t, ok)

	assert.True(t, m.SetIfAbsent("a", 7))
	assert.False(t, m.SetIfAbsent("a", 8))

	v, _ = m.Get("a")
	assert.Equal(t, 7, v)
}

func TestSyncedSwissMapConcurrent(t *testing.T) {
	m := NewSyncedSwissMap[int, int](16)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func(offset int) {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				m.Set(offset*100+j, j)
				_, _ = m.Get(j)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 800, m.Length())
}
