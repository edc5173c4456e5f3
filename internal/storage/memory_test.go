package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutIfAbsentKeepsFirstValue(t *testing.T) {
	m := NewMemoryStore[string, int]()
	assert.Equal(t, 1, m.PutIfAbsent("a", 1))
	assert.Equal(t, 1, m.PutIfAbsent("a", 2))

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestConcurrentWriters(t *testing.T) {
	m := NewMemoryStore[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.PutIfAbsent(i%10, i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, m.Len())
}
