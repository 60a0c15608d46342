package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDAllocator(t *testing.T) {
	t.Parallel()

	t.Run("starts at one", func(t *testing.T) {
		var ids IDAllocator
		assert.Equal(t, int64(1), ids.Next())
		assert.Equal(t, int64(2), ids.Next())
	})

	t.Run("seed skips existing ids", func(t *testing.T) {
		var ids IDAllocator
		ids.Seed(41)
		assert.Equal(t, int64(42), ids.Next())
	})

	t.Run("seed never moves backwards", func(t *testing.T) {
		var ids IDAllocator
		ids.Seed(10)
		ids.Seed(3)
		assert.Equal(t, int64(11), ids.Next())
	})

	t.Run("concurrent ids are unique", func(t *testing.T) {
		var ids IDAllocator
		var mu sync.Mutex
		seen := make(map[int64]bool)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					id := ids.Next()
					mu.Lock()
					seen[id] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, 800)
	})
}
