package symbol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterMonotonicAndUnique(t *testing.T) {
	c := NewCounter()
	res, err := c.Reserve()
	require.NoError(t, err)

	seen := make(map[ID]bool)
	var last ID
	for i := 0; i < reservationBatch*3; i++ {
		id, err := res.Next()
		require.NoError(t, err)
		assert.False(t, seen[id], "id %v reused", id)
		seen[id] = true
		assert.Greater(t, uint32(id), uint32(last))
		last = id
	}
}

func TestCounterConcurrentReservationsDontOverlap(t *testing.T) {
	c := NewCounter()
	const workers = 8
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[ID]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Reserve()
			require.NoError(t, err)
			for i := 0; i < perWorker; i++ {
				id, err := res.Next()
				require.NoError(t, err)
				mu.Lock()
				assert.False(t, seen[id])
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestCounterResumesFromHighWaterMark(t *testing.T) {
	c := NewCounter()
	res, _ := c.Reserve()
	for i := 0; i < 10; i++ {
		_, _ = res.Next()
	}
	hwm := c.HighWaterMark()

	resumed := NewCounterFrom(hwm)
	nextRes, err := resumed.Reserve()
	require.NoError(t, err)
	next, err := nextRes.Next()
	require.NoError(t, err)
	assert.Greater(t, uint32(next), hwm)
}
