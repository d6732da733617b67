package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := &Collector{}
	c.IncCommitSuccess()
	c.IncCommitSuccess()
	c.IncFinishSuccess()
	c.IncCleanupWarning()

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.CommitSuccess)
	assert.Equal(t, int64(1), snap.FinishSuccess)
	assert.Equal(t, int64(1), snap.CleanupWarning)
	assert.Equal(t, int64(0), snap.AbortSuccess)
}

func TestCollectorConcurrentIncrement(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncAbortSuccess()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), c.Snapshot().AbortSuccess)
}
