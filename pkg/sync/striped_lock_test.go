package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_HappyPath(t *testing.T) {
	workerCount := 64
	operationCount := 2000

	l := NewStripedLock(4)
	assert.Equal(t, 4, l.Stripes())

	var workerWg base.WaitGroup
	startChan := make(chan struct{})
	data := make([]int, workerCount)

	for i := 0; i < workerCount; i++ {
		workerWg.Add(1)

		go func(workerID int) {
			defer workerWg.Done()

			var opWg base.WaitGroup
			key := fmt.Sprintf("worker%d", workerID)
			for j := 0; j < operationCount; j++ {
				opWg.Add(1)

				go func() {
					defer opWg.Done()

					<-startChan

					unlock := l.Lock(key)
					data[workerID]++
					unlock()
				}()
			}
			opWg.Wait()
		}(i)
	}

	close(startChan)
	workerWg.Wait()

	for _, val := range data {
		assert.EqualValues(t, operationCount, val)
	}
}

func TestStripedLock_SameKeySameLock(t *testing.T) {
	l := NewStripedLock(16)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("program%d", i))
		assert.True(t, l.Get(key) == l.Get(key))
	}
}

func TestStripedLock_ZeroStripes(t *testing.T) {
	l := NewStripedLock(0)
	assert.Equal(t, 1, l.Stripes())

	unlock := l.RLock("key")
	unlock()
}
