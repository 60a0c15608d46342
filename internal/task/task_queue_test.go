package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTaskQueue(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 10, cap(queue.tasks))
	assert.False(t, queue.closed)
}

func TestEnqueue(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	assert.NoError(t, queue.Enqueue(newMockTask()))
	assert.NoError(t, queue.Enqueue(newMockTask()))

	// Queue full
	task3 := newMockTask()
	err := queue.Enqueue(task3)
	assert.ErrorIs(t, err, ErrQueueFull)

	// Dequeue one item to make space
	<-queue.tasks

	assert.NoError(t, queue.Enqueue(task3))
}

func TestClose(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())

	task := newMockTask()
	assert.NoError(t, queue.Enqueue(task))

	queue.Close()
	assert.True(t, queue.closed)

	// Closing twice is a no-op
	queue.Close()

	err := queue.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Queued tasks can still be read
	received := <-queue.GetChannel()
	assert.Equal(t, task.ID(), received.ID())

	select {
	case _, ok := <-queue.GetChannel():
		assert.False(t, ok, "Channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timed out waiting for closed channel read")
	}
}

func TestConcurrentEnqueueAndClose(t *testing.T) {
	queue := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// Either outcome is fine; the point is not to panic on a closed channel
				_ = queue.Enqueue(newMockTask())
			}
		}()
	}
	queue.Close()
	wg.Wait()

	count := 0
	for range queue.GetChannel() {
		count++
	}
	assert.LessOrEqual(t, count, 100)
}
